package updater

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/gocrud/tenantengine/appconfig"
	"github.com/gocrud/tenantengine/apperrors"
	"github.com/gocrud/tenantengine/resources"
)

// zipListPageSize is the page size used when discovering app IDs via
// ObjectStore.List's continue-token pagination.
const zipListPageSize = 100

// ZippedObjectStorageUpdater reads each app's config as a zip blob (one
// entry named config.json inside) from an object store keyed
// "<Prefix>/<appID>.zip". The app-ID set is discovered on every pull via
// ObjectStore.List, so a newly-uploaded zip is picked up without the
// caller having to know its ID in advance.
type ZippedObjectStorageUpdater struct {
	Store   resources.ObjectStore
	Prefix  string
	KeyFunc func(appID string) string
}

// NewZippedObjectStorageUpdater builds an updater keying objects as
// "<prefix>/<appID>.zip" unless keyFunc is provided.
func NewZippedObjectStorageUpdater(store resources.ObjectStore, prefix string, keyFunc func(appID string) string) *ZippedObjectStorageUpdater {
	if keyFunc == nil {
		keyFunc = func(appID string) string { return joinObjectKey(prefix, appID) }
	}
	return &ZippedObjectStorageUpdater{Store: store, Prefix: prefix, KeyFunc: keyFunc}
}

func joinObjectKey(prefix, appID string) string {
	if prefix == "" {
		return appID + ".zip"
	}
	return prefix + "/" + appID + ".zip"
}

func (u *ZippedObjectStorageUpdater) Update(ctx context.Context, input UpdateInput) (*UpdateResult, error) {
	result := NewUpdateResult()

	appIDs, err := u.discoverAppIDs(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(appIDs))

	for _, appID := range appIDs {
		seen[appID] = true
		if !input.Includes(appID) {
			continue
		}

		data, version, err := u.Store.Get(ctx, u.KeyFunc(appID))
		if err != nil {
			if err == resources.ErrObjectNotFound {
				continue
			}
			result.SkippedApps[appID] = err
			continue
		}

		updateTime := versionToTime(version)
		known, hasKnown := input.LastUpdateTimes[appID]
		if !updateTime.IsZero() && input.ShouldSkip(appID, updateTime, known, hasKnown) {
			result.SkippedApps[appID] = apperrors.NewNotModified(nil)
			continue
		}

		configJSON, err := extractConfigJSON(data)
		if err != nil {
			result.SkippedApps[appID] = err
			continue
		}

		set, err := appconfig.Parse(configJSON)
		if err != nil {
			result.SkippedApps[appID] = err
			continue
		}

		result.UpdatedApps[appID] = updateTime
		result.UpdatedAppConfigs[appID] = set
	}

	for appID := range input.LastUpdateTimes {
		if !seen[appID] {
			result.RemovedAppIDs = append(result.RemovedAppIDs, appID)
		}
	}

	return result, nil
}

// discoverAppIDs walks every page of the prefix listing, extracting the
// app ID out of each "<Prefix>/<appID>.zip" key.
func (u *ZippedObjectStorageUpdater) discoverAppIDs(ctx context.Context) ([]string, error) {
	var appIDs []string
	token := ""

	for {
		keys, next, err := u.Store.List(ctx, u.Prefix, token, zipListPageSize)
		if err != nil {
			return nil, err
		}

		for _, key := range keys {
			if appID := appIDFromKey(u.Prefix, key); appID != "" {
				appIDs = append(appIDs, appID)
			}
		}

		if next == "" {
			break
		}
		token = next
	}

	return appIDs, nil
}

// appIDFromKey extracts the app ID from a "<prefix>/<appID>.zip" key,
// returning "" for keys that don't match that shape.
func appIDFromKey(prefix, key string) string {
	rest := key
	if prefix != "" {
		trimPrefix := prefix + "/"
		if !strings.HasPrefix(key, trimPrefix) {
			return ""
		}
		rest = strings.TrimPrefix(key, trimPrefix)
	}

	if !strings.HasSuffix(rest, ".zip") {
		return ""
	}
	rest = strings.TrimSuffix(rest, ".zip")

	if rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}

func extractConfigJSON(zipData []byte) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(zipData), int64(len(zipData)))
	if err != nil {
		return nil, fmt.Errorf("updater: invalid zip archive: %w", err)
	}

	for _, f := range reader.File {
		if f.Name != "config.json" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}

	return nil, fmt.Errorf("updater: config.json not found in archive")
}

// versionToTime interprets the object store's opaque version token as
// UnixNano when possible, falling back to the zero time otherwise. Update
// never skips an app whose version maps to the zero time, so such an app is
// re-parsed on every pull.
func versionToTime(version string) time.Time {
	nanos, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}
