package updater

import (
	"context"
	"fmt"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/gocrud/tenantengine/appconfig"
	"github.com/gocrud/tenantengine/apperrors"
)

// EtcdUpdater reads each app's config.json from an etcd key prefix, one
// key per app named "<prefix><appID>". The key's mod-revision stands in
// for update time (etcd revisions are monotonic per cluster, so ShouldSkip
// still behaves correctly even though it is not wall-clock time).
type EtcdUpdater struct {
	Client *clientv3.Client
	Prefix string
}

func NewEtcdUpdater(client *clientv3.Client, prefix string) *EtcdUpdater {
	return &EtcdUpdater{Client: client, Prefix: prefix}
}

func (u *EtcdUpdater) Update(ctx context.Context, input UpdateInput) (*UpdateResult, error) {
	result := NewUpdateResult()

	resp, err := u.Client.Get(ctx, u.Prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("updater: etcd get failed: %w", err)
	}

	seen := make(map[string]bool, len(resp.Kvs))

	for _, kv := range resp.Kvs {
		appID := strings.TrimPrefix(string(kv.Key), u.Prefix)
		if appID == "" {
			continue
		}
		seen[appID] = true
		if !input.Includes(appID) {
			continue
		}

		updateTime := revisionToTime(kv.ModRevision)
		known, hasKnown := input.LastUpdateTimes[appID]
		if input.ShouldSkip(appID, updateTime, known, hasKnown) {
			result.SkippedApps[appID] = apperrors.NewNotModified(nil)
			continue
		}

		set, err := appconfig.Parse(kv.Value)
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

// revisionToTime maps an etcd mod-revision onto a monotonically increasing
// time.Time so the shared ShouldSkip comparison (After) still orders
// updates correctly.
func revisionToTime(revision int64) time.Time {
	return time.Unix(0, revision).UTC()
}
