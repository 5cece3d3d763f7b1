package updater

import (
	"context"
	"os"
	"path/filepath"

	"github.com/gocrud/tenantengine/appconfig"
	"github.com/gocrud/tenantengine/apperrors"
)

// LocalFilesystemUpdater reads each app's config.json from
// <root>/<appID>/config.json, using the file's modification time as the
// update time.
type LocalFilesystemUpdater struct {
	root string
}

func NewLocalFilesystemUpdater(root string) *LocalFilesystemUpdater {
	return &LocalFilesystemUpdater{root: root}
}

func (u *LocalFilesystemUpdater) Update(ctx context.Context, input UpdateInput) (*UpdateResult, error) {
	result := NewUpdateResult()

	entries, err := os.ReadDir(u.root)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		appID := entry.Name()
		seen[appID] = true
		if !input.Includes(appID) {
			continue
		}

		configPath := filepath.Join(u.root, appID, "config.json")
		info, err := os.Stat(configPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			result.SkippedApps[appID] = err
			continue
		}

		updateTime := info.ModTime()
		known, hasKnown := input.LastUpdateTimes[appID]
		if input.ShouldSkip(appID, updateTime, known, hasKnown) {
			result.SkippedApps[appID] = apperrors.NewNotModified(nil)
			continue
		}

		set, err := appconfig.LoadDir(filepath.Join(u.root, appID))
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
