package registry

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gocrud/tenantengine/updater"
)

// persistWarnings writes <WarningsDir>/<appID>.json for every updated app
// that produced module warnings, and removes the file for apps whose
// updated config set no longer has any (§3 "module warnings are surfaced
// for operator visibility, not fatal").
func (p *PullLoop) persistWarnings(result *updater.UpdateResult) {
	if p.WarningsDir == "" {
		return
	}

	for appID, set := range result.UpdatedAppConfigs {
		path := filepath.Join(p.WarningsDir, appID+".json")

		if !set.HasWarnings() {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				p.logf("failed removing stale warnings file for app %q: %v", appID, err)
			}
			continue
		}

		data, err := json.MarshalIndent(set.Warnings, "", "  ")
		if err != nil {
			p.logf("failed encoding warnings for app %q: %v", appID, err)
			continue
		}

		if err := os.MkdirAll(p.WarningsDir, 0o755); err != nil {
			p.logf("failed creating warnings dir: %v", err)
			return
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			p.logf("failed writing warnings file for app %q: %v", appID, err)
		}
	}
}
