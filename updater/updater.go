// Package updater implements the App Registry's pluggable config sources
// (§4.1 "Updater contract"): local filesystem directories, a zipped
// object-storage blob per app, an etcd-backed source, and a closure
// updater for tests and embedding hosts.
package updater

import (
	"context"
	"time"

	"github.com/gocrud/tenantengine/appconfig"
	"github.com/gocrud/tenantengine/logging"
)

// UpdateInput is what the registry hands an Updater on every pull.
type UpdateInput struct {
	Root            string
	Logger          logging.Logger
	IncludeAppIDs   []string // empty means "all"
	LastUpdateTimes map[string]time.Time
	Modules         []string
	SkipIfNoChange  bool
}

// Includes reports whether appID passes the include filter (§4.1
// "includesAppIDs empty ⇒ all; non-empty ⇒ restrict strictly").
func (in UpdateInput) Includes(appID string) bool {
	if len(in.IncludeAppIDs) == 0 {
		return true
	}
	for _, id := range in.IncludeAppIDs {
		if id == appID {
			return true
		}
	}
	return false
}

// ShouldSkip applies the skipIfNoChange contract for one app: a known
// updateTime that is not newer than what the registry already has means
// skip; an unknown updateTime always means update.
func (in UpdateInput) ShouldSkip(appID string, updateTime time.Time, knownUpdateTime time.Time, known bool) bool {
	if !in.SkipIfNoChange || !known {
		return false
	}
	return !updateTime.After(knownUpdateTime)
}

// UpdateResult is what an Updater returns for one pull.
type UpdateResult struct {
	UpdatedApps       map[string]time.Time
	UpdatedAppConfigs map[string]*appconfig.AppConfigSet
	SkippedApps       map[string]error

	// RemovedAppIDs lists apps the updater positively knows no longer
	// exist (e.g. a directory that vanished from a full listing). Sources
	// that cannot enumerate their full app set (a fixed app-ID list
	// against object storage, for instance) always leave this empty, so
	// previously known apps simply carry over rather than being dropped
	// on an incomplete view.
	RemovedAppIDs []string
}

// NewUpdateResult returns an UpdateResult with initialized maps.
func NewUpdateResult() *UpdateResult {
	return &UpdateResult{
		UpdatedApps:       make(map[string]time.Time),
		UpdatedAppConfigs: make(map[string]*appconfig.AppConfigSet),
		SkippedApps:       make(map[string]error),
	}
}

// Updater is a pluggable source of per-app configuration.
type Updater interface {
	Update(ctx context.Context, input UpdateInput) (*UpdateResult, error)
}
