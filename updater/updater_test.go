package updater

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/tenantengine/apperrors"
	"github.com/gocrud/tenantengine/resources"
)

func writeConfig(t *testing.T, dir, appID, appName string) {
	appDir := filepath.Join(dir, appID)
	require.NoError(t, os.MkdirAll(appDir, 0o755))
	config := `{"app_id":"` + appID + `","app_name":"` + appName + `"}`
	require.NoError(t, os.WriteFile(filepath.Join(appDir, "config.json"), []byte(config), 0o644))
}

func TestLocalFilesystemUpdaterReadsAllApps(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "app1", "App One")
	writeConfig(t, dir, "app2", "App Two")

	u := NewLocalFilesystemUpdater(dir)
	result, err := u.Update(context.Background(), UpdateInput{})
	require.NoError(t, err)

	assert.Len(t, result.UpdatedAppConfigs, 2)
	assert.Equal(t, "App One", result.UpdatedAppConfigs["app1"].Main.AppName)
}

func TestLocalFilesystemUpdaterRespectsIncludeFilter(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "app1", "App One")
	writeConfig(t, dir, "app2", "App Two")

	u := NewLocalFilesystemUpdater(dir)
	result, err := u.Update(context.Background(), UpdateInput{IncludeAppIDs: []string{"app1"}})
	require.NoError(t, err)

	assert.Len(t, result.UpdatedAppConfigs, 1)
	_, ok := result.UpdatedAppConfigs["app1"]
	assert.True(t, ok)
}

func TestLocalFilesystemUpdaterSkipsUnchanged(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "app1", "App One")

	u := NewLocalFilesystemUpdater(dir)
	future := time.Now().Add(time.Hour)

	result, err := u.Update(context.Background(), UpdateInput{
		SkipIfNoChange:  true,
		LastUpdateTimes: map[string]time.Time{"app1": future},
	})
	require.NoError(t, err)
	assert.Empty(t, result.UpdatedAppConfigs)

	require.Contains(t, result.SkippedApps, "app1")
	wrapped, ok := result.SkippedApps["app1"].(*apperrors.Wrappable)
	require.True(t, ok)
	assert.Equal(t, apperrors.NotModified, wrapped.Base())
}

func TestClosureUpdaterDelegates(t *testing.T) {
	called := false
	u := NewClosureUpdater(func(ctx context.Context, input UpdateInput) (*UpdateResult, error) {
		called = true
		return NewUpdateResult(), nil
	})
	_, err := u.Update(context.Background(), UpdateInput{})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestZippedObjectStorageUpdaterDiscoversAppsViaListing(t *testing.T) {
	store := resources.NewLocalFilesystemObjectStore(t.TempDir())

	zipData := buildTestZip(t, map[string]string{
		"config.json": `{"app_id":"app1","app_name":"Zipped App"}`,
	})
	_, err := store.Put(context.Background(), "apps/app1.zip", zipData)
	require.NoError(t, err)

	u := NewZippedObjectStorageUpdater(store, "apps", nil)
	result, err := u.Update(context.Background(), UpdateInput{})
	require.NoError(t, err)

	require.Contains(t, result.UpdatedAppConfigs, "app1")
	assert.Equal(t, "Zipped App", result.UpdatedAppConfigs["app1"].Main.AppName)
}

func TestZippedObjectStorageUpdaterEmptyBucketYieldsNoApps(t *testing.T) {
	store := resources.NewLocalFilesystemObjectStore(t.TempDir())
	u := NewZippedObjectStorageUpdater(store, "apps", nil)

	result, err := u.Update(context.Background(), UpdateInput{})
	require.NoError(t, err)
	assert.Empty(t, result.UpdatedAppConfigs)
	assert.Empty(t, result.SkippedApps)
}

func TestZippedObjectStorageUpdaterRemovesAppsDroppedFromListing(t *testing.T) {
	store := resources.NewLocalFilesystemObjectStore(t.TempDir())
	u := NewZippedObjectStorageUpdater(store, "apps", nil)

	result, err := u.Update(context.Background(), UpdateInput{
		LastUpdateTimes: map[string]time.Time{"gone": time.Now()},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"gone"}, result.RemovedAppIDs)
}

func TestZippedObjectStorageUpdaterSkipsUnchangedApp(t *testing.T) {
	store := resources.NewLocalFilesystemObjectStore(t.TempDir())

	zipData := buildTestZip(t, map[string]string{
		"config.json": `{"app_id":"app1","app_name":"Zipped App"}`,
	})
	_, err := store.Put(context.Background(), "apps/app1.zip", zipData)
	require.NoError(t, err)

	u := NewZippedObjectStorageUpdater(store, "apps", nil)
	future := time.Now().Add(time.Hour)

	result, err := u.Update(context.Background(), UpdateInput{
		SkipIfNoChange:  true,
		LastUpdateTimes: map[string]time.Time{"app1": future},
	})
	require.NoError(t, err)
	assert.Empty(t, result.UpdatedAppConfigs)

	require.Contains(t, result.SkippedApps, "app1")
	wrapped, ok := result.SkippedApps["app1"].(*apperrors.Wrappable)
	require.True(t, ok)
	assert.Equal(t, apperrors.NotModified, wrapped.Base())
}
