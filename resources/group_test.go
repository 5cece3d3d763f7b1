package resources

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/gocrud/tenantengine/core"
)

func TestNewBuildsNamedGroups(t *testing.T) {
	rt := core.NewRuntime()

	opt := New(
		Spec(DefaultGroupID, WithDatabase("default", sqlite.Open(":memory:"))),
		Spec("billing", WithDatabase("default", sqlite.Open(":memory:"))),
	)
	require.NoError(t, opt(rt))

	registry, err := registryFrom(rt)
	require.NoError(t, err)

	def, ok := registry.Get(DefaultGroupID)
	require.True(t, ok)
	assert.NotNil(t, def.Database("default"))

	billing, ok := registry.Get("billing")
	require.True(t, ok)
	assert.NotNil(t, billing.Database("default"))

	assert.NoError(t, registry.Close(context.Background()))
}

func TestRegistryResolveFallsBackToDefault(t *testing.T) {
	registry := NewRegistry()
	registry.groups[DefaultGroupID] = &Group{ID: DefaultGroupID}

	got := registry.Resolve("nonexistent-group")
	assert.Equal(t, DefaultGroupID, got.ID)
}

func TestRegistryResolveWithoutDefaultReturnsEmptyGroup(t *testing.T) {
	registry := NewRegistry()
	got := registry.Resolve("nonexistent-group")
	assert.Equal(t, "nonexistent-group", got.ID)
	assert.Nil(t, got.Database("default"))
}

func TestLocalFilesystemObjectStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalFilesystemObjectStore(dir)

	version, err := store.Put(context.Background(), "apps/app1/config.zip", []byte("payload"))
	require.NoError(t, err)
	assert.NotEmpty(t, version)

	data, gotVersion, err := store.Get(context.Background(), "apps/app1/config.zip")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.Equal(t, version, gotVersion)

	assert.FileExists(t, filepath.Join(dir, "apps/app1/config.zip"))
}

func TestLocalFilesystemObjectStoreMissingKey(t *testing.T) {
	store := NewLocalFilesystemObjectStore(t.TempDir())
	_, _, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalFilesystemObjectStoreRejectsPathEscape(t *testing.T) {
	store := NewLocalFilesystemObjectStore(t.TempDir())
	_, _, err := store.Get(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
}

// registryFrom resolves *Registry from the runtime's container the way a
// real Option consumer would, without requiring the full engine wiring.
func registryFrom(rt *core.Runtime) (*Registry, error) {
	if err := rt.Container.Build(); err != nil {
		return nil, err
	}
	var registry *Registry
	err := rt.Invoke(func(r *Registry) {
		registry = r
	})
	return registry, err
}
