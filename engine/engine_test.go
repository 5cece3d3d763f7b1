package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/tenantengine/core"
	"github.com/gocrud/tenantengine/di"
	"github.com/gocrud/tenantengine/logging"
	"github.com/gocrud/tenantengine/registry"
	"github.com/gocrud/tenantengine/serviceregister"
)

func testConfig(t *testing.T) *EngineConfig {
	t.Helper()
	cfg := &EngineConfig{
		ServiceName: "engine-test",
		AppSource: AppSourceConfig{
			LocalPath: t.TempDir(),
		},
	}
	cfg.applyDefaults()
	return cfg
}

func TestNewWiresEveryCoreSingleton(t *testing.T) {
	rt := core.NewRuntime()
	opts := Options{Config: testConfig(t)}

	require.NoError(t, rt.Apply(New(opts)))
	require.NoError(t, rt.Container.Build())

	appRegistry, err := di.Resolve[*registry.Registry](rt.Container)
	require.NoError(t, err)
	assert.NotNil(t, appRegistry)

	logger, err := di.Resolve[logging.Logger](rt.Container)
	require.NoError(t, err)
	assert.NotNil(t, logger)

	reg, err := di.Resolve[*serviceregister.Register](rt.Container)
	require.NoError(t, err)
	assert.NotNil(t, reg)
	// Generator is only seeded once Lifecycle.Start runs reg.Start; Build
	// alone must not have forced that, so it's still nil here.
	assert.Nil(t, reg.Generator())
}

func TestNewRejectsMissingConfig(t *testing.T) {
	rt := core.NewRuntime()
	err := rt.Apply(New(Options{}))
	assert.Error(t, err)
}

func TestNewDefaultsResourceGroupsWhenNoneConfigured(t *testing.T) {
	rt := core.NewRuntime()
	cfg := testConfig(t)
	require.NoError(t, rt.Apply(New(Options{Config: cfg})))
	require.NoError(t, rt.Container.Build())
}
