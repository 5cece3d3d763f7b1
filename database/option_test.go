package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gocrud/tenantengine/core"
	"github.com/gocrud/tenantengine/di"
)

func TestNewRegistersDefaultAndNamedInstances(t *testing.T) {
	rt := core.NewRuntime()

	opt := New(
		WithDatabase("default", sqlite.Open(":memory:")),
		WithDatabase("secondary", sqlite.Open(":memory:")),
	)
	require.NoError(t, opt(rt))
	require.NoError(t, rt.Container.Build())

	def, err := di.Resolve[*gorm.DB](rt.Container)
	require.NoError(t, err)
	assert.NotNil(t, def)

	named, err := di.ResolveNamed[*gorm.DB](rt.Container, "secondary")
	require.NoError(t, err)
	assert.NotNil(t, named)
}

func TestNewWithNoDatabasesIsANoOp(t *testing.T) {
	rt := core.NewRuntime()

	require.NoError(t, New()(rt))
	require.NoError(t, rt.Container.Build())

	_, err := di.Resolve[*gorm.DB](rt.Container)
	assert.Error(t, err)
}
