package cron

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderBuildStashesJobDefinitions(t *testing.T) {
	b := NewBuilder().WithSeconds().WithLocation("UTC").EnableCronLogger()
	b.AddJob("@every 1m", "noop", func() {})

	svc, err := b.build(nil)
	require.NoError(t, err)
	require.NotNil(t, svc)

	assert.Len(t, svc.jobDefs, 1)
	assert.Equal(t, "noop", svc.jobDefs[0].name)
	assert.Equal(t, "@every 1m", svc.jobDefs[0].spec)
	assert.NotNil(t, svc.cron)
}
