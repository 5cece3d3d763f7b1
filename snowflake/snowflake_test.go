package snowflake

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMonotonicAndNodeBits(t *testing.T) {
	gen, err := New(7, DefaultEpoch)
	require.NoError(t, err)

	prev := gen.Generate()
	for i := 0; i < 1000; i++ {
		id := gen.Generate()
		assert.Greater(t, id, prev)
		assert.Equal(t, int64(7), NodeOf(id))
		prev = id
	}
}

func TestGenerateConcurrentUnique(t *testing.T) {
	gen, err := New(3, DefaultEpoch)
	require.NoError(t, err)

	const n = 10000
	ids := make([]int64, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			ids[i] = gen.Generate()
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]struct{}, n)
	for _, id := range ids {
		_, dup := seen[id]
		assert.False(t, dup, "duplicate id %d", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n)
}

func TestNewRejectsOutOfRangeNode(t *testing.T) {
	_, err := New(1024, DefaultEpoch)
	assert.Error(t, err)

	_, err = New(-1, DefaultEpoch)
	assert.Error(t, err)
}

func TestBase36RendersZeroAndNonZero(t *testing.T) {
	assert.Equal(t, "0", Base36(0))
	assert.NotEmpty(t, Base36(123456789))
}
