package geometry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partfs/go-partfs/geometry"
)

func TestIsAligned(t *testing.T) {
	a := geometry.OneMiB()
	assert.True(t, a.IsAligned(0))
	assert.True(t, a.IsAligned(2048))
	assert.True(t, a.IsAligned(4096))
	assert.False(t, a.IsAligned(2049))

	any := geometry.Any()
	assert.True(t, any.IsAligned(7))

	single := geometry.Alignment{Offset: 63, Grain: 0}
	assert.True(t, single.IsAligned(63))
	assert.False(t, single.IsAligned(126))
}

func TestAlignUpDown(t *testing.T) {
	a := geometry.OneMiB()
	tests := []struct {
		sector   int64
		up, down int64
	}{
		{0, 0, 0},
		{1, 2048, 0},
		{2048, 2048, 2048},
		{2049, 4096, 2048},
		{4095, 4096, 2048},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.up, a.AlignUp(tt.sector), "AlignUp(%d)", tt.sector)
		assert.Equal(t, tt.down, a.AlignDown(tt.sector), "AlignDown(%d)", tt.sector)
	}

	offset := geometry.Alignment{Offset: 63, Grain: 16065}
	assert.Equal(t, int64(63), offset.AlignUp(1))
	assert.Equal(t, int64(63), offset.AlignDown(1000))
	assert.Equal(t, int64(63+16065), offset.AlignUp(64))
}

func TestAlignNearest(t *testing.T) {
	a := geometry.OneMiB()
	assert.Equal(t, int64(2048), a.AlignNearest(2049))
	assert.Equal(t, int64(4096), a.AlignNearest(4000))
	// ties go down
	assert.Equal(t, int64(2048), a.AlignNearest(3072))
}

func TestAlignmentIntersect(t *testing.T) {
	t.Run("compatible grains", func(t *testing.T) {
		a := geometry.Alignment{Offset: 0, Grain: 4}
		b := geometry.Alignment{Offset: 2, Grain: 6}
		got, ok := a.Intersect(b)
		require.True(t, ok)
		assert.Equal(t, int64(12), got.Grain)
		assert.Equal(t, int64(8), got.Offset)
		// the result satisfies both inputs
		assert.True(t, a.IsAligned(got.Offset))
		assert.True(t, b.IsAligned(got.Offset))
		assert.True(t, a.IsAligned(got.Offset+got.Grain))
		assert.True(t, b.IsAligned(got.Offset+got.Grain))
	})
	t.Run("incompatible", func(t *testing.T) {
		a := geometry.Alignment{Offset: 0, Grain: 4}
		b := geometry.Alignment{Offset: 1, Grain: 4}
		_, ok := a.Intersect(b)
		assert.False(t, ok)
	})
	t.Run("single sector", func(t *testing.T) {
		a := geometry.Alignment{Offset: 2048, Grain: 0}
		got, ok := a.Intersect(geometry.OneMiB())
		require.True(t, ok)
		assert.Equal(t, a, got)

		_, ok = geometry.Alignment{Offset: 2049, Grain: 0}.Intersect(geometry.OneMiB())
		assert.False(t, ok)
	})
}
