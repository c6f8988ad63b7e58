package geometry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/partfs/go-partfs/geometry"
)

func TestGeomEnd(t *testing.T) {
	g := geometry.Geom{Start: 2048, Length: 1024}
	assert.Equal(t, int64(3071), g.End())
}

func TestGeomOverlaps(t *testing.T) {
	tests := []struct {
		name     string
		a, b     geometry.Geom
		overlaps bool
	}{
		{"disjoint", geometry.Geom{Start: 0, Length: 10}, geometry.Geom{Start: 20, Length: 10}, false},
		{"adjacent", geometry.Geom{Start: 0, Length: 10}, geometry.Geom{Start: 10, Length: 10}, false},
		{"one sector shared", geometry.Geom{Start: 0, Length: 11}, geometry.Geom{Start: 10, Length: 10}, true},
		{"contained", geometry.Geom{Start: 0, Length: 100}, geometry.Geom{Start: 10, Length: 10}, true},
		{"identical", geometry.Geom{Start: 5, Length: 5}, geometry.Geom{Start: 5, Length: 5}, true},
		{"zero length", geometry.Geom{Start: 5, Length: 0}, geometry.Geom{Start: 0, Length: 100}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.overlaps, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.overlaps, tt.b.Overlaps(tt.a))
		})
	}
}

func TestGeomContains(t *testing.T) {
	outer := geometry.Geom{Start: 100, Length: 100}
	assert.True(t, outer.Contains(geometry.Geom{Start: 100, Length: 100}))
	assert.True(t, outer.Contains(geometry.Geom{Start: 150, Length: 50}))
	assert.False(t, outer.Contains(geometry.Geom{Start: 150, Length: 51}))
	assert.False(t, outer.Contains(geometry.Geom{Start: 99, Length: 10}))

	assert.True(t, outer.ContainsSector(100))
	assert.True(t, outer.ContainsSector(199))
	assert.False(t, outer.ContainsSector(200))
}

func TestGeomIntersect(t *testing.T) {
	a := geometry.Geom{Start: 0, Length: 100}
	b := geometry.Geom{Start: 50, Length: 100}
	got, ok := a.Intersect(b)
	assert.True(t, ok)
	assert.Equal(t, geometry.Geom{Start: 50, Length: 50}, got)

	_, ok = a.Intersect(geometry.Geom{Start: 100, Length: 10})
	assert.False(t, ok)
}
