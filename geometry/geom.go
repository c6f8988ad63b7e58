// Package geometry provides the pure sector arithmetic the engine uses:
// sector ranges, alignment policy, and whole-layout validation. Nothing in
// this package touches storage.
package geometry

import "fmt"

// Geom is a contiguous run of sectors on a disk.
type Geom struct {
	Start  int64
	Length int64
}

// End returns the last sector of the run, inclusive.
func (g Geom) End() int64 {
	return g.Start + g.Length - 1
}

// Overlaps reports whether the two runs share at least one sector.
// Adjacency is not overlap.
func (g Geom) Overlaps(other Geom) bool {
	if g.Length <= 0 || other.Length <= 0 {
		return false
	}
	return g.Start <= other.End() && other.Start <= g.End()
}

// Contains reports whether other lies entirely within g.
func (g Geom) Contains(other Geom) bool {
	return other.Start >= g.Start && other.End() <= g.End()
}

// ContainsSector reports whether sector lies within g.
func (g Geom) ContainsSector(sector int64) bool {
	return sector >= g.Start && sector <= g.End()
}

// Intersect returns the common run of the two geometries. The second return
// is false if they do not overlap.
func (g Geom) Intersect(other Geom) (Geom, bool) {
	if !g.Overlaps(other) {
		return Geom{}, false
	}
	start := g.Start
	if other.Start > start {
		start = other.Start
	}
	end := g.End()
	if other.End() < end {
		end = other.End()
	}
	return Geom{Start: start, Length: end - start + 1}, true
}

func (g Geom) String() string {
	return fmt.Sprintf("sectors %d-%d (%d)", g.Start, g.End(), g.Length)
}
