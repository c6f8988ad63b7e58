package geometry

import "fmt"

// DefaultGrain is the default alignment grain in sectors, 1 MiB at a
// 512-byte sector size. Partition starts off this grain are flagged as
// warnings, not errors.
const DefaultGrain = 2048

// Alignment describes the set of sectors of the form Offset + n*Grain.
// A Grain of 0 restricts the set to the single sector Offset; it is also
// how "any sector" (Offset 0, Grain 1) and policy grains are expressed.
type Alignment struct {
	Offset int64
	Grain  int64
}

// Any matches every sector.
func Any() Alignment {
	return Alignment{Offset: 0, Grain: 1}
}

// OneMiB is the default policy alignment.
func OneMiB() Alignment {
	return Alignment{Offset: 0, Grain: DefaultGrain}
}

// IsAligned reports whether sector satisfies the alignment.
func (a Alignment) IsAligned(sector int64) bool {
	if a.Grain == 0 {
		return sector == a.Offset
	}
	return (sector-a.Offset)%a.Grain == 0
}

// AlignUp returns the first aligned sector at or after sector.
func (a Alignment) AlignUp(sector int64) int64 {
	if a.Grain == 0 {
		return a.Offset
	}
	d := (sector - a.Offset) % a.Grain
	if d == 0 {
		return sector
	}
	if d < 0 {
		d += a.Grain
	}
	return sector + a.Grain - d
}

// AlignDown returns the last aligned sector at or before sector.
func (a Alignment) AlignDown(sector int64) int64 {
	if a.Grain == 0 {
		return a.Offset
	}
	d := (sector - a.Offset) % a.Grain
	if d < 0 {
		d += a.Grain
	}
	return sector - d
}

// AlignNearest returns whichever of AlignUp and AlignDown is closer to
// sector, preferring the lower on a tie.
func (a Alignment) AlignNearest(sector int64) int64 {
	up, down := a.AlignUp(sector), a.AlignDown(sector)
	if up-sector < sector-down {
		return up
	}
	return down
}

// Intersect returns an alignment satisfied exactly where both a and other
// are satisfied. The second return is false when the two never coincide.
func (a Alignment) Intersect(other Alignment) (Alignment, bool) {
	if a.Grain == 0 {
		if other.IsAligned(a.Offset) {
			return a, true
		}
		return Alignment{}, false
	}
	if other.Grain == 0 {
		return other.Intersect(a)
	}
	// solve offset = a.Offset (mod a.Grain), offset = other.Offset (mod other.Grain)
	g, x, _ := extGCD(a.Grain, other.Grain)
	diff := other.Offset - a.Offset
	if diff%g != 0 {
		return Alignment{}, false
	}
	lcm := a.Grain / g * other.Grain
	q := other.Grain / g
	t := mod(mod(diff/g, q)*mod(x, q), q)
	offset := mod(a.Offset+a.Grain*t, lcm)
	return Alignment{Offset: offset, Grain: lcm}, true
}

// extGCD returns gcd(a, b) and Bezout coefficients x, y with ax + by = gcd.
func extGCD(a, b int64) (g, x, y int64) {
	if b == 0 {
		return a, 1, 0
	}
	g, x1, y1 := extGCD(b, a%b)
	return g, y1, x1 - (a/b)*y1
}

func mod(a, m int64) int64 {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}

func (a Alignment) String() string {
	return fmt.Sprintf("align %d+n*%d", a.Offset, a.Grain)
}
