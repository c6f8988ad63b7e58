package geometry

import (
	"fmt"
	"sort"
)

// Severity classifies a layout violation. Warnings do not block a commit;
// fatal violations do.
type Severity int

const (
	Warning Severity = iota
	Fatal
)

func (s Severity) String() string {
	if s == Fatal {
		return "fatal"
	}
	return "warning"
}

// Violation codes
const (
	CodeOutOfBounds   = "out-of-bounds"
	CodeMisaligned    = "misaligned"
	CodeOverlap       = "overlap"
	CodeTooManySlots  = "too-many-slots"
	CodeBadSlotNumber = "bad-slot-number"
)

// Violation is one validator finding about a layout. Entry and Other are
// slot numbers of the offending partitions; Other is zero unless the
// violation involves a pair.
type Violation struct {
	Severity Severity
	Code     string
	Entry    int
	Other    int
	Message  string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s [%s]: %s", v.Severity, v.Code, v.Message)
}

// Limits are the table-kind-specific layout constraints the validator
// enforces in addition to pure geometry.
type Limits struct {
	// MaxPartitions is the slot/entry capacity of the table kind.
	MaxPartitions int
	// Usable is the sector range partitions may occupy. For MBR this is
	// everything after sector 0; for GPT it excludes the header and entry
	// array areas at both ends of the disk.
	Usable Geom
}

// Part is the validator's view of one partition: its slot number and its
// sector run.
type Part struct {
	Number int
	Geom   Geom
}

// Validate checks a whole layout and returns every violation found, in
// check order: bounds, alignment, pairwise overlap, slot limits. An empty
// result means the layout is commit-eligible; a result with only warnings
// means it commits but is flagged.
func Validate(parts []Part, align Alignment, limits Limits) []Violation {
	var violations []Violation

	// bounds
	for _, p := range parts {
		if p.Geom.Start < 0 || p.Geom.Length <= 0 {
			violations = append(violations, Violation{
				Severity: Fatal,
				Code:     CodeOutOfBounds,
				Entry:    p.Number,
				Message:  fmt.Sprintf("partition %d has invalid geometry %s", p.Number, p.Geom),
			})
			continue
		}
		if !limits.Usable.Contains(p.Geom) {
			violations = append(violations, Violation{
				Severity: Fatal,
				Code:     CodeOutOfBounds,
				Entry:    p.Number,
				Message:  fmt.Sprintf("partition %d (%s) outside usable range %s", p.Number, p.Geom, limits.Usable),
			})
		}
	}

	// alignment, warning class only
	for _, p := range parts {
		if p.Geom.Length > 0 && !align.IsAligned(p.Geom.Start) {
			violations = append(violations, Violation{
				Severity: Warning,
				Code:     CodeMisaligned,
				Entry:    p.Number,
				Message:  fmt.Sprintf("partition %d starts at sector %d, not a multiple of %d", p.Number, p.Geom.Start, align.Grain),
			})
		}
	}

	// pairwise overlap; adjacency is permitted
	sorted := make([]Part, len(parts))
	copy(sorted, parts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Geom.Start < sorted[j].Geom.Start })
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.Geom.Overlaps(cur.Geom) {
			violations = append(violations, Violation{
				Severity: Fatal,
				Code:     CodeOverlap,
				Entry:    prev.Number,
				Other:    cur.Number,
				Message:  fmt.Sprintf("partition %d (%s) overlaps partition %d (%s)", prev.Number, prev.Geom, cur.Number, cur.Geom),
			})
		}
	}

	// slot limits
	if limits.MaxPartitions > 0 && len(parts) > limits.MaxPartitions {
		violations = append(violations, Violation{
			Severity: Fatal,
			Code:     CodeTooManySlots,
			Message:  fmt.Sprintf("%d partitions exceed table capacity of %d", len(parts), limits.MaxPartitions),
		})
	}
	for _, p := range parts {
		if p.Number < 1 || (limits.MaxPartitions > 0 && p.Number > limits.MaxPartitions) {
			violations = append(violations, Violation{
				Severity: Fatal,
				Code:     CodeBadSlotNumber,
				Entry:    p.Number,
				Message:  fmt.Sprintf("partition number %d outside 1-%d", p.Number, limits.MaxPartitions),
			})
		}
	}

	return violations
}

// CommitEligible reports whether a validation result contains no fatal
// violation.
func CommitEligible(violations []Violation) bool {
	for _, v := range violations {
		if v.Severity == Fatal {
			return false
		}
	}
	return true
}

// FirstFatal returns the first fatal violation, or nil.
func FirstFatal(violations []Violation) *Violation {
	for i := range violations {
		if violations[i].Severity == Fatal {
			return &violations[i]
		}
	}
	return nil
}
