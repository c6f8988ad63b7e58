// Package part holds the types shared between the partition table codecs:
// the table-kind-agnostic view of a single entry, the flag vocabulary, and
// the codec-level error taxonomy.
package part

import "github.com/partfs/go-partfs/geometry"

// Flag is a table-kind-agnostic partition flag. Each codec maps the flags
// it can represent onto its on-disk encoding and rejects the rest.
type Flag int

const (
	// FlagBoot MBR bootable byte, or the legacy-BIOS-bootable GPT attribute
	FlagBoot Flag = iota
	// FlagRequired GPT "platform required" attribute
	FlagRequired
	// FlagReadOnly GPT read-only attribute
	FlagReadOnly
	// FlagHidden GPT hidden attribute
	FlagHidden
	// FlagNoAutomount GPT do-not-automount attribute
	FlagNoAutomount
)

func (f Flag) String() string {
	switch f {
	case FlagBoot:
		return "boot"
	case FlagRequired:
		return "required"
	case FlagReadOnly:
		return "read-only"
	case FlagHidden:
		return "hidden"
	case FlagNoAutomount:
		return "no-automount"
	default:
		return "unknown"
	}
}

// Entry is the read view of one partition that both codecs can produce.
//
// ID is stable across edits: the partition GUID for GPT, the slot number
// rendered as a string for MBR. Logical is true only for entries discovered
// by walking an MBR extended-partition chain; those are read-only.
type Entry struct {
	// Number is the 1-based slot/entry number within the table.
	Number int
	// ID is the stable identifier of the partition within its table.
	ID string
	// Geom is the sector run of the partition.
	Geom geometry.Geom
	// Type is the partition type: a GUID string for GPT, a two-digit hex
	// code for MBR.
	Type string
	// Name is the partition label; empty for MBR, which cannot store one.
	Name string
	// Flags present on the entry.
	Flags []Flag
	// Logical marks an entry from an MBR extended-partition chain.
	Logical bool
}

// HasFlag reports whether the entry carries the given flag.
func (e *Entry) HasFlag(f Flag) bool {
	for _, have := range e.Flags {
		if have == f {
			return true
		}
	}
	return false
}
