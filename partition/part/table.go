package part

import (
	"github.com/partfs/go-partfs/bytestore"
	"github.com/partfs/go-partfs/geometry"
)

// Table is the capability interface the engine uses across table kinds.
// Both codecs implement it; everything kind-specific stays behind it except
// the mutations, which type-switch on the concrete table.
type Table interface {
	// Type is the table kind, "mbr" or "gpt".
	Type() string
	// UUID identifies the disk: the GPT disk GUID, or the MBR disk
	// signature rendered in hex.
	UUID() string
	// Entries returns the in-use entries in slot order.
	Entries() []Entry
	// Clone returns a deep copy sharing no mutable state.
	Clone() Table
	// Write serializes the table to the store, ordering writes so that a
	// crash mid-sequence leaves a recoverable table.
	Write(st bytestore.Store) error
	// MaxPartitions is the entry capacity of the table.
	MaxPartitions() int
	// UsableRange is the sector run partitions may occupy on a disk of the
	// given size.
	UsableRange(diskSectors int64) geometry.Geom
	// Verify re-checks table-kind invariants against the disk size.
	Verify(diskSectors int64) error
}
