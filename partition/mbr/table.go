// Package mbr implements the Master Boot Record partition table: the
// single-sector legacy format with four primary slots and an 0x55AA
// signature. Parsing preserves the boot code and raw entry bytes so that an
// unedited table serializes back bit-exactly.
package mbr

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/partfs/go-partfs/bytestore"
	"github.com/partfs/go-partfs/geometry"
	"github.com/partfs/go-partfs/partition/part"
)

const (
	mbrSize            = 512
	bootCodeSize       = 440
	diskSignatureStart = 440
	reservedStart      = 444
	partitionStart     = 446
	signatureStart     = 510
	// PrimarySlots is the fixed entry capacity of an MBR.
	PrimarySlots = 4
)

var signature = []byte{0x55, 0xaa}

// Table is an MBR partition table. Partitions always holds exactly four
// slots; unused slots carry Type Empty. Deleting a partition empties its
// slot without renumbering the others.
type Table struct {
	Partitions         []*Partition
	LogicalSectorSize  int
	PhysicalSectorSize int
	DiskSignature      uint32
	bootCode           [bootCodeSize]byte
	reserved           [2]byte
}

// New returns an empty MBR table for the given sector sizes.
func New(logicalSectorSize, physicalSectorSize int) *Table {
	t := &Table{
		LogicalSectorSize:  logicalSectorSize,
		PhysicalSectorSize: physicalSectorSize,
	}
	for i := 0; i < PrimarySlots; i++ {
		t.Partitions = append(t.Partitions, &Partition{Type: Empty})
	}
	return t
}

// Type the table kind
func (t *Table) Type() string {
	return "mbr"
}

// UUID the disk signature rendered in hex, e.g. "0x12345678"
func (t *Table) UUID() string {
	return fmt.Sprintf("%08x", t.DiskSignature)
}

// Equal compares the slots of two tables; boot code and disk signature are
// pass-through data and ignored.
func (t *Table) Equal(other *Table) bool {
	if other == nil {
		return false
	}
	if len(t.Partitions) != len(other.Partitions) {
		return false
	}
	for i := range t.Partitions {
		if !t.Partitions[i].Equal(other.Partitions[i]) {
			return false
		}
	}
	return true
}

// tableFromBytes parses a 512-byte sector into a table.
func tableFromBytes(b []byte, logicalSectorSize, physicalSectorSize int) (*Table, error) {
	if len(b) != mbrSize {
		return nil, fmt.Errorf("data for partition was %d bytes instead of expected %d", len(b), mbrSize)
	}
	if !bytes.Equal(b[signatureStart:signatureStart+2], signature) {
		return nil, fmt.Errorf("invalid MBR Signature %v", b[signatureStart:signatureStart+2])
	}
	t := &Table{
		LogicalSectorSize:  logicalSectorSize,
		PhysicalSectorSize: physicalSectorSize,
		DiskSignature:      binary.LittleEndian.Uint32(b[diskSignatureStart:reservedStart]),
	}
	copy(t.bootCode[:], b[:bootCodeSize])
	copy(t.reserved[:], b[reservedStart:partitionStart])
	for i := 0; i < PrimarySlots; i++ {
		offset := partitionStart + i*partitionEntrySize
		p, err := partitionFromBytes(b[offset : offset+partitionEntrySize])
		if err != nil {
			return nil, fmt.Errorf("invalid partition entry %d: %w", i+1, err)
		}
		t.Partitions = append(t.Partitions, p)
	}
	return t, nil
}

// Read reads the MBR from sector 0 of the store. Entries whose bounds fall
// beyond the reported disk size make the table corrupt.
func Read(st bytestore.Store) (*Table, error) {
	b, err := st.ReadSectors(0, 1)
	if err != nil {
		return nil, fmt.Errorf("error reading MBR from store: %w", err)
	}
	if len(b) < mbrSize {
		return nil, fmt.Errorf("read only %d bytes of MBR instead of expected %d", len(b), mbrSize)
	}
	t, err := tableFromBytes(b[:mbrSize], st.SectorSize(), st.PhysicalSectorSize())
	if err != nil {
		return nil, part.NewCorruptTableError("mbr", err.Error())
	}
	if err := t.Verify(st.TotalSectors()); err != nil {
		return nil, err
	}
	return t, nil
}

// Verify checks that every in-use slot lies within the disk.
func (t *Table) Verify(diskSectors int64) error {
	for i, p := range t.Partitions {
		if p == nil || p.Type == Empty {
			continue
		}
		if end := int64(p.Start) + int64(p.Size); end > diskSectors {
			return part.NewCorruptTableError("mbr",
				fmt.Sprintf("partition %d ends at sector %d beyond disk size %d", i+1, end-1, diskSectors))
		}
	}
	return nil
}

// toBytes serializes the table to a 512-byte sector.
func (t *Table) toBytes() ([]byte, error) {
	if len(t.Partitions) > PrimarySlots {
		return nil, part.NewUnrepresentableLayoutError("mbr",
			fmt.Sprintf("%d partitions exceed the %d primary slots", len(t.Partitions), PrimarySlots))
	}
	b := make([]byte, mbrSize)
	copy(b, t.bootCode[:])
	binary.LittleEndian.PutUint32(b[diskSignatureStart:reservedStart], t.DiskSignature)
	copy(b[reservedStart:partitionStart], t.reserved[:])
	for i, p := range t.Partitions {
		if p == nil {
			p = &Partition{Type: Empty}
		}
		copy(b[partitionStart+i*partitionEntrySize:], p.toBytes())
	}
	copy(b[signatureStart:], signature)
	return b, nil
}

// Write serializes the table to sector 0. The write is a single sector,
// which the medium applies atomically.
func (t *Table) Write(st bytestore.Store) error {
	b, err := t.toBytes()
	if err != nil {
		return err
	}
	if err := st.WriteSectors(0, b); err != nil {
		return fmt.Errorf("error writing MBR to store: %w", err)
	}
	return nil
}

// Entries returns the in-use primary slots in slot order. Logical
// partitions inside an extended slot are reported by ReadLogical, not here.
func (t *Table) Entries() []part.Entry {
	var entries []part.Entry
	for i, p := range t.Partitions {
		if p == nil || p.Type == Empty {
			continue
		}
		entries = append(entries, p.entry(i+1))
	}
	return entries
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() part.Table {
	c := &Table{
		LogicalSectorSize:  t.LogicalSectorSize,
		PhysicalSectorSize: t.PhysicalSectorSize,
		DiskSignature:      t.DiskSignature,
		bootCode:           t.bootCode,
		reserved:           t.reserved,
	}
	for _, p := range t.Partitions {
		if p == nil {
			c.Partitions = append(c.Partitions, nil)
			continue
		}
		c.Partitions = append(c.Partitions, p.clone())
	}
	return c
}

// MaxPartitions the four primary slots
func (t *Table) MaxPartitions() int {
	return PrimarySlots
}

// UsableRange everything after the boot sector
func (t *Table) UsableRange(diskSectors int64) geometry.Geom {
	return geometry.Geom{Start: 1, Length: diskSectors - 1}
}

// FreeSlot returns the index of the first empty slot, or -1 when all four
// primary slots are occupied.
func (t *Table) FreeSlot() int {
	for i, p := range t.Partitions {
		if p == nil || p.Type == Empty {
			return i
		}
	}
	return -1
}

// part.Table interface guard
var _ part.Table = (*Table)(nil)
