package mbr

import (
	"encoding/binary"
	"fmt"

	"github.com/partfs/go-partfs/geometry"
	"github.com/partfs/go-partfs/partition/part"
)

const (
	partitionEntrySize = 16
	// CHS geometry used when synthesizing CHS fields from an LBA
	maxHeads          = 255
	sectorsPerTrack   = 63
	maxCHSSector      = maxHeads * sectorsPerTrack * 1024
	bootableFlag byte = 0x80
)

// Partition is a single primary-slot entry in an MBR. Start and Size are
// LBA values and authoritative; the CHS fields are preserved verbatim from
// disk so an unedited entry serializes back bit-exactly, and are
// synthesized from the LBA for entries created in memory.
type Partition struct {
	Bootable bool
	Type     Type
	Start    uint32
	Size     uint32
	// raw CHS fields; sector bytes carry cylinder high bits in the top two bits
	StartHead     byte
	StartSector   byte
	StartCylinder byte
	EndHead       byte
	EndSector     byte
	EndCylinder   byte
}

// Geom returns the partition's sector run.
func (p *Partition) Geom() geometry.Geom {
	return geometry.Geom{Start: int64(p.Start), Length: int64(p.Size)}
}

// Equal compares LBA geometry, type and bootable flag; CHS fields are
// derived data and ignored.
func (p *Partition) Equal(other *Partition) bool {
	if other == nil {
		return false
	}
	return p.Bootable == other.Bootable &&
		p.Type == other.Type &&
		p.Start == other.Start &&
		p.Size == other.Size
}

// PartitionEqualBytes compares two 16-byte partition entries, ignoring the
// CHS fields for the same reason Equal does.
func PartitionEqualBytes(b1, b2 []byte) bool {
	if len(b1) != partitionEntrySize || len(b2) != partitionEntrySize {
		return false
	}
	return b1[0] == b2[0] &&
		b1[4] == b2[4] &&
		binary.LittleEndian.Uint32(b1[8:12]) == binary.LittleEndian.Uint32(b2[8:12]) &&
		binary.LittleEndian.Uint32(b1[12:16]) == binary.LittleEndian.Uint32(b2[12:16])
}

// partitionFromBytes reads a single 16-byte entry.
func partitionFromBytes(b []byte) (*Partition, error) {
	if len(b) != partitionEntrySize {
		return nil, fmt.Errorf("data for partition was %d bytes instead of expected %d", len(b), partitionEntrySize)
	}
	switch b[0] {
	case 0x00, bootableFlag:
	default:
		return nil, fmt.Errorf("invalid partition status byte 0x%02x", b[0])
	}
	return &Partition{
		Bootable:      b[0] == bootableFlag,
		StartHead:     b[1],
		StartSector:   b[2],
		StartCylinder: b[3],
		Type:          Type(b[4]),
		EndHead:       b[5],
		EndSector:     b[6],
		EndCylinder:   b[7],
		Start:         binary.LittleEndian.Uint32(b[8:12]),
		Size:          binary.LittleEndian.Uint32(b[12:16]),
	}, nil
}

// toBytes encodes the entry into 16 bytes.
func (p *Partition) toBytes() []byte {
	b := make([]byte, partitionEntrySize)
	if p.Bootable {
		b[0] = bootableFlag
	}
	b[1] = p.StartHead
	b[2] = p.StartSector
	b[3] = p.StartCylinder
	b[4] = byte(p.Type)
	b[5] = p.EndHead
	b[6] = p.EndSector
	b[7] = p.EndCylinder
	binary.LittleEndian.PutUint32(b[8:12], p.Start)
	binary.LittleEndian.PutUint32(b[12:16], p.Size)
	return b
}

// ComputeCHS fills in the CHS fields from the LBA geometry, clamping to
// the conventional FE FF FF once the address exceeds CHS reach.
func (p *Partition) ComputeCHS() {
	p.StartHead, p.StartSector, p.StartCylinder = lbaToCHS(int64(p.Start))
	p.EndHead, p.EndSector, p.EndCylinder = lbaToCHS(int64(p.Start) + int64(p.Size) - 1)
}

func lbaToCHS(lba int64) (head, sector, cylinder byte) {
	if lba >= maxCHSSector {
		return 0xfe, 0xff, 0xff
	}
	c := lba / (maxHeads * sectorsPerTrack)
	h := (lba / sectorsPerTrack) % maxHeads
	s := lba%sectorsPerTrack + 1
	// sector byte: sector in low 6 bits, cylinder bits 8-9 in top 2 bits
	return byte(h), byte(s) | byte(c>>8<<6), byte(c & 0xff)
}

func (p *Partition) String() string {
	return fmt.Sprintf("type 0x%02x start %d size %d bootable %t", byte(p.Type), p.Start, p.Size, p.Bootable)
}

// clone returns a copy of the partition.
func (p *Partition) clone() *Partition {
	c := *p
	return &c
}

// entry produces the kind-agnostic view for the given slot.
func (p *Partition) entry(slot int) part.Entry {
	var flags []part.Flag
	if p.Bootable {
		flags = append(flags, part.FlagBoot)
	}
	return part.Entry{
		Number: slot,
		ID:     fmt.Sprintf("%d", slot),
		Geom:   p.Geom(),
		Type:   fmt.Sprintf("%02x", byte(p.Type)),
		Flags:  flags,
	}
}
