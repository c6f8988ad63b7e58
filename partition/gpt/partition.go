package gpt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"

	"github.com/partfs/go-partfs/geometry"
	"github.com/partfs/go-partfs/partition/part"
)

const (
	// nameLength is the fixed UTF-16 name field size in bytes
	nameLength = 72
	// minPartitionEntrySize per the GPT specification
	minPartitionEntrySize = 128
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Partition is a single entry in a GPT. Index is the 1-based entry number
// within the array; GUID is the unique partition GUID and never changes
// across edits. Start and End are sectors, inclusive; Size is bytes.
type Partition struct {
	Index              int
	Start              uint64
	End                uint64
	Size               uint64
	Type               Type
	Name               string
	GUID               string
	Attributes         uint64
	logicalSectorSize  int
	physicalSectorSize int
}

// Geom returns the partition's sector run.
func (p *Partition) Geom() geometry.Geom {
	return geometry.Geom{Start: int64(p.Start), Length: int64(p.End) - int64(p.Start) + 1}
}

// Equal compares identity, geometry, type, name and attributes.
func (p *Partition) Equal(other *Partition) bool {
	if other == nil {
		return false
	}
	return p.Index == other.Index &&
		p.Start == other.Start &&
		p.End == other.End &&
		p.Type == other.Type &&
		p.Name == other.Name &&
		strings.EqualFold(p.GUID, other.GUID) &&
		p.Attributes == other.Attributes
}

// toBytes encodes the entry into entrySize bytes.
func (p *Partition) toBytes(entrySize uint32) ([]byte, error) {
	b := make([]byte, entrySize)
	typeBytes, err := guidToBytes(string(p.Type))
	if err != nil {
		return nil, fmt.Errorf("invalid partition type GUID %s: %w", p.Type, err)
	}
	copy(b[0:16], typeBytes)
	idBytes, err := guidToBytes(p.GUID)
	if err != nil {
		return nil, fmt.Errorf("invalid partition GUID %s: %w", p.GUID, err)
	}
	copy(b[16:32], idBytes)
	binary.LittleEndian.PutUint64(b[32:40], p.Start)
	binary.LittleEndian.PutUint64(b[40:48], p.End)
	binary.LittleEndian.PutUint64(b[48:56], p.Attributes)
	name, err := utf16le.NewEncoder().Bytes([]byte(p.Name))
	if err != nil {
		return nil, fmt.Errorf("could not encode name %q: %w", p.Name, err)
	}
	if len(name) > nameLength {
		return nil, fmt.Errorf("name %q exceeds %d UTF-16 bytes", p.Name, nameLength)
	}
	copy(b[56:56+nameLength], name)
	return b, nil
}

// partitionFromBytes decodes one array entry. The all-zero "unused" entry
// returns nil.
func partitionFromBytes(b []byte, index, logicalSectorSize, physicalSectorSize int) (*Partition, error) {
	if len(b) < minPartitionEntrySize {
		return nil, fmt.Errorf("partition entry was %d bytes instead of at least %d", len(b), minPartitionEntrySize)
	}
	if bytes.Equal(b[0:16], make([]byte, 16)) {
		return nil, nil
	}
	typeGUID, err := guidFromBytes(b[0:16])
	if err != nil {
		return nil, fmt.Errorf("invalid partition type GUID: %w", err)
	}
	id, err := guidFromBytes(b[16:32])
	if err != nil {
		return nil, fmt.Errorf("invalid partition GUID: %w", err)
	}
	name, err := utf16le.NewDecoder().Bytes(b[56 : 56+nameLength])
	if err != nil {
		return nil, fmt.Errorf("could not decode partition name: %w", err)
	}
	start := binary.LittleEndian.Uint64(b[32:40])
	end := binary.LittleEndian.Uint64(b[40:48])
	return &Partition{
		Index:              index,
		Start:              start,
		End:                end,
		Size:               (end - start + 1) * uint64(logicalSectorSize),
		Type:               Type(typeGUID),
		Name:               strings.TrimRight(string(name), "\x00"),
		GUID:               id,
		Attributes:         binary.LittleEndian.Uint64(b[48:56]),
		logicalSectorSize:  logicalSectorSize,
		physicalSectorSize: physicalSectorSize,
	}, nil
}

// entry produces the kind-agnostic view.
func (p *Partition) entry() part.Entry {
	var flags []part.Flag
	for _, m := range []struct {
		bit  uint64
		flag part.Flag
	}{
		{AttrLegacyBIOSBootable, part.FlagBoot},
		{AttrPlatformRequired, part.FlagRequired},
		{AttrReadOnly, part.FlagReadOnly},
		{AttrHidden, part.FlagHidden},
		{AttrNoAutomount, part.FlagNoAutomount},
	} {
		if p.Attributes&m.bit != 0 {
			flags = append(flags, m.flag)
		}
	}
	return part.Entry{
		Number: p.Index,
		ID:     p.GUID,
		Geom:   p.Geom(),
		Type:   string(p.Type),
		Name:   p.Name,
		Flags:  flags,
	}
}

// clone returns a copy of the partition.
func (p *Partition) clone() *Partition {
	c := *p
	return &c
}

func (p *Partition) String() string {
	return fmt.Sprintf("%s %q type %s sectors %d-%d", p.GUID, p.Name, p.Type, p.Start, p.End)
}

// guidToBytes encodes a GUID string in GPT on-disk order: the first three
// groups little-endian, the rest big-endian.
func guidToBytes(s string) ([]byte, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	b, _ := u.MarshalBinary()
	mixed := make([]byte, 16)
	mixed[0], mixed[1], mixed[2], mixed[3] = b[3], b[2], b[1], b[0]
	mixed[4], mixed[5] = b[5], b[4]
	mixed[6], mixed[7] = b[7], b[6]
	copy(mixed[8:], b[8:])
	return mixed, nil
}

// guidFromBytes decodes a GUID from GPT on-disk mixed-endian order.
func guidFromBytes(b []byte) (string, error) {
	if len(b) != 16 {
		return "", fmt.Errorf("GUID was %d bytes instead of 16", len(b))
	}
	rfc := make([]byte, 16)
	rfc[0], rfc[1], rfc[2], rfc[3] = b[3], b[2], b[1], b[0]
	rfc[4], rfc[5] = b[5], b[4]
	rfc[6], rfc[7] = b[7], b[6]
	copy(rfc[8:], b[8:])
	u, err := uuid.FromBytes(rfc)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(u.String()), nil
}
