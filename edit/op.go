// Package edit defines the operations that change a partition table and
// applies them. An operation is immutable once constructed; applying one
// never mutates the input table, it produces a new table that has passed
// whole-layout validation. Tables are only ever edited through these
// operations, inside a transaction.
package edit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/partfs/go-partfs/geometry"
	"github.com/partfs/go-partfs/partition/gpt"
	"github.com/partfs/go-partfs/partition/mbr"
	"github.com/partfs/go-partfs/partition/part"
)

// Op is one staged edit. The concrete types are Create, Delete, Resize,
// Move, SetFlag and Rename.
type Op interface {
	// apply mutates the table in place and returns the ID of the affected
	// partition. Callers go through Apply, which clones first.
	apply(t part.Table) (string, error)
	String() string
}

// Create adds a partition at an explicit start and length in sectors.
// Type is the table-kind type code: a two-digit hex byte for MBR, a type
// GUID for GPT. Name is GPT-only.
type Create struct {
	Start  int64
	Length int64
	Type   string
	Name   string
	Flags  []part.Flag
}

// Delete removes the partition with the given ID. Remaining partitions keep
// their slots and identifiers.
type Delete struct {
	ID string
}

// Resize changes a partition's length in sectors, keeping its start.
type Resize struct {
	ID        string
	NewLength int64
}

// Move relocates a partition to a new start sector, keeping its length.
type Move struct {
	ID       string
	NewStart int64
}

// SetFlag sets or clears one flag on a partition.
type SetFlag struct {
	ID   string
	Flag part.Flag
	On   bool
}

// Rename changes a partition's name. GPT only.
type Rename struct {
	ID   string
	Name string
}

// Apply applies op to a clone of t, validates the resulting layout as a
// whole, and returns the new table plus the ID of the affected partition.
// On any error the input table is untouched and the returned table is nil.
func Apply(t part.Table, op Op, align geometry.Alignment, diskSectors int64) (part.Table, string, error) {
	work := t.Clone()
	id, err := op.apply(work)
	if err != nil {
		return nil, "", err
	}
	if err := validate(work, align, diskSectors); err != nil {
		return nil, "", err
	}
	return work, id, nil
}

// ApplyAll applies ops in order to a clone of t and validates only the
// final layout, so a sequence whose intermediate states are invalid (a
// move done as delete plus create, say) still goes through. On any error
// the input table is untouched and the returned table is nil.
func ApplyAll(t part.Table, ops []Op, align geometry.Alignment, diskSectors int64) (part.Table, error) {
	work := t.Clone()
	for _, op := range ops {
		if _, err := op.apply(work); err != nil {
			return nil, err
		}
	}
	if err := validate(work, align, diskSectors); err != nil {
		return nil, err
	}
	return work, nil
}

// validate runs the geometry validator over the whole table and maps the
// first fatal violation onto the edit error taxonomy. Warnings pass.
func validate(t part.Table, align geometry.Alignment, diskSectors int64) error {
	entries := t.Entries()
	parts := make([]geometry.Part, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, geometry.Part{Number: e.Number, Geom: e.Geom})
	}
	violations := geometry.Validate(parts, align, geometry.Limits{
		MaxPartitions: t.MaxPartitions(),
		Usable:        t.UsableRange(diskSectors),
	})
	fatal := geometry.FirstFatal(violations)
	if fatal == nil {
		return nil
	}
	switch fatal.Code {
	case geometry.CodeOverlap:
		return NewOverlapError(fatal.Entry, fatal.Other, fatal.Message)
	case geometry.CodeOutOfBounds:
		return NewOutOfBoundsError(fatal.Message)
	default:
		return part.NewUnrepresentableLayoutError(t.Type(), fatal.Message)
	}
}

// Violations runs the validator without applying anything, for callers that
// want the warning-class findings too.
func Violations(t part.Table, align geometry.Alignment, diskSectors int64) []geometry.Violation {
	entries := t.Entries()
	parts := make([]geometry.Part, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, geometry.Part{Number: e.Number, Geom: e.Geom})
	}
	return geometry.Validate(parts, align, geometry.Limits{
		MaxPartitions: t.MaxPartitions(),
		Usable:        t.UsableRange(diskSectors),
	})
}

func (op Create) apply(t part.Table) (string, error) {
	g := geometry.Geom{Start: op.Start, Length: op.Length}
	switch table := t.(type) {
	case *mbr.Table:
		if op.Name != "" {
			return "", part.NewUnrepresentableLayoutError("mbr", "MBR entries cannot carry a name")
		}
		typ, err := parseMBRType(op.Type)
		if err != nil {
			return "", err
		}
		slot := table.FreeSlot()
		if slot < 0 {
			return "", part.NewUnrepresentableLayoutError("mbr",
				fmt.Sprintf("all %d primary slots in use", mbr.PrimarySlots))
		}
		p := &mbr.Partition{
			Type:  typ,
			Start: uint32(op.Start),
			Size:  uint32(op.Length),
		}
		for _, f := range op.Flags {
			if f != part.FlagBoot {
				return "", part.NewUnrepresentableLayoutError("mbr",
					fmt.Sprintf("flag %s not representable in an MBR entry", f))
			}
			p.Bootable = true
		}
		if op.Start < 0 || op.Start > 0xffffffff || op.Length < 0 || op.Length > 0xffffffff {
			return "", NewOutOfBoundsError(fmt.Sprintf("placement %s beyond 32-bit LBA range", g))
		}
		p.ComputeCHS()
		table.Partitions[slot] = p
		return strconv.Itoa(slot + 1), nil
	case *gpt.Table:
		typ, err := parseGPTType(op.Type)
		if err != nil {
			return "", err
		}
		p, err := table.CreatePartition(g, typ, op.Name)
		if err != nil {
			return "", err
		}
		for _, f := range op.Flags {
			setGPTFlag(p, f, true)
		}
		return p.GUID, nil
	default:
		return "", fmt.Errorf("unsupported table kind %s", t.Type())
	}
}

func (op Delete) apply(t part.Table) (string, error) {
	switch table := t.(type) {
	case *mbr.Table:
		slot, err := mbrSlot(table, op.ID)
		if err != nil {
			return "", err
		}
		table.Partitions[slot] = &mbr.Partition{Type: mbr.Empty}
		return op.ID, nil
	case *gpt.Table:
		if !table.DeletePartition(op.ID) {
			return "", NewNotFoundError(op.ID)
		}
		return op.ID, nil
	default:
		return "", fmt.Errorf("unsupported table kind %s", t.Type())
	}
}

func (op Resize) apply(t part.Table) (string, error) {
	return reshape(t, op.ID, func(g geometry.Geom) geometry.Geom {
		return geometry.Geom{Start: g.Start, Length: op.NewLength}
	})
}

func (op Move) apply(t part.Table) (string, error) {
	return reshape(t, op.ID, func(g geometry.Geom) geometry.Geom {
		return geometry.Geom{Start: op.NewStart, Length: g.Length}
	})
}

// reshape applies a geometry rewrite to the identified partition.
func reshape(t part.Table, id string, rewrite func(geometry.Geom) geometry.Geom) (string, error) {
	switch table := t.(type) {
	case *mbr.Table:
		slot, err := mbrSlot(table, id)
		if err != nil {
			return "", err
		}
		p := table.Partitions[slot]
		g := rewrite(p.Geom())
		if g.Start < 0 || g.Start > 0xffffffff || g.Length < 0 || g.Length > 0xffffffff {
			return "", NewOutOfBoundsError(fmt.Sprintf("placement %s beyond 32-bit LBA range", g))
		}
		p.Start = uint32(g.Start)
		p.Size = uint32(g.Length)
		p.ComputeCHS()
		return id, nil
	case *gpt.Table:
		p := table.FindByGUID(id)
		if p == nil {
			return "", NewNotFoundError(id)
		}
		g := rewrite(p.Geom())
		if g.Start < 0 || g.Length < 1 {
			return "", NewOutOfBoundsError(fmt.Sprintf("placement %s invalid", g))
		}
		p.SetGeom(g)
		return id, nil
	default:
		return "", fmt.Errorf("unsupported table kind %s", t.Type())
	}
}

func (op SetFlag) apply(t part.Table) (string, error) {
	switch table := t.(type) {
	case *mbr.Table:
		if op.Flag != part.FlagBoot {
			return "", part.NewUnrepresentableLayoutError("mbr",
				fmt.Sprintf("flag %s not representable in an MBR entry", op.Flag))
		}
		slot, err := mbrSlot(table, op.ID)
		if err != nil {
			return "", err
		}
		table.Partitions[slot].Bootable = op.On
		return op.ID, nil
	case *gpt.Table:
		p := table.FindByGUID(op.ID)
		if p == nil {
			return "", NewNotFoundError(op.ID)
		}
		setGPTFlag(p, op.Flag, op.On)
		return op.ID, nil
	default:
		return "", fmt.Errorf("unsupported table kind %s", t.Type())
	}
}

func (op Rename) apply(t part.Table) (string, error) {
	switch table := t.(type) {
	case *mbr.Table:
		return "", part.NewUnrepresentableLayoutError("mbr", "MBR entries cannot carry a name")
	case *gpt.Table:
		p := table.FindByGUID(op.ID)
		if p == nil {
			return "", NewNotFoundError(op.ID)
		}
		p.Name = op.Name
		return op.ID, nil
	default:
		return "", fmt.Errorf("unsupported table kind %s", t.Type())
	}
}

// mbrSlot resolves an MBR partition ID, which is its slot number as a
// string, to a populated slot index.
func mbrSlot(t *mbr.Table, id string) (int, error) {
	n, err := strconv.Atoi(id)
	if err != nil || n < 1 || n > len(t.Partitions) {
		return 0, NewNotFoundError(id)
	}
	p := t.Partitions[n-1]
	if p == nil || p.Type == mbr.Empty {
		return 0, NewNotFoundError(id)
	}
	return n - 1, nil
}

func parseMBRType(s string) (mbr.Type, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid MBR partition type %q: %w", s, err)
	}
	return mbr.Type(v), nil
}

func parseGPTType(s string) (gpt.Type, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid GPT partition type GUID %q: %w", s, err)
	}
	return gpt.Type(strings.ToUpper(u.String())), nil
}

func setGPTFlag(p *gpt.Partition, f part.Flag, on bool) {
	var bit uint64
	switch f {
	case part.FlagBoot:
		bit = gpt.AttrLegacyBIOSBootable
	case part.FlagRequired:
		bit = gpt.AttrPlatformRequired
	case part.FlagReadOnly:
		bit = gpt.AttrReadOnly
	case part.FlagHidden:
		bit = gpt.AttrHidden
	case part.FlagNoAutomount:
		bit = gpt.AttrNoAutomount
	}
	if on {
		p.Attributes |= bit
	} else {
		p.Attributes &^= bit
	}
}

func (op Create) String() string {
	return fmt.Sprintf("create start=%d length=%d type=%s", op.Start, op.Length, op.Type)
}

func (op Delete) String() string {
	return fmt.Sprintf("delete %s", op.ID)
}

func (op Resize) String() string {
	return fmt.Sprintf("resize %s to %d sectors", op.ID, op.NewLength)
}

func (op Move) String() string {
	return fmt.Sprintf("move %s to sector %d", op.ID, op.NewStart)
}

func (op SetFlag) String() string {
	return fmt.Sprintf("set flag %s=%t on %s", op.Flag, op.On, op.ID)
}

func (op Rename) String() string {
	return fmt.Sprintf("rename %s to %q", op.ID, op.Name)
}
