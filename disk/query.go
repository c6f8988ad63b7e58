package disk

import (
	"sort"

	"github.com/partfs/go-partfs/geometry"
	"github.com/partfs/go-partfs/partition"
	"github.com/partfs/go-partfs/partition/mbr"
	"github.com/partfs/go-partfs/partition/part"
)

// PartitionInfo is one row of the partition listing: the table entry plus
// derived byte sizes and the filesystem hint.
type PartitionInfo struct {
	part.Entry
	// SizeBytes is the partition length in bytes.
	SizeBytes int64
	// FilesystemHint is a best-effort guess at the filesystem inside the
	// partition, from magic bytes only. Empty when nothing is recognized.
	// Never authoritative.
	FilesystemHint string
}

// Summary is the one-shot description of a disk.
type Summary struct {
	LogicalSectorSize   int
	PhysicalSectorSize  int
	TotalSectors        int64
	SizeBytes           int64
	TableKind           partition.Kind
	TableUUID           string
	PartitionCount      int
	FreeSectors         int64
	RecoveredFromBackup bool
}

// ListPartitions returns the partitions of the last-committed table in
// start order, including read-only logical partitions found in an MBR
// extended chain. A disk with no table lists nothing.
func (d *Disk) ListPartitions() ([]PartitionInfo, error) {
	t := d.Table()
	if t == nil {
		return nil, nil
	}
	entries := t.Entries()
	if m, ok := t.(*mbr.Table); ok {
		logical, err := mbr.ReadLogical(m, d.store)
		if err != nil {
			return nil, err
		}
		entries = append(entries, logical...)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Geom.Start < entries[j].Geom.Start })

	infos := make([]PartitionInfo, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, PartitionInfo{
			Entry:          e,
			SizeBytes:      e.Geom.Length * int64(d.LogicalSectorSize),
			FilesystemHint: detectFilesystem(d.store, e.Geom),
		})
	}
	return infos, nil
}

// FreeSpaceGaps returns the maximal runs of unpartitioned sectors within
// the table's usable range, in start order. Adjacent partitions produce no
// gap. A disk with no table is one single gap.
func (d *Disk) FreeSpaceGaps() ([]geometry.Geom, error) {
	t := d.Table()
	if t == nil {
		return []geometry.Geom{{Start: 0, Length: d.TotalSectors()}}, nil
	}
	usable := t.UsableRange(d.TotalSectors())

	entries := t.Entries()
	geoms := make([]geometry.Geom, 0, len(entries))
	for _, e := range entries {
		geoms = append(geoms, e.Geom)
	}
	sort.Slice(geoms, func(i, j int) bool { return geoms[i].Start < geoms[j].Start })

	var gaps []geometry.Geom
	cursor := usable.Start
	for _, g := range geoms {
		if g.Start > cursor {
			gaps = append(gaps, geometry.Geom{Start: cursor, Length: g.Start - cursor})
		}
		if next := g.End() + 1; next > cursor {
			cursor = next
		}
	}
	if cursor <= usable.End() {
		gaps = append(gaps, geometry.Geom{Start: cursor, Length: usable.End() - cursor + 1})
	}
	return gaps, nil
}

// Summary returns the disk description external tooling renders.
func (d *Disk) Summary() (Summary, error) {
	s := Summary{
		LogicalSectorSize:  d.LogicalSectorSize,
		PhysicalSectorSize: d.PhysicalSectorSize,
		TotalSectors:       d.TotalSectors(),
		SizeBytes:          d.Size,
		TableKind:          d.Kind(),
	}
	t := d.Table()
	if t == nil {
		s.FreeSectors = d.TotalSectors()
		return s, nil
	}
	s.TableUUID = t.UUID()
	s.PartitionCount = len(t.Entries())
	s.RecoveredFromBackup = recoveredFromBackup(t)
	gaps, err := d.FreeSpaceGaps()
	if err != nil {
		return s, err
	}
	for _, g := range gaps {
		s.FreeSectors += g.Length
	}
	return s, nil
}
