// Package gpt implements the GUID Partition Table: primary header at LBA 1,
// backup header at the last LBA, CRC32-protected header and entry array,
// and a protective MBR at sector 0. Parsing falls back to the backup copy
// when the primary fails its checksums; serializing writes the backup
// before the primary so a crash mid-write always leaves a recoverable
// table.
package gpt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/google/uuid"

	"github.com/partfs/go-partfs/bytestore"
	"github.com/partfs/go-partfs/geometry"
	"github.com/partfs/go-partfs/partition/part"
)

const (
	defaultEntryCount = 128
	defaultEntrySize  = 128
	protectiveType    = 0xee
)

// Table is a GPT partition table. Partitions holds the in-use entries only;
// the remaining array slots serialize as zeroes.
type Table struct {
	Partitions         []*Partition
	LogicalSectorSize  int
	PhysicalSectorSize int
	// GUID identifies the disk and survives edits.
	GUID string
	// ProtectiveMBR records whether sector 0 carried a protective MBR.
	ProtectiveMBR      bool
	partitionEntrySize uint32
	partitionArraySize int
	primaryHeader      uint64
	secondaryHeader    uint64
	firstDataSector    uint64
	lastDataSector     uint64
	// sector 0 preserved verbatim so an unedited disk round-trips
	protectiveMBRBytes []byte
	recovered          bool
}

// New returns an empty GPT for a disk of the given size, with a freshly
// generated disk GUID and the standard 128x128 entry array.
func New(diskSectors int64, logicalSectorSize, physicalSectorSize int) (*Table, error) {
	arraySectors := int64(defaultEntryCount*defaultEntrySize) / int64(logicalSectorSize)
	// header sector + array on both ends of the disk
	minSectors := 2*(1+arraySectors) + 1
	if diskSectors < minSectors {
		return nil, fmt.Errorf("disk of %d sectors too small for a GPT, need at least %d", diskSectors, minSectors)
	}
	return &Table{
		LogicalSectorSize:  logicalSectorSize,
		PhysicalSectorSize: physicalSectorSize,
		GUID:               strings.ToUpper(uuid.New().String()),
		ProtectiveMBR:      true,
		partitionEntrySize: defaultEntrySize,
		partitionArraySize: defaultEntryCount,
		primaryHeader:      1,
		secondaryHeader:    uint64(diskSectors - 1),
		firstDataSector:    uint64(2 + arraySectors),
		lastDataSector:     uint64(diskSectors - 2 - arraySectors),
	}, nil
}

// Type the table kind
func (t *Table) Type() string {
	return "gpt"
}

// UUID the disk GUID
func (t *Table) UUID() string {
	return t.GUID
}

// Recovered reports whether the table was parsed from the backup header
// because the primary failed validation.
func (t *Table) Recovered() bool {
	return t.recovered
}

// Equal compares geometry, identity and entries of two tables.
func (t *Table) Equal(other *Table) bool {
	if other == nil {
		return false
	}
	match := t.LogicalSectorSize == other.LogicalSectorSize &&
		t.PhysicalSectorSize == other.PhysicalSectorSize &&
		strings.EqualFold(t.GUID, other.GUID) &&
		t.partitionEntrySize == other.partitionEntrySize &&
		t.partitionArraySize == other.partitionArraySize &&
		t.primaryHeader == other.primaryHeader &&
		t.secondaryHeader == other.secondaryHeader &&
		t.firstDataSector == other.firstDataSector &&
		t.lastDataSector == other.lastDataSector &&
		len(t.Partitions) == len(other.Partitions)
	if !match {
		return false
	}
	for i := range t.Partitions {
		if !t.Partitions[i].Equal(other.Partitions[i]) {
			return false
		}
	}
	return true
}

// Read reads the GPT from the store: protective MBR at sector 0, primary
// header at LBA 1 and its entry array. If the primary header or array fails
// validation the backup at the last LBA is tried, and on success the table
// is marked recovered.
func Read(st bytestore.Store) (*Table, error) {
	diskSectors := st.TotalSectors()
	sector0, err := st.ReadSectors(0, 1)
	if err != nil {
		return nil, fmt.Errorf("error reading GPT from store: %w", err)
	}

	primary, primaryErr := readAt(st, 1)
	if primaryErr == nil {
		primary.finishRead(sector0)
		if err := primary.Verify(diskSectors); err != nil {
			return nil, err
		}
		return primary, nil
	}

	backup, backupErr := readAt(st, diskSectors-1)
	if backupErr != nil {
		return nil, part.NewCorruptTableError("gpt",
			fmt.Sprintf("primary header invalid (%v) and backup header invalid (%v)", primaryErr, backupErr))
	}
	backup.finishRead(sector0)
	backup.recovered = true
	if err := backup.Verify(diskSectors); err != nil {
		return nil, err
	}
	return backup, nil
}

// ReadBackup parses only the backup header at the last LBA and its entry
// array, ignoring the primary. Callers use it to check the backup copy on
// its own, before the primary has been brought up to date.
func ReadBackup(st bytestore.Store) (*Table, error) {
	sector0, err := st.ReadSectors(0, 1)
	if err != nil {
		return nil, fmt.Errorf("error reading GPT from store: %w", err)
	}
	t, err := readAt(st, st.TotalSectors()-1)
	if err != nil {
		return nil, err
	}
	t.finishRead(sector0)
	return t, nil
}

// readAt parses the header at the given LBA plus the entry array it
// declares, validating both CRCs.
func readAt(st bytestore.Store, headerLBA int64) (*Table, error) {
	b, err := st.ReadSectors(headerLBA, 1)
	if err != nil {
		return nil, fmt.Errorf("error reading GPT header at sector %d: %w", headerLBA, err)
	}
	h, err := headerFromBytes(b)
	if err != nil {
		return nil, err
	}
	if int64(h.currentLBA) != headerLBA {
		return nil, fmt.Errorf("GPT header at sector %d declares current LBA %d", headerLBA, h.currentLBA)
	}
	arraySectors := h.arraySectors(st.SectorSize())
	array, err := st.ReadSectors(int64(h.entriesLBA), arraySectors)
	if err != nil {
		return nil, fmt.Errorf("error reading GPT partition array at sector %d: %w", h.entriesLBA, err)
	}
	array = array[:int64(h.entryCount)*int64(h.entrySize)]
	if err := h.checkEntriesCRC(array); err != nil {
		return nil, err
	}
	return tableFromHeader(h, array, st.SectorSize(), st.PhysicalSectorSize())
}

// tableFromHeader builds a table from a validated header and entry array.
func tableFromHeader(h *header, array []byte, logicalSectorSize, physicalSectorSize int) (*Table, error) {
	t := &Table{
		LogicalSectorSize:  logicalSectorSize,
		PhysicalSectorSize: physicalSectorSize,
		GUID:               h.diskGUID,
		partitionEntrySize: h.entrySize,
		partitionArraySize: int(h.entryCount),
	}
	if h.currentLBA < h.backupLBA {
		t.primaryHeader, t.secondaryHeader = h.currentLBA, h.backupLBA
	} else {
		t.primaryHeader, t.secondaryHeader = h.backupLBA, h.currentLBA
	}
	t.firstDataSector = h.firstUsable
	t.lastDataSector = h.lastUsable
	for i := 0; i < int(h.entryCount); i++ {
		entryBytes := array[i*int(h.entrySize) : (i+1)*int(h.entrySize)]
		p, err := partitionFromBytes(entryBytes, i+1, logicalSectorSize, physicalSectorSize)
		if err != nil {
			return nil, fmt.Errorf("invalid partition entry %d: %w", i+1, err)
		}
		if p != nil {
			t.Partitions = append(t.Partitions, p)
		}
	}
	return t, nil
}

// finishRead records what sector 0 held, for round-tripping and for the
// ProtectiveMBR flag.
func (t *Table) finishRead(sector0 []byte) {
	t.protectiveMBRBytes = bytes.Clone(sector0)
	t.ProtectiveMBR = len(sector0) >= 512 && sector0[446+4] == protectiveType &&
		sector0[510] == 0x55 && sector0[511] == 0xaa
}

// tableFromBytes parses a table from an in-memory image prefix: protective
// MBR sector, primary header sector, then the entry array.
func tableFromBytes(b []byte, logicalSectorSize, physicalSectorSize int) (*Table, error) {
	if len(b) < 2*logicalSectorSize {
		return nil, fmt.Errorf("data for partition was %d bytes instead of expected at least %d", len(b), 2*logicalSectorSize)
	}
	h, err := headerFromBytes(b[logicalSectorSize : 2*logicalSectorSize])
	if err != nil {
		return nil, err
	}
	arrayStart := int64(h.entriesLBA) * int64(logicalSectorSize)
	arrayLen := int64(h.entryCount) * int64(h.entrySize)
	if arrayStart+arrayLen > int64(len(b)) {
		return nil, fmt.Errorf("data for partition was %d bytes, too short for the %d-byte partition array", len(b), arrayLen)
	}
	array := b[arrayStart : arrayStart+arrayLen]
	if err := h.checkEntriesCRC(array); err != nil {
		return nil, err
	}
	t, err := tableFromHeader(h, array, logicalSectorSize, physicalSectorSize)
	if err != nil {
		return nil, err
	}
	t.finishRead(b[:logicalSectorSize])
	return t, nil
}

// toPartitionArrayBytes lays the in-use entries into a zero-filled array of
// partitionArraySize slots. Entry indexes must be unique and within the
// array.
func (t *Table) toPartitionArrayBytes() ([]byte, error) {
	b := make([]byte, int64(t.partitionEntrySize)*int64(t.partitionArraySize))
	seen := make(map[int]bool)
	for _, p := range t.Partitions {
		if p == nil {
			continue
		}
		if p.Index < 1 || p.Index > t.partitionArraySize {
			return nil, fmt.Errorf("partition index %d outside array of %d entries", p.Index, t.partitionArraySize)
		}
		if seen[p.Index] {
			return nil, fmt.Errorf("duplicate partition index %d", p.Index)
		}
		seen[p.Index] = true
		entryBytes, err := p.toBytes(t.partitionEntrySize)
		if err != nil {
			return nil, err
		}
		copy(b[(p.Index-1)*int(t.partitionEntrySize):], entryBytes)
	}
	return b, nil
}

// protectiveMBR returns the sector 0 contents: the preserved bytes when the
// table was parsed from disk, or a canonical protective MBR for a fresh
// table.
func (t *Table) protectiveMBR(diskSectors int64) []byte {
	if len(t.protectiveMBRBytes) == t.LogicalSectorSize {
		return bytes.Clone(t.protectiveMBRBytes)
	}
	b := make([]byte, t.LogicalSectorSize)
	entry := b[446:462]
	// CHS start 0/2/0, type 0xEE, CHS end clamped
	entry[1] = 0x00
	entry[2] = 0x02
	entry[3] = 0x00
	entry[4] = protectiveType
	entry[5] = 0xfe
	entry[6] = 0xff
	entry[7] = 0xff
	binary.LittleEndian.PutUint32(entry[8:12], 1)
	size := diskSectors - 1
	if size > 0xffffffff {
		size = 0xffffffff
	}
	binary.LittleEndian.PutUint32(entry[12:16], uint32(size))
	b[510] = 0x55
	b[511] = 0xaa
	return b
}

// headerFor builds the header for the primary or the secondary location.
func (t *Table) headerFor(primary bool, arrayCRC uint32) *header {
	h := &header{
		firstUsable: t.firstDataSector,
		lastUsable:  t.lastDataSector,
		diskGUID:    t.GUID,
		entryCount:  uint32(t.partitionArraySize),
		entrySize:   t.partitionEntrySize,
		entriesCRC:  arrayCRC,
	}
	if primary {
		h.currentLBA = t.primaryHeader
		h.backupLBA = t.secondaryHeader
		h.entriesLBA = t.primaryHeader + 1
	} else {
		h.currentLBA = t.secondaryHeader
		h.backupLBA = t.primaryHeader
		h.entriesLBA = t.secondaryHeader - uint64(h.arraySectors(t.LogicalSectorSize))
	}
	return h
}

// Write serializes the table to the store. Write order is the crash-safety
// invariant: backup array, backup header, then primary array, primary
// header, so that an interruption leaves either the old primary intact or a
// valid backup to recover from. The protective MBR goes first; it never
// changes across edits of an existing table.
func (t *Table) Write(st bytestore.Store) error {
	if err := t.Verify(st.TotalSectors()); err != nil {
		return err
	}
	if err := t.WriteBackup(st); err != nil {
		return err
	}
	return t.WritePrimary(st)
}

// WriteBackup writes only the backup partition array and backup header at
// the end of the disk. Until WritePrimary follows, firmware still sees the
// previous table; a crash in between is recoverable from either copy.
func (t *Table) WriteBackup(st bytestore.Store) error {
	array, err := t.toPartitionArrayBytes()
	if err != nil {
		return err
	}
	arrayCRC := crc32.ChecksumIEEE(array)
	arrayPadded := padToSectors(array, t.LogicalSectorSize)

	secondary := t.headerFor(false, arrayCRC)
	secondaryBytes, err := secondary.toBytes(t.LogicalSectorSize)
	if err != nil {
		return err
	}
	if err := st.WriteSectors(int64(secondary.entriesLBA), arrayPadded); err != nil {
		return fmt.Errorf("error writing backup partition array to store: %w", err)
	}
	if err := st.WriteSectors(int64(secondary.currentLBA), secondaryBytes); err != nil {
		return fmt.Errorf("error writing backup GPT header to store: %w", err)
	}
	return nil
}

// WritePrimary writes the protective MBR, the primary partition array, and
// the primary header in that order, the header going down last so the new
// table only becomes live once everything under it is on disk.
func (t *Table) WritePrimary(st bytestore.Store) error {
	array, err := t.toPartitionArrayBytes()
	if err != nil {
		return err
	}
	arrayCRC := crc32.ChecksumIEEE(array)
	arrayPadded := padToSectors(array, t.LogicalSectorSize)

	if err := st.WriteSectors(0, t.protectiveMBR(st.TotalSectors())); err != nil {
		return fmt.Errorf("error writing protective MBR to store: %w", err)
	}

	primary := t.headerFor(true, arrayCRC)
	primaryBytes, err := primary.toBytes(t.LogicalSectorSize)
	if err != nil {
		return err
	}
	if err := st.WriteSectors(int64(primary.entriesLBA), arrayPadded); err != nil {
		return fmt.Errorf("error writing primary partition array to store: %w", err)
	}
	if err := st.WriteSectors(int64(primary.currentLBA), primaryBytes); err != nil {
		return fmt.Errorf("error writing primary GPT header to store: %w", err)
	}
	return nil
}

// Verify checks the table's own geometry against the disk size.
func (t *Table) Verify(diskSectors int64) error {
	if t.primaryHeader != 1 {
		return part.NewCorruptTableError("gpt", fmt.Sprintf("primary header at sector %d instead of 1", t.primaryHeader))
	}
	if int64(t.secondaryHeader) != diskSectors-1 {
		return part.NewCorruptTableError("gpt",
			fmt.Sprintf("backup header at sector %d instead of last sector %d", t.secondaryHeader, diskSectors-1))
	}
	if t.firstDataSector > t.lastDataSector || int64(t.lastDataSector) >= diskSectors {
		return part.NewCorruptTableError("gpt",
			fmt.Sprintf("usable range %d-%d invalid for disk of %d sectors", t.firstDataSector, t.lastDataSector, diskSectors))
	}
	for _, p := range t.Partitions {
		if p.Start < t.firstDataSector || p.End > t.lastDataSector {
			return part.NewCorruptTableError("gpt",
				fmt.Sprintf("partition %d (sectors %d-%d) outside usable range %d-%d",
					p.Index, p.Start, p.End, t.firstDataSector, t.lastDataSector))
		}
	}
	return nil
}

// Entries returns the in-use entries in array order.
func (t *Table) Entries() []part.Entry {
	var entries []part.Entry
	for _, p := range t.Partitions {
		entries = append(entries, p.entry())
	}
	return entries
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() part.Table {
	c := *t
	c.Partitions = nil
	for _, p := range t.Partitions {
		c.Partitions = append(c.Partitions, p.clone())
	}
	c.protectiveMBRBytes = bytes.Clone(t.protectiveMBRBytes)
	return &c
}

// MaxPartitions the entry array capacity
func (t *Table) MaxPartitions() int {
	return t.partitionArraySize
}

// UsableRange the data area between the two header/array regions
func (t *Table) UsableRange(diskSectors int64) geometry.Geom {
	return geometry.Geom{
		Start:  int64(t.firstDataSector),
		Length: int64(t.lastDataSector) - int64(t.firstDataSector) + 1,
	}
}

// CreatePartition adds an entry at the lowest free index with a freshly
// generated partition GUID.
func (t *Table) CreatePartition(g geometry.Geom, typ Type, name string) (*Partition, error) {
	used := make(map[int]bool)
	for _, p := range t.Partitions {
		used[p.Index] = true
	}
	index := 0
	for i := 1; i <= t.partitionArraySize; i++ {
		if !used[i] {
			index = i
			break
		}
	}
	if index == 0 {
		return nil, part.NewUnrepresentableLayoutError("gpt",
			fmt.Sprintf("all %d entries in use", t.partitionArraySize))
	}
	p := &Partition{
		Index:              index,
		Start:              uint64(g.Start),
		End:                uint64(g.End()),
		Size:               uint64(g.Length) * uint64(t.LogicalSectorSize),
		Type:               typ,
		Name:               name,
		GUID:               strings.ToUpper(uuid.New().String()),
		logicalSectorSize:  t.LogicalSectorSize,
		physicalSectorSize: t.PhysicalSectorSize,
	}
	t.Partitions = append(t.Partitions, p)
	return p, nil
}

// FindByGUID returns the partition with the given GUID, or nil.
func (t *Table) FindByGUID(id string) *Partition {
	for _, p := range t.Partitions {
		if strings.EqualFold(p.GUID, id) {
			return p
		}
	}
	return nil
}

// DeletePartition removes the entry with the given GUID. Other entries keep
// their indexes and GUIDs.
func (t *Table) DeletePartition(id string) bool {
	for i, p := range t.Partitions {
		if strings.EqualFold(p.GUID, id) {
			t.Partitions = append(t.Partitions[:i], t.Partitions[i+1:]...)
			return true
		}
	}
	return false
}

// SetGeom updates a partition's sector run, keeping Size consistent.
func (p *Partition) SetGeom(g geometry.Geom) {
	p.Start = uint64(g.Start)
	p.End = uint64(g.End())
	p.Size = uint64(g.Length) * uint64(p.logicalSectorSize)
}

func padToSectors(b []byte, sectorSize int) []byte {
	if rem := len(b) % sectorSize; rem != 0 {
		b = append(b, make([]byte, sectorSize-rem)...)
	}
	return b
}

// part.Table interface guard
var _ part.Table = (*Table)(nil)
