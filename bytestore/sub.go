package bytestore

import "fmt"

// SubStore is a window onto a parent Store, e.g. the sector run of a single
// partition. Sector 0 of the window maps to sector offset of the parent.
type SubStore struct {
	parent  Store
	offset  int64
	sectors int64
}

// Sub returns a window of the parent store covering sectors
// [offset, offset+sectors).
func Sub(parent Store, offset, sectors int64) (*SubStore, error) {
	if offset < 0 || sectors < 0 || offset+sectors > parent.TotalSectors() {
		return nil, fmt.Errorf("window %d+%d beyond end of parent store (%d sectors)", offset, sectors, parent.TotalSectors())
	}
	return &SubStore{parent: parent, offset: offset, sectors: sectors}, nil
}

// Store interface guard
var _ Store = (*SubStore)(nil)

func (s *SubStore) ReadSectors(start, count int64) ([]byte, error) {
	if err := checkRange(s, start, count); err != nil {
		return nil, err
	}
	return s.parent.ReadSectors(s.offset+start, count)
}

func (s *SubStore) WriteSectors(start int64, b []byte) error {
	if _, err := checkWrite(s, start, b); err != nil {
		return err
	}
	return s.parent.WriteSectors(s.offset+start, b)
}

func (s *SubStore) SectorSize() int {
	return s.parent.SectorSize()
}

func (s *SubStore) PhysicalSectorSize() int {
	return s.parent.PhysicalSectorSize()
}

func (s *SubStore) TotalSectors() int64 {
	return s.sectors
}

func (s *SubStore) Sync() error {
	return s.parent.Sync()
}

// Close is a no-op; the parent store owns the underlying medium.
func (s *SubStore) Close() error {
	return nil
}
