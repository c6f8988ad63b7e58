package bytestore

import "fmt"

// MemStore is an in-memory Store, used in place of real disk images in
// tests.
type MemStore struct {
	b          []byte
	sectorSize int
	readOnly   bool
}

// NewMemStore returns a zero-filled in-memory store of the given geometry.
func NewMemStore(totalSectors int64, sectorSize int) *MemStore {
	if sectorSize <= 0 {
		sectorSize = DefaultSectorSize
	}
	return &MemStore{
		b:          make([]byte, totalSectors*int64(sectorSize)),
		sectorSize: sectorSize,
	}
}

// NewMemStoreFrom wraps an existing byte slice, which is used directly and
// not copied. Its length must be a whole number of sectors.
func NewMemStoreFrom(b []byte, sectorSize int, readOnly bool) (*MemStore, error) {
	if sectorSize <= 0 {
		sectorSize = DefaultSectorSize
	}
	if len(b)%sectorSize != 0 {
		return nil, fmt.Errorf("buffer of %d bytes is not a whole number of %d-byte sectors", len(b), sectorSize)
	}
	return &MemStore{b: b, sectorSize: sectorSize, readOnly: readOnly}, nil
}

// Store interface guard
var _ Store = (*MemStore)(nil)

func (s *MemStore) ReadSectors(start, count int64) ([]byte, error) {
	if err := checkRange(s, start, count); err != nil {
		return nil, err
	}
	b := make([]byte, count*int64(s.sectorSize))
	copy(b, s.b[start*int64(s.sectorSize):])
	return b, nil
}

func (s *MemStore) WriteSectors(start int64, b []byte) error {
	if s.readOnly {
		return ErrReadOnly
	}
	if _, err := checkWrite(s, start, b); err != nil {
		return err
	}
	copy(s.b[start*int64(s.sectorSize):], b)
	return nil
}

func (s *MemStore) SectorSize() int {
	return s.sectorSize
}

func (s *MemStore) PhysicalSectorSize() int {
	return s.sectorSize
}

func (s *MemStore) TotalSectors() int64 {
	return int64(len(s.b)) / int64(s.sectorSize)
}

func (s *MemStore) Sync() error {
	return nil
}

func (s *MemStore) Close() error {
	return nil
}

// Bytes returns the backing slice without copying.
func (s *MemStore) Bytes() []byte {
	return s.b
}
