package testhelper

type sectorReader func(start, count int64) ([]byte, error)
type sectorWriter func(start int64, b []byte) (int, error)

// StoreImpl implements github.com/partfs/go-partfs/bytestore.Store,
// used for testing to enable stubbing out byte stores
type StoreImpl struct {
	Reader  sectorReader
	Writer  sectorWriter
	Sectors int64
	Sector  int
}

func (s *StoreImpl) ReadSectors(start, count int64) ([]byte, error) {
	return s.Reader(start, count)
}

func (s *StoreImpl) WriteSectors(start int64, b []byte) error {
	_, err := s.Writer(start, b)
	return err
}

func (s *StoreImpl) SectorSize() int {
	if s.Sector == 0 {
		return 512
	}
	return s.Sector
}

func (s *StoreImpl) PhysicalSectorSize() int {
	return s.SectorSize()
}

func (s *StoreImpl) TotalSectors() int64 {
	return s.Sectors
}

func (s *StoreImpl) Sync() error {
	return nil
}

func (s *StoreImpl) Close() error {
	return nil
}
