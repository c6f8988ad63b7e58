package bytestore

import (
	"errors"
	"fmt"
	"os"
)

// FileStore is a Store backed by a disk image file or a block device node.
type FileStore struct {
	f            *os.File
	readOnly     bool
	closed       bool
	sectorSize   int
	physical     int
	totalSectors int64
}

// OpenFile opens an existing image file or device node as a Store. The
// logical and physical sector sizes must be supplied by the caller; use
// DefaultSectorSize for plain image files.
func OpenFile(pathName string, readOnly bool, sectorSize, physicalSectorSize int) (*FileStore, error) {
	if pathName == "" {
		return nil, errors.New("must pass device or file name")
	}
	if sectorSize <= 0 {
		sectorSize = DefaultSectorSize
	}
	if physicalSectorSize <= 0 {
		physicalSectorSize = sectorSize
	}

	openMode := os.O_RDONLY
	if !readOnly {
		openMode = os.O_RDWR
	}
	f, err := os.OpenFile(pathName, openMode, 0o600)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", pathName, err)
	}
	size, err := mediumSize(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("could not get size of %s: %w", pathName, err)
	}
	return &FileStore{
		f:            f,
		readOnly:     readOnly,
		sectorSize:   sectorSize,
		physical:     physicalSectorSize,
		totalSectors: size / int64(sectorSize),
	}, nil
}

// CreateFile creates a new sparse image file of the given size in bytes.
// The file must not already exist.
func CreateFile(pathName string, size int64, sectorSize int) (*FileStore, error) {
	if pathName == "" {
		return nil, errors.New("must pass file name")
	}
	if size <= 0 {
		return nil, errors.New("must pass valid size to create")
	}
	if sectorSize <= 0 {
		sectorSize = DefaultSectorSize
	}
	f, err := os.OpenFile(pathName, os.O_RDWR|os.O_EXCL|os.O_CREATE, 0o666)
	if err != nil {
		return nil, fmt.Errorf("could not create %s: %w", pathName, err)
	}
	if err := f.Truncate(size); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("could not expand %s to size %d: %w", pathName, size, err)
	}
	return &FileStore{
		f:            f,
		sectorSize:   sectorSize,
		physical:     sectorSize,
		totalSectors: size / int64(sectorSize),
	}, nil
}

// mediumSize returns the size in bytes of a regular file. Block devices
// report zero from Stat; Seek to the end works for both.
func mediumSize(f *os.File) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if info.Mode().IsRegular() && info.Size() > 0 {
		return info.Size(), nil
	}
	return f.Seek(0, 2)
}

// Store interface guard
var _ Store = (*FileStore)(nil)

func (s *FileStore) ReadSectors(start, count int64) ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if err := checkRange(s, start, count); err != nil {
		return nil, err
	}
	b := make([]byte, count*int64(s.sectorSize))
	read, err := s.f.ReadAt(b, start*int64(s.sectorSize))
	if err != nil {
		return nil, NewIoError("read", start, err)
	}
	if read != len(b) {
		return nil, NewIoError("read", start, fmt.Errorf("read %d bytes instead of %d", read, len(b)))
	}
	return b, nil
}

func (s *FileStore) WriteSectors(start int64, b []byte) error {
	if s.closed {
		return ErrClosed
	}
	if s.readOnly {
		return ErrReadOnly
	}
	if _, err := checkWrite(s, start, b); err != nil {
		return err
	}
	written, err := s.f.WriteAt(b, start*int64(s.sectorSize))
	if err != nil {
		return NewIoError("write", start, err)
	}
	if written != len(b) {
		return NewIoError("write", start, fmt.Errorf("wrote %d bytes instead of %d", written, len(b)))
	}
	return nil
}

func (s *FileStore) SectorSize() int {
	return s.sectorSize
}

func (s *FileStore) PhysicalSectorSize() int {
	return s.physical
}

func (s *FileStore) TotalSectors() int64 {
	return s.totalSectors
}

func (s *FileStore) Sync() error {
	if s.closed {
		return ErrClosed
	}
	return s.f.Sync()
}

func (s *FileStore) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.f.Close()
}

// Sys exposes the underlying os.File for OS-specific calls, e.g. sector
// size ioctls on block devices.
func (s *FileStore) Sys() *os.File {
	return s.f
}
