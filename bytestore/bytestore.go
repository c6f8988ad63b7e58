// Package bytestore provides sector-addressed access to the byte sequence
// backing a disk, whether a plain image file, a block device, or an
// in-memory buffer. All reads and writes are whole sectors; the store is
// the only place the engine touches persistent bytes.
package bytestore

import (
	"errors"
	"fmt"
)

// DefaultSectorSize is assumed when the backing medium cannot report its
// logical sector size, per convention for disk images.
const DefaultSectorSize = 512

var (
	// ErrReadOnly write attempted on a store opened read-only
	ErrReadOnly = errors.New("store is read-only")
	// ErrClosed operation on a closed store
	ErrClosed = errors.New("store is closed")
)

// Store is a fixed-size sector-addressed byte sequence.
//
// WriteSectors must be atomic per call at whatever granularity the
// underlying medium guarantees; the engine orders its writes so that a torn
// multi-call sequence is still recoverable.
type Store interface {
	// ReadSectors reads count sectors beginning at sector start.
	ReadSectors(start, count int64) ([]byte, error)
	// WriteSectors writes b, which must be a whole number of sectors,
	// beginning at sector start.
	WriteSectors(start int64, b []byte) error
	// SectorSize is the logical sector size in bytes.
	SectorSize() int
	// PhysicalSectorSize is the physical sector size in bytes.
	PhysicalSectorSize() int
	// TotalSectors is the size of the store in logical sectors.
	TotalSectors() int64
	// Sync flushes any buffered writes to the medium.
	Sync() error
	Close() error
}

// IoError wraps a read or write failure from the backing medium. The
// underlying error is preserved verbatim for errors.Is/As.
type IoError struct {
	Op     string
	Sector int64
	Err    error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("I/O failure on %s at sector %d: %v", e.Op, e.Sector, e.Err)
}

func (e *IoError) Unwrap() error {
	return e.Err
}

func NewIoError(op string, sector int64, err error) *IoError {
	return &IoError{Op: op, Sector: sector, Err: err}
}

// checkRange validates that a sector run lies within the store and, for
// writes, that the byte slice is whole sectors.
func checkRange(s Store, start, count int64) error {
	if start < 0 || count < 0 {
		return fmt.Errorf("negative sector range %d+%d", start, count)
	}
	if start+count > s.TotalSectors() {
		return fmt.Errorf("sector range %d+%d beyond end of store (%d sectors)", start, count, s.TotalSectors())
	}
	return nil
}

func checkWrite(s Store, start int64, b []byte) (int64, error) {
	ss := s.SectorSize()
	if len(b)%ss != 0 {
		return 0, fmt.Errorf("write of %d bytes is not a whole number of %d-byte sectors", len(b), ss)
	}
	count := int64(len(b) / ss)
	return count, checkRange(s, start, count)
}
