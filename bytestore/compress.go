package bytestore

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// magic numbers at the start of compressed image containers
var (
	xzMagic  = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	lz4Magic = []byte{0x04, 0x22, 0x4d, 0x18}
)

// OpenImage opens a disk image as a Store, transparently decompressing
// xz- and lz4-compressed images into a read-only memory store. Plain images
// are opened as a FileStore.
//
// Compressed images cannot be written in place, so the returned store is
// read-only; parse and query work as usual, commit does not.
func OpenImage(pathName string, readOnly bool, sectorSize int) (Store, error) {
	f, err := os.Open(pathName)
	if err != nil {
		return nil, fmt.Errorf("could not open image %s: %w", pathName, err)
	}
	magic := make([]byte, 6)
	n, err := f.ReadAt(magic, 0)
	_ = f.Close()
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("could not read image header of %s: %w", pathName, err)
	}
	magic = magic[:n]

	switch {
	case bytes.HasPrefix(magic, xzMagic), bytes.HasPrefix(magic, lz4Magic):
		return openCompressed(pathName, sectorSize)
	default:
		return OpenFile(pathName, readOnly, sectorSize, sectorSize)
	}
}

func openCompressed(pathName string, sectorSize int) (Store, error) {
	if sectorSize <= 0 {
		sectorSize = DefaultSectorSize
	}
	f, err := os.Open(pathName)
	if err != nil {
		return nil, fmt.Errorf("could not open image %s: %w", pathName, err)
	}
	defer f.Close()

	magic := make([]byte, 6)
	if _, err := io.ReadFull(f, magic); err != nil {
		return nil, fmt.Errorf("could not read image header of %s: %w", pathName, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("could not rewind %s: %w", pathName, err)
	}

	var r io.Reader
	switch {
	case bytes.HasPrefix(magic, xzMagic):
		r, err = xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("could not open xz stream in %s: %w", pathName, err)
		}
	case bytes.HasPrefix(magic, lz4Magic):
		r = lz4.NewReader(f)
	default:
		return nil, fmt.Errorf("image %s is not a recognized compressed format", pathName)
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not decompress image %s: %w", pathName, err)
	}
	if len(b)%sectorSize != 0 {
		return nil, fmt.Errorf("decompressed image %s is %d bytes, not a whole number of %d-byte sectors", pathName, len(b), sectorSize)
	}
	return NewMemStoreFrom(b, sectorSize, true)
}
