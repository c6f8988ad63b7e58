package disk

import (
	"bytes"
	"encoding/binary"

	"github.com/partfs/go-partfs/bytestore"
	"github.com/partfs/go-partfs/geometry"
)

// detectFilesystem sniffs well-known superblock magics inside the given
// partition. It is a hint for display only and returns "" on any read
// error or unknown content.
func detectFilesystem(st bytestore.Store, g geometry.Geom) string {
	sub, err := bytestore.Sub(st, g.Start, g.Length)
	if err != nil {
		return ""
	}
	sectorSize := int64(sub.SectorSize())

	// ext2/3/4: superblock at byte 1024, magic 0xEF53 at offset 56.
	if b := readBytes(sub, 1024, 128); b != nil {
		if binary.LittleEndian.Uint16(b[56:58]) == 0xef53 {
			return extVariant(b)
		}
	}

	b := readBytes(sub, 0, sectorSize)
	if b == nil {
		return ""
	}
	switch {
	case bytes.Equal(b[3:11], []byte("NTFS    ")):
		return "ntfs"
	case bytes.Equal(b[0:4], []byte("XFSB")):
		return "xfs"
	case len(b) > 90 && bytes.Equal(b[82:90], []byte("FAT32   ")):
		return "fat32"
	case len(b) > 62 && bytes.Equal(b[54:62], []byte("FAT16   ")):
		return "fat16"
	case len(b) > 62 && bytes.Equal(b[54:62], []byte("FAT12   ")):
		return "fat12"
	}

	// btrfs: magic at byte 0x10040.
	if b := readBytes(sub, 0x10040, 8); b != nil && bytes.Equal(b, []byte("_BHRfS_M")) {
		return "btrfs"
	}

	// Linux swap: signature in the last 10 bytes of the first page.
	if b := readBytes(sub, 4096-10, 10); b != nil {
		if bytes.Equal(b, []byte("SWAPSPACE2")) || bytes.Equal(b, []byte("SWAP-SPACE")) {
			return "swap"
		}
	}
	return ""
}

func extVariant(sb []byte) string {
	// feature_incompat at offset 96; extents (0x40) means ext4,
	// has_journal in feature_compat (offset 92, 0x4) means ext3.
	incompat := binary.LittleEndian.Uint32(sb[96:100])
	compat := binary.LittleEndian.Uint32(sb[92:96])
	switch {
	case incompat&0x40 != 0:
		return "ext4"
	case compat&0x4 != 0:
		return "ext3"
	default:
		return "ext2"
	}
}

// readBytes reads length bytes at the given byte offset into the store, or
// nil when the range is unreadable or out of bounds.
func readBytes(st bytestore.Store, offset, length int64) []byte {
	sectorSize := int64(st.SectorSize())
	if offset+length > st.TotalSectors()*sectorSize {
		return nil
	}
	first := offset / sectorSize
	last := (offset + length - 1) / sectorSize
	b, err := st.ReadSectors(first, last-first+1)
	if err != nil {
		return nil
	}
	skip := offset % sectorSize
	return b[skip : skip+length]
}
