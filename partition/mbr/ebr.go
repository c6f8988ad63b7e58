package mbr

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/partfs/go-partfs/bytestore"
	"github.com/partfs/go-partfs/geometry"
	"github.com/partfs/go-partfs/partition/part"
)

// maxEBRLinks caps the number of EBR sectors visited so a corrupt or
// cyclic chain cannot loop forever, even when its EBRs carry no logical
// entries.
const maxEBRLinks = 128

// ReadLogical walks the EBR chain of the table's extended partition, if
// any, and returns the logical partitions found. The walk is read-only:
// logical partitions are surfaced for queries but cannot be edited.
//
// Each EBR sits at the start of its link: entry 0 describes the logical
// partition relative to the EBR's own sector, entry 1 links to the next EBR
// relative to the extended partition's start.
func ReadLogical(t *Table, st bytestore.Store) ([]part.Entry, error) {
	var extended *Partition
	for _, p := range t.Partitions {
		if p != nil && p.Type.isExtended() {
			extended = p
			break
		}
	}
	if extended == nil {
		return nil, nil
	}

	var (
		entries  []part.Entry
		extStart = int64(extended.Start)
		next     = extStart
		number   = PrimarySlots + 1
	)
	for visited := 0; next != 0; visited++ {
		if visited >= maxEBRLinks {
			return entries, part.NewCorruptTableError("mbr",
				fmt.Sprintf("EBR chain exceeds %d links", maxEBRLinks))
		}
		b, err := st.ReadSectors(next, 1)
		if err != nil {
			return nil, fmt.Errorf("error reading EBR at sector %d: %w", next, err)
		}
		if !bytes.Equal(b[signatureStart:signatureStart+2], signature) {
			return entries, part.NewCorruptTableError("mbr",
				fmt.Sprintf("EBR at sector %d has invalid signature", next))
		}

		logical := b[partitionStart : partitionStart+partitionEntrySize]
		link := b[partitionStart+partitionEntrySize : partitionStart+2*partitionEntrySize]

		if Type(logical[4]) != Empty {
			start := next + int64(binary.LittleEndian.Uint32(logical[8:12]))
			size := int64(binary.LittleEndian.Uint32(logical[12:16]))
			entries = append(entries, part.Entry{
				Number:  number,
				ID:      fmt.Sprintf("%d", number),
				Geom:    geometry.Geom{Start: start, Length: size},
				Type:    fmt.Sprintf("%02x", logical[4]),
				Logical: true,
			})
			number++
		}

		if Type(link[4]) == Empty {
			break
		}
		offset := int64(binary.LittleEndian.Uint32(link[8:12]))
		if offset == 0 {
			break
		}
		next = extStart + offset
		if !extended.Geom().ContainsSector(next) {
			return entries, part.NewCorruptTableError("mbr",
				fmt.Sprintf("EBR link points to sector %d outside the extended partition", next))
		}
	}
	return entries, nil
}
