// Package partition probes a store for a partition table of any supported
// kind. The codecs live in the gpt and mbr subpackages; the shared types
// live in part.
package partition

import (
	"fmt"

	"github.com/partfs/go-partfs/bytestore"
	"github.com/partfs/go-partfs/partition/gpt"
	"github.com/partfs/go-partfs/partition/mbr"
	"github.com/partfs/go-partfs/partition/part"
)

// Kind is the partition table kind found on a disk.
type Kind string

const (
	KindNone Kind = ""
	KindMBR  Kind = "mbr"
	KindGPT  Kind = "gpt"
)

// Read probes the store for a partition table, trying GPT before MBR since
// every GPT disk also carries a protective MBR. A disk whose MBR is purely
// protective is a GPT disk whose headers failed to parse, not an MBR disk,
// so the GPT failure is surfaced. Returns the parsed table and its kind,
// or an error if no table of any kind parses.
func Read(st bytestore.Store) (part.Table, Kind, error) {
	gptTable, gptErr := gpt.Read(st)
	if gptErr == nil {
		return gptTable, KindGPT, nil
	}
	mbrTable, mbrErr := mbr.Read(st)
	if mbrErr == nil {
		if protectiveOnly(mbrTable) {
			return nil, KindNone, gptErr
		}
		return mbrTable, KindMBR, nil
	}
	return nil, KindNone, fmt.Errorf("unknown disk partition type: not GPT (%v), not MBR (%v)", gptErr, mbrErr)
}

// protectiveOnly reports whether every in-use entry of the MBR is the GPT
// protective type.
func protectiveOnly(t *mbr.Table) bool {
	inUse := 0
	for _, p := range t.Partitions {
		if p == nil || p.Type == mbr.Empty {
			continue
		}
		if p.Type != mbr.GPTProtective {
			return false
		}
		inUse++
	}
	return inUse > 0
}
