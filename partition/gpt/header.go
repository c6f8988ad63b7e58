package gpt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

const (
	headerSize     = 92
	efiSignature   = "EFI PART"
	efiRevision    = 0x00010000
	crcFieldOffset = 16
)

// header is the decoded 92-byte GPT header. The same structure serves the
// primary and the backup; they differ only in current/backup LBA and the
// entry array location.
type header struct {
	currentLBA    uint64
	backupLBA     uint64
	firstUsable   uint64
	lastUsable    uint64
	diskGUID      string
	entriesLBA    uint64
	entryCount    uint32
	entrySize     uint32
	entriesCRC    uint32
	headerCRC     uint32 // as read from disk; recomputed on serialize
}

// headerFromBytes decodes and validates one header sector: signature,
// declared size, and the CRC32 over the header with its CRC field zeroed.
func headerFromBytes(b []byte) (*header, error) {
	if len(b) < headerSize {
		return nil, fmt.Errorf("GPT header was %d bytes instead of at least %d", len(b), headerSize)
	}
	if string(b[0:8]) != efiSignature {
		return nil, fmt.Errorf("invalid EFI Signature %v", b[0:8])
	}
	if rev := binary.LittleEndian.Uint32(b[8:12]); rev != efiRevision {
		return nil, fmt.Errorf("invalid EFI Revision %08x", rev)
	}
	declaredSize := binary.LittleEndian.Uint32(b[12:16])
	if declaredSize < headerSize || int(declaredSize) > len(b) {
		return nil, fmt.Errorf("invalid GPT header size %d", declaredSize)
	}
	if !bytes.Equal(b[20:24], []byte{0, 0, 0, 0}) {
		return nil, fmt.Errorf("invalid GPT header, reserved bytes not zero")
	}
	declaredCRC := binary.LittleEndian.Uint32(b[crcFieldOffset : crcFieldOffset+4])
	scratch := make([]byte, declaredSize)
	copy(scratch, b[:declaredSize])
	binary.LittleEndian.PutUint32(scratch[crcFieldOffset:crcFieldOffset+4], 0)
	if computed := crc32.ChecksumIEEE(scratch); computed != declaredCRC {
		return nil, fmt.Errorf("invalid header CRC32, expected %08x computed %08x", declaredCRC, computed)
	}

	diskGUID, err := guidFromBytes(b[56:72])
	if err != nil {
		return nil, fmt.Errorf("invalid disk GUID: %w", err)
	}
	h := &header{
		currentLBA:  binary.LittleEndian.Uint64(b[24:32]),
		backupLBA:   binary.LittleEndian.Uint64(b[32:40]),
		firstUsable: binary.LittleEndian.Uint64(b[40:48]),
		lastUsable:  binary.LittleEndian.Uint64(b[48:56]),
		diskGUID:    diskGUID,
		entriesLBA:  binary.LittleEndian.Uint64(b[72:80]),
		entryCount:  binary.LittleEndian.Uint32(b[80:84]),
		entrySize:   binary.LittleEndian.Uint32(b[84:88]),
		entriesCRC:  binary.LittleEndian.Uint32(b[88:92]),
		headerCRC:   declaredCRC,
	}
	if h.entrySize < minPartitionEntrySize {
		return nil, fmt.Errorf("partition entry size %d below minimum %d", h.entrySize, minPartitionEntrySize)
	}
	if h.entryCount == 0 {
		return nil, fmt.Errorf("GPT header declares zero partition entries")
	}
	return h, nil
}

// toBytes encodes the header into one sector, computing a fresh CRC32.
func (h *header) toBytes(sectorSize int) ([]byte, error) {
	b := make([]byte, sectorSize)
	copy(b[0:8], efiSignature)
	binary.LittleEndian.PutUint32(b[8:12], efiRevision)
	binary.LittleEndian.PutUint32(b[12:16], headerSize)
	// CRC32 at 16:20 computed below over the zeroed field
	binary.LittleEndian.PutUint64(b[24:32], h.currentLBA)
	binary.LittleEndian.PutUint64(b[32:40], h.backupLBA)
	binary.LittleEndian.PutUint64(b[40:48], h.firstUsable)
	binary.LittleEndian.PutUint64(b[48:56], h.lastUsable)
	guid, err := guidToBytes(h.diskGUID)
	if err != nil {
		return nil, fmt.Errorf("invalid disk GUID %s: %w", h.diskGUID, err)
	}
	copy(b[56:72], guid)
	binary.LittleEndian.PutUint64(b[72:80], h.entriesLBA)
	binary.LittleEndian.PutUint32(b[80:84], h.entryCount)
	binary.LittleEndian.PutUint32(b[84:88], h.entrySize)
	binary.LittleEndian.PutUint32(b[88:92], h.entriesCRC)
	crc := crc32.ChecksumIEEE(b[:headerSize])
	binary.LittleEndian.PutUint32(b[crcFieldOffset:crcFieldOffset+4], crc)
	h.headerCRC = crc
	return b, nil
}

// checkEntriesCRC validates the entry array bytes against the header.
func (h *header) checkEntriesCRC(array []byte) error {
	if computed := crc32.ChecksumIEEE(array); computed != h.entriesCRC {
		return fmt.Errorf("invalid partition array CRC32, expected %08x computed %08x", h.entriesCRC, computed)
	}
	return nil
}

// arraySectors is the size of the entry array in whole sectors.
func (h *header) arraySectors(sectorSize int) int64 {
	arrayBytes := int64(h.entryCount) * int64(h.entrySize)
	return (arrayBytes + int64(sectorSize) - 1) / int64(sectorSize)
}

// equal compares the layout-relevant fields of two headers, used to check
// that primary and backup describe the same table.
func (h *header) equal(other *header) bool {
	return h.firstUsable == other.firstUsable &&
		h.lastUsable == other.lastUsable &&
		h.diskGUID == other.diskGUID &&
		h.entryCount == other.entryCount &&
		h.entrySize == other.entrySize &&
		h.entriesCRC == other.entriesCRC
}
