// Package partfs reads, edits and writes MBR and GPT partition tables,
// whether on block devices in /dev or on disk images. It manipulates the
// table bytes directly and never mounts anything.
//
// Open a disk, inspect it, and edit it through a transaction:
//
//	d, err := partfs.Open("/tmp/disk.img")
//	parts, err := d.ListPartitions()
//
//	tx, err := txn.Begin(d)
//	err = tx.Stage(edit.Create{Start: 2048, Length: 204800, Type: string(gpt.LinuxFilesystem)})
//	err = tx.Commit()
package partfs

import (
	"errors"
	"fmt"
	"os"

	"github.com/partfs/go-partfs/bytestore"
	"github.com/partfs/go-partfs/disk"
)

// OpenOption adjusts how Open treats the device.
type OpenOption func(*openConfig)

type openConfig struct {
	readOnly   bool
	sectorSize int
}

// WithReadOnly opens the device read-only. Transactions on the resulting
// disk fail at commit time.
func WithReadOnly() OpenOption {
	return func(c *openConfig) { c.readOnly = true }
}

// WithSectorSize overrides the logical sector size for disk images, whose
// size cannot be asked of the kernel. The default is 512.
func WithSectorSize(size int) OpenOption {
	return func(c *openConfig) { c.sectorSize = size }
}

// Open opens a block device or disk image at the given path and probes it
// for a partition table. Images compressed with xz or lz4 are transparently
// decompressed and opened read-only. The device must exist.
func Open(device string, opts ...OpenOption) (*disk.Disk, error) {
	if device == "" {
		return nil, errors.New("must pass device name")
	}
	cfg := openConfig{sectorSize: bytestore.DefaultSectorSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	f, err := os.Open(device)
	if err != nil {
		return nil, fmt.Errorf("provided device %s does not exist", device)
	}
	deviceType, err := disk.DetermineDeviceType(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	var st bytestore.Store
	if deviceType == disk.DeviceTypeBlockDevice {
		st, err = openBlockDevice(f, device, cfg)
	} else {
		_ = f.Close()
		st, err = bytestore.OpenImage(device, cfg.readOnly, cfg.sectorSize)
	}
	if err != nil {
		return nil, err
	}
	return disk.New(st)
}

// Create creates a disk image of the given size in bytes and returns a
// handle with no partition table. The file must not already exist. Use
// txn.BeginNew to put a table on it.
func Create(device string, size int64, opts ...OpenOption) (*disk.Disk, error) {
	if device == "" {
		return nil, errors.New("must pass device name")
	}
	if size <= 0 {
		return nil, errors.New("must pass valid device size to create")
	}
	cfg := openConfig{sectorSize: bytestore.DefaultSectorSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	st, err := bytestore.CreateFile(device, size, cfg.sectorSize)
	if err != nil {
		return nil, err
	}
	return disk.New(st)
}

// openBlockDevice asks the kernel for the device's logical and physical
// sector sizes through the already-open probe handle, then reopens it as
// a store. The probe handle is closed either way.
func openBlockDevice(f *os.File, device string, cfg openConfig) (bytestore.Store, error) {
	logical, physical, err := getSectorSizes(f)
	closeErr := f.Close()
	if err != nil {
		return nil, fmt.Errorf("unable to get block sizes for device %s: %w", device, err)
	}
	if closeErr != nil {
		return nil, closeErr
	}
	return bytestore.OpenFile(device, cfg.readOnly, logical, physical)
}
