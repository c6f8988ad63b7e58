package partfs

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// these constants should be part of "golang.org/x/sys/unix", but aren't, yet
const (
	dkiocGetBlockSize         = 0x40046418
	dkiocGetPhysicalBlockSize = 0x4004644d
)

// getSectorSizes asks the kernel for the logical and physical sector sizes
// of a block device.
func getSectorSizes(f *os.File) (int, int, error) {
	fd := int(f.Fd())
	logicalSectorSize, err := unix.IoctlGetInt(fd, dkiocGetBlockSize)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to get device logical sector size: %v", err)
	}
	physicalSectorSize, err := unix.IoctlGetInt(fd, dkiocGetPhysicalBlockSize)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to get device physical sector size: %v", err)
	}
	return logicalSectorSize, physicalSectorSize, nil
}
