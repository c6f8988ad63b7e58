//go:build !linux && !darwin

package partfs

import (
	"errors"
	"os"
)

func getSectorSizes(f *os.File) (int, int, error) {
	return 0, 0, errors.New("block devices not supported on this platform")
}
