package testhelper

import (
	"fmt"
	"strings"
)

type byteDiff struct {
	offset int
	a, b   byte
}

func diffByteSlices(a, b []byte) []byteDiff {
	size := len(a)
	if len(b) > size {
		size = len(b)
	}
	var diffs []byteDiff
	for i := 0; i < size; i++ {
		switch {
		case i >= len(a):
			diffs = append(diffs, byteDiff{offset: i, b: b[i]})
		case i >= len(b):
			diffs = append(diffs, byteDiff{offset: i, a: a[i]})
		case a[i] != b[i]:
			diffs = append(diffs, byteDiff{offset: i, a: a[i], b: b[i]})
		}
	}
	return diffs
}

// DumpByteSlice renders b as xxd-style rows of bytesPerRow bytes, each
// prefixed with its hex offset. When mark is non-nil only rows containing
// a marked offset are rendered, and marked bytes are highlighted.
func DumpByteSlice(b []byte, bytesPerRow int, mark map[int]bool) string {
	var out strings.Builder
	for row := 0; row*bytesPerRow < len(b); row++ {
		first := row * bytesPerRow
		last := first + bytesPerRow
		if last > len(b) {
			last = len(b)
		}
		if mark != nil {
			keep := false
			for i := first; i < last; i++ {
				if mark[i] {
					keep = true
					break
				}
			}
			if !keep {
				continue
			}
		}
		fmt.Fprintf(&out, "%08x:", first)
		for i := first; i < last; i++ {
			if (i-first)%8 == 0 {
				out.WriteByte(' ')
			}
			if mark != nil && mark[i] {
				fmt.Fprintf(&out, " \033[1m\033[31m%02x\033[0m", b[i])
			} else {
				fmt.Fprintf(&out, " %02x", b[i])
			}
		}
		out.WriteByte('\n')
	}
	return out.String()
}

// DumpByteSlicesWithDiffs compares a and b byte by byte. When they differ
// it returns true plus an xxd-style dump of both, restricted to the rows
// that contain differences, with the differing bytes highlighted.
func DumpByteSlicesWithDiffs(a, b []byte, bytesPerRow int) (bool, string) {
	diffs := diffByteSlices(a, b)
	if len(diffs) == 0 {
		return false, ""
	}
	mark := make(map[int]bool, len(diffs))
	for _, d := range diffs {
		mark[d.offset] = true
	}
	return true, DumpByteSlice(a, bytesPerRow, mark) + "\n" + DumpByteSlice(b, bytesPerRow, mark)
}
