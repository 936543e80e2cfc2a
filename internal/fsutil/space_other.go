//go:build !unix

package fsutil

import "errors"

// ErrFreeSpaceUnsupported is returned where free space cannot be queried.
var ErrFreeSpaceUnsupported = errors.New("free space query not supported on this platform")

func FreeSpace(dir string) (uint64, error) {
	return 0, ErrFreeSpaceUnsupported
}
