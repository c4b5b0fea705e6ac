//go:build linux

package keyfile

import "golang.org/x/sys/unix"

// fadviseSequential hints a front-to-back read of the file. Best-effort.
func fadviseSequential(fd int, offset, length int64) {
	_ = unix.Fadvise(fd, offset, length, unix.FADV_SEQUENTIAL)
}
