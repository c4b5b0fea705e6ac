//go:build !linux && !darwin

package keyfile

import "os"

// fallocateFile sets the file length. Disk blocks may stay unreserved.
func fallocateFile(file *os.File, size int64) error {
	return file.Truncate(size)
}
