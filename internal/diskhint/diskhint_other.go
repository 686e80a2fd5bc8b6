//go:build !linux && !darwin

package diskhint

import "os"

func preallocate(file *os.File, size int64) error {
	return file.Truncate(size)
}

func adviseSequentialRead(fd int, offset, length int64) {
	// No-op: no portable fadvise on this platform.
}

func prefaultForWrite(data []byte) {
	// No-op: no portable prefault primitive on this platform.
}
