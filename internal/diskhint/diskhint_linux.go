//go:build linux

package diskhint

import (
	"os"

	"golang.org/x/sys/unix"
)

// madvPopulateWrite was added in Linux 5.14. On older kernels madvise
// returns EINVAL, which PrefaultForWrite ignores.
const madvPopulateWrite = 23

func preallocate(file *os.File, size int64) error {
	if err := unix.Fallocate(int(file.Fd()), 0, 0, size); err != nil {
		return unix.Ftruncate(int(file.Fd()), size)
	}
	return unix.Ftruncate(int(file.Fd()), size)
}

func adviseSequentialRead(fd int, offset, length int64) {
	_ = unix.Fadvise(fd, offset, length, unix.FADV_SEQUENTIAL)
}

func prefaultForWrite(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, madvPopulateWrite)
}
