//go:build darwin

package diskhint

import (
	"os"

	"golang.org/x/sys/unix"
)

func preallocate(file *os.File, size int64) error {
	fst := unix.Fstore_t{
		Flags:   unix.F_ALLOCATEALL,
		Posmode: unix.F_PEOFPOSMODE,
		Offset:  0,
		Length:  size,
	}
	if err := unix.FcntlFstore(file.Fd(), unix.F_PREALLOCATE, &fst); err != nil {
		return unix.Ftruncate(int(file.Fd()), size)
	}
	return unix.Ftruncate(int(file.Fd()), size)
}

func adviseSequentialRead(fd int, offset, length int64) {
	// FADV_SEQUENTIAL has no darwin equivalent exposed by x/sys/unix; no-op.
}

func prefaultForWrite(data []byte) {
	// No efficient bulk prefault primitive on darwin; no-op.
}
