// Package diskhint gives the block codec best-effort OS hints about how a
// spill or merge file will be accessed. Every hint here is advisory: a
// failure to apply one never surfaces as an error, since the kernel is free
// to ignore it.
package diskhint

import "os"

// Preallocate reserves size bytes for file so that later sequential
// appends do not hit disk-full mid-write. On platforms without a native
// preallocation syscall it falls back to Truncate, which still fixes the
// logical file size but may not reserve physical blocks.
func Preallocate(file *os.File, size int64) error {
	return preallocate(file, size)
}

// AdviseSequentialRead hints that [offset, offset+length) of fd will be
// read sequentially, as the block-file reader does when concatenating
// block iterators across a spill file.
func AdviseSequentialRead(fd int, offset, length int64) {
	adviseSequentialRead(fd, offset, length)
}

// PrefaultForWrite asks the kernel to fault in pages of data for writing
// ahead of time, reducing page-fault stalls during the writer's block-sized
// sequential append.
func PrefaultForWrite(data []byte) {
	prefaultForWrite(data)
}
