//go:build !linux

package batchio

import "os"

// io_uring is Linux-only. These stubs keep the module compiling on other
// platforms; there is no fallback implementation.

func BatchWrite(entries []WriteEntry, file *os.File, opts ...Option) error {
	return NewError(opBatchWrite, StageInit, ErrCodeUnsupported, "io_uring requires linux")
}

func BatchRead(entries []ReadEntry, file *os.File, opts ...Option) error {
	return NewError(opBatchRead, StageInit, ErrCodeUnsupported, "io_uring requires linux")
}
