package batchio

import "fmt"

// WriteEntry describes one write operation in a batch: Length bytes from
// Buffer land at absolute file offset Offset. The buffer is caller-owned and
// read-only for the duration of the call; it must stay valid and unmoved
// until the batch completes, because the kernel holds its raw address.
type WriteEntry struct {
	Buffer []byte
	Length int
	Offset int64
}

// ReadEntry describes one read operation in a batch: Size bytes at absolute
// file offset Offset are read into Buffer. The buffer is caller-owned and
// sized by the caller; the engine only borrows it for the call's duration
// and writes into it as a side effect.
type ReadEntry struct {
	Buffer []byte
	Size   int
	Offset int64
}

// validateWrites checks every entry before any ring is created. A Go module
// cannot hand unchecked pointers to the kernel the way the caller-trusting C
// ABI of a native engine can.
func validateWrites(entries []WriteEntry) error {
	if len(entries) > MaxBatchEntries {
		return NewError(opBatchWrite, StageEntries, ErrCodeInvalidEntry,
			fmt.Sprintf("batch of %d entries exceeds the ring cap of %d", len(entries), MaxBatchEntries))
	}
	for i, e := range entries {
		if e.Length < 0 || e.Length > len(e.Buffer) {
			return NewError(opBatchWrite, StageEntries, ErrCodeInvalidEntry,
				fmt.Sprintf("entry %d: length %d outside buffer of %d bytes", i, e.Length, len(e.Buffer)))
		}
		if e.Offset < 0 {
			return NewError(opBatchWrite, StageEntries, ErrCodeInvalidEntry,
				fmt.Sprintf("entry %d: negative offset %d", i, e.Offset))
		}
	}
	return nil
}

func validateReads(entries []ReadEntry) error {
	if len(entries) > MaxBatchEntries {
		return NewError(opBatchRead, StageEntries, ErrCodeInvalidEntry,
			fmt.Sprintf("batch of %d entries exceeds the ring cap of %d", len(entries), MaxBatchEntries))
	}
	for i, e := range entries {
		if e.Size < 0 || e.Size > len(e.Buffer) {
			return NewError(opBatchRead, StageEntries, ErrCodeInvalidEntry,
				fmt.Sprintf("entry %d: size %d outside buffer of %d bytes", i, e.Size, len(e.Buffer)))
		}
		if e.Offset < 0 {
			return NewError(opBatchRead, StageEntries, ErrCodeInvalidEntry,
				fmt.Sprintf("entry %d: negative offset %d", i, e.Offset))
		}
	}
	return nil
}
