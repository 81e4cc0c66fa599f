// Package batchio is a batched asynchronous disk I/O engine built on
// io_uring. Given an open file and a list of read or write operations, it
// submits the whole batch to the kernel in one pass, waits for every
// completion, and reports a single success or failure for the batch.
//
// Write batches carry a trailing durability barrier (a whole-file fsync), so
// a nil return from BatchWrite means every byte of the batch is on stable
// storage. The batch is atomic from the caller's perspective: on any failure
// the ring is torn down and no partial-success state is reported.
//
// One ring serves exactly one call; no ring, submission, or completion state
// is shared across calls or goroutines. The target file is owned by the
// caller, which must keep it valid (no concurrent truncation) for the
// duration of each call.
package batchio

const (
	// MaxBatchEntries is the largest batch a single call accepts. It leaves
	// one slot of headroom under the kernel's io_uring_setup entry cap for
	// the write barrier.
	MaxBatchEntries = 32767

	// DefaultChunkEntries is a conservative chunk size for callers that
	// split oversized batches before handing them to BatchWrite or
	// BatchRead. Rings are a process-wide bounded resource; smaller rings
	// keep setup cheap and leave room for other users.
	DefaultChunkEntries = 3000
)

const (
	opBatchWrite = "batch_write"
	opBatchRead  = "batch_read"
)
