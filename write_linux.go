//go:build linux

package batchio

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/quarzdb/batchio/internal/logging"
	"github.com/quarzdb/batchio/internal/uring"
)

// BatchWrite submits every entry to the kernel in one pass, appends a
// whole-file durability barrier, and blocks until all completions have
// arrived. A nil return means every write and the trailing flush completed
// with a non-negative result code: the batch is durable. On any failure the
// ring is released before returning and no partial success is reported; the
// caller may re-issue the identical batch, since writes are range-addressed
// and therefore idempotent.
//
// Entry buffers must stay valid and unmoved until the call returns. A
// zero-length batch is legal and degenerates to a single flush.
func BatchWrite(entries []WriteEntry, file *os.File, opts ...Option) error {
	o := applyOptions(opts)
	start := time.Now()

	err := batchWrite(entries, file, &o)

	if o.metrics != nil {
		var bytes uint64
		for _, e := range entries {
			bytes += uint64(e.Length)
		}
		o.metrics.RecordWriteBatch(len(entries), bytes, time.Since(start), err == nil)
	}
	return err
}

func batchWrite(entries []WriteEntry, file *os.File, o *callOptions) error {
	if err := validateWrites(entries); err != nil {
		return err
	}

	logger := logging.Default().WithBatch(opBatchWrite, len(entries))
	fd := int(file.Fd())

	// One slot per entry plus one for the barrier.
	session, err := uring.Open(uint32(len(entries)) + 1)
	if err != nil {
		logger.WithError(err).Error("ring init failed")
		return WrapError(opBatchWrite, StageInit, err)
	}
	// Buffers must outlive ring teardown: the kernel holds raw addresses
	// until the ring is gone. Defers run in reverse order, so KeepAlive
	// fires after Close.
	defer runtime.KeepAlive(file)
	defer runtime.KeepAlive(entries)
	defer session.Close()

	for i, e := range entries {
		if !session.PushWrite(fd, e.Buffer, uint32(e.Length), e.Offset, uint64(i)) {
			logger.Error("submission queue exhausted", "index", i)
			return NewError(opBatchWrite, StageEnqueue, ErrCodeQueueFull,
				fmt.Sprintf("no submission slot for entry %d", i))
		}
	}
	// The barrier's user data sits one past the last entry index.
	if !session.PushFsync(fd, uint64(len(entries))) {
		logger.Error("submission queue exhausted", "index", len(entries))
		return NewError(opBatchWrite, StageEnqueue, ErrCodeQueueFull,
			"no submission slot for the durability barrier")
	}

	expected := uint(len(entries)) + 1
	submitted, err := session.Submit()
	if err != nil {
		logger.WithError(err).Error("batch submit rejected")
		return WrapError(opBatchWrite, StageSubmit, err)
	}
	if submitted != expected {
		logger.Error("batch submit short", "submitted", submitted, "expected", expected)
		return NewError(opBatchWrite, StageSubmit, ErrCodeSubmit,
			fmt.Sprintf("kernel consumed %d of %d submissions", submitted, expected))
	}
	logger.Debug("batch submitted", "submissions", submitted)

	// Completions arrive in arbitrary order; count arrivals and inspect
	// result codes. First failure aborts the reap and the deferred Close
	// lets the kernel reclaim whatever is still in flight.
	deadline := o.waitDeadline()
	for done := uint(0); done < expected; done++ {
		c, err := session.Wait(deadline)
		if err != nil {
			logger.WithError(err).Error("completion wait failed", "reaped", done)
			return WrapError(opBatchWrite, StageCompletion, err)
		}
		if c.Res < 0 {
			logger.Error("write operation failed", "index", c.UserData, "res", c.Res)
			return NewOpFailedError(opBatchWrite, int(c.UserData), c.Res)
		}
	}

	logger.Debug("batch durable")
	return nil
}
