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

// BatchRead submits every entry to the kernel in one pass and blocks until
// all completions have arrived. On a nil return each entry's buffer holds up
// to Size bytes from its offset; short reads are not distinguished from full
// reads. Reads carry no durability barrier and no ordering guarantee between
// each other: one read's data must not be expected to reflect another's side
// effects within the same batch.
//
// Entry buffers must stay valid and unmoved until the call returns. A
// zero-length batch returns nil without touching the kernel.
func BatchRead(entries []ReadEntry, file *os.File, opts ...Option) error {
	o := applyOptions(opts)
	start := time.Now()

	err := batchRead(entries, file, &o)

	if o.metrics != nil {
		var bytes uint64
		for _, e := range entries {
			bytes += uint64(e.Size)
		}
		o.metrics.RecordReadBatch(len(entries), bytes, time.Since(start), err == nil)
	}
	return err
}

func batchRead(entries []ReadEntry, file *os.File, o *callOptions) error {
	if err := validateReads(entries); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	logger := logging.Default().WithBatch(opBatchRead, len(entries))
	fd := int(file.Fd())

	session, err := uring.Open(uint32(len(entries)))
	if err != nil {
		logger.WithError(err).Error("ring init failed")
		return WrapError(opBatchRead, StageInit, err)
	}
	defer runtime.KeepAlive(file)
	defer runtime.KeepAlive(entries)
	defer session.Close()

	for i, e := range entries {
		if !session.PushRead(fd, e.Buffer, uint32(e.Size), e.Offset, uint64(i)) {
			logger.Error("submission queue exhausted", "index", i)
			return NewError(opBatchRead, StageEnqueue, ErrCodeQueueFull,
				fmt.Sprintf("no submission slot for entry %d", i))
		}
	}

	expected := uint(len(entries))
	submitted, err := session.Submit()
	if err != nil {
		logger.WithError(err).Error("batch submit rejected")
		return WrapError(opBatchRead, StageSubmit, err)
	}
	if submitted != expected {
		logger.Error("batch submit short", "submitted", submitted, "expected", expected)
		return NewError(opBatchRead, StageSubmit, ErrCodeSubmit,
			fmt.Sprintf("kernel consumed %d of %d submissions", submitted, expected))
	}
	logger.Debug("batch submitted", "submissions", submitted)

	deadline := o.waitDeadline()
	for done := uint(0); done < expected; done++ {
		c, err := session.Wait(deadline)
		if err != nil {
			logger.WithError(err).Error("completion wait failed", "reaped", done)
			return WrapError(opBatchRead, StageCompletion, err)
		}
		if c.Res < 0 {
			logger.Error("read operation failed", "index", c.UserData, "res", c.Res)
			return NewOpFailedError(opBatchRead, int(c.UserData), c.Res)
		}
	}

	logger.Debug("batch complete")
	return nil
}
