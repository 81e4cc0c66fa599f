//go:build linux

package batchio

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarzdb/batchio/internal/uring"
)

// requireIOUring skips when the kernel or sandbox forbids io_uring.
func requireIOUring(t *testing.T) {
	t.Helper()
	s, err := uring.Open(1)
	if err != nil {
		if errors.Is(err, syscall.ENOSYS) || errors.Is(err, syscall.EPERM) {
			t.Skipf("io_uring unavailable: %v", err)
		}
		t.Fatalf("io_uring probe failed: %v", err)
	}
	s.Close()
}

func scratchFile(t *testing.T) *os.File {
	t.Helper()
	f, err := os.OpenFile(filepath.Join(t.TempDir(), "data"), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestBatchWriteThenReadBack(t *testing.T) {
	requireIOUring(t)
	f := scratchFile(t)

	err := BatchWrite([]WriteEntry{
		{Buffer: []byte("AB"), Length: 2, Offset: 0},
		{Buffer: []byte("CD"), Length: 2, Offset: 2},
	}, f)
	require.NoError(t, err)

	got, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Equal(t, "ABCD", string(got))
}

func TestBatchRead(t *testing.T) {
	requireIOUring(t)
	f := scratchFile(t)
	require.NoError(t, os.WriteFile(f.Name(), []byte("WXYZ"), 0o644))

	entries := []ReadEntry{
		{Buffer: make([]byte, 2), Size: 2, Offset: 0},
		{Buffer: make([]byte, 2), Size: 2, Offset: 2},
	}
	require.NoError(t, BatchRead(entries, f))

	assert.Equal(t, "WX", string(entries[0].Buffer))
	assert.Equal(t, "YZ", string(entries[1].Buffer))
}

func TestBatchWriteSparseOffsets(t *testing.T) {
	requireIOUring(t)
	f := scratchFile(t)

	payload := []byte("tail")
	err := BatchWrite([]WriteEntry{
		{Buffer: payload, Length: len(payload), Offset: 4096},
	}, f)
	require.NoError(t, err)

	buf := make([]byte, len(payload))
	_, err = f.ReadAt(buf, 4096)
	require.NoError(t, err)
	assert.Equal(t, payload, buf)
}

func TestBatchWriteEmptyStillFlushes(t *testing.T) {
	requireIOUring(t)
	f := scratchFile(t)

	// A zero-length batch degenerates to the durability barrier alone.
	require.NoError(t, BatchWrite(nil, f))
}

func TestBatchReadEmptyIsNoop(t *testing.T) {
	// No kernel involvement at all, so no io_uring probe needed.
	f := scratchFile(t)
	require.NoError(t, BatchRead(nil, f))
}

func TestBatchReadFailureIsAtomic(t *testing.T) {
	requireIOUring(t)

	path := filepath.Join(t.TempDir(), "wronly")
	require.NoError(t, os.WriteFile(path, []byte("WXYZ"), 0o644))
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	require.NoError(t, err)
	defer f.Close()

	entries := []ReadEntry{
		{Buffer: make([]byte, 2), Size: 2, Offset: 0},
		{Buffer: make([]byte, 2), Size: 2, Offset: 2},
	}
	err = BatchRead(entries, f)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOpFailed)

	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, StageCompletion, be.Stage)
	assert.EqualValues(t, -int32(syscall.EBADF), be.Result)
	assert.GreaterOrEqual(t, be.Index, 0)
	assert.Less(t, be.Index, len(entries))
}

func TestBatchWriteRetryAfterFailure(t *testing.T) {
	requireIOUring(t)

	path := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(path, []byte("....keep"), 0o644))

	entries := []WriteEntry{{Buffer: []byte("ABCD"), Length: 4, Offset: 0}}

	// First attempt against a read-only descriptor fails whole.
	ro, err := os.Open(path)
	require.NoError(t, err)
	err = BatchWrite(entries, ro)
	ro.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOpFailed)

	// Reissuing the identical batch after fixing the fault succeeds and
	// leaves bytes outside the batch's offsets untouched.
	rw, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	defer rw.Close()
	require.NoError(t, BatchWrite(entries, rw))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ABCDkeep", string(got))
}

func TestBatchWriteInvalidEntryBeforeRing(t *testing.T) {
	f := scratchFile(t)

	err := BatchWrite([]WriteEntry{{Buffer: []byte("ab"), Length: 5, Offset: 0}}, f)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidEntry)
	assert.True(t, IsStage(err, StageEntries))
}

func TestBatchWriteWithDeadline(t *testing.T) {
	requireIOUring(t)
	f := scratchFile(t)

	err := BatchWrite([]WriteEntry{
		{Buffer: []byte("deadline"), Length: 8, Offset: 0},
	}, f, WithDeadline(5*time.Second))
	require.NoError(t, err)
}

func TestBatchMetricsRecorded(t *testing.T) {
	requireIOUring(t)
	f := scratchFile(t)
	m := NewMetrics()

	require.NoError(t, BatchWrite([]WriteEntry{
		{Buffer: []byte("AB"), Length: 2, Offset: 0},
		{Buffer: []byte("CD"), Length: 2, Offset: 2},
	}, f, WithMetrics(m)))

	entries := SplitRead(4, 2, 0)
	require.NoError(t, BatchRead(entries, f, WithMetrics(m)))

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.WriteBatches)
	assert.Equal(t, uint64(1), snap.ReadBatches)
	assert.Equal(t, uint64(2), snap.WriteOps)
	assert.Equal(t, uint64(2), snap.ReadOps)
	assert.Equal(t, uint64(1), snap.FlushOps)
	assert.Equal(t, uint64(4), snap.WriteBytes)
	assert.Equal(t, uint64(4), snap.ReadBytes)
}

func TestFailingBatchesLeakNoDescriptors(t *testing.T) {
	requireIOUring(t)

	path := filepath.Join(t.TempDir(), "wronly")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	require.NoError(t, err)
	defer f.Close()

	entries := []ReadEntry{{Buffer: make([]byte, 4), Size: 4, Offset: 0}}

	// Warm up once so lazily created runtime fds don't skew the count.
	_ = BatchRead(entries, f)

	before := openFDCount(t)
	for i := 0; i < 32; i++ {
		require.Error(t, BatchRead(entries, f))
	}
	after := openFDCount(t)

	assert.Equal(t, before, after, "ring descriptors leaked across failing batches")
}

func openFDCount(t *testing.T) int {
	t.Helper()
	fds, err := os.ReadDir("/proc/self/fd")
	require.NoError(t, err)
	return len(fds)
}

func TestBatchWriteLargeBatch(t *testing.T) {
	requireIOUring(t)
	f := scratchFile(t)

	const records, stride = 512, 64
	data := make([]byte, records*stride)
	for i := range data {
		data[i] = byte(i % 251)
	}

	require.NoError(t, BatchWrite(SplitWrite(data, stride, 0), f))

	got, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func BenchmarkBatchWrite(b *testing.B) {
	s, err := uring.Open(1)
	if err != nil {
		b.Skipf("io_uring unavailable: %v", err)
	}
	s.Close()

	f, err := os.CreateTemp(b.TempDir(), "bench")
	if err != nil {
		b.Fatal(err)
	}
	defer f.Close()

	data := make([]byte, 64*1024)
	entries := SplitWrite(data, 4096, 0)

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := BatchWrite(entries, f); err != nil {
			b.Fatal(err)
		}
	}
}
