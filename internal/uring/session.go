//go:build linux

// Package uring manages one io_uring submission/completion queue pair scoped
// to a single batch call.
package uring

import (
	"errors"
	"syscall"
	"time"
	"unsafe"

	"github.com/pawelgaczynski/giouring"
)

// Session owns one ring for the duration of exactly one batch call. It is not
// safe for concurrent use and must never be shared across calls or
// goroutines. Every path out of the owning call must end in Close.
type Session struct {
	ring   *giouring.Ring
	closed bool
}

// Completion is one kernel-reported result for a previously pushed
// submission. Res is the raw CQE result: a byte count for reads and writes,
// zero for fsync, negative errno on failure.
type Completion struct {
	UserData uint64
	Res      int32
}

// Open creates a ring with room for capacity submissions. The kernel rounds
// capacity up to the next power of two; callers size it to the exact number
// of submissions the batch will produce.
func Open(capacity uint32) (*Session, error) {
	ring, err := giouring.CreateRing(capacity)
	if err != nil {
		return nil, err
	}
	return &Session{ring: ring}, nil
}

// Close tears the ring down. Idempotent; the kernel reclaims any
// still-in-flight operations when the ring goes away.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.ring.QueueExit()
	return nil
}

// PushWrite populates one submission slot with a write of length bytes from
// buf at the given file offset. Returns false when no slot is available.
// The caller must keep buf alive and unmoved until the completion is reaped;
// the kernel holds a raw address, not a Go reference.
func (s *Session) PushWrite(fd int, buf []byte, length uint32, offset int64, userData uint64) bool {
	sqe := s.ring.GetSQE()
	if sqe == nil {
		return false
	}
	sqe.PrepareWrite(fd, bufAddr(buf), length, uint64(offset))
	sqe.SetData64(userData)
	return true
}

// PushRead populates one submission slot with a read of size bytes into buf
// at the given file offset. Returns false when no slot is available.
func (s *Session) PushRead(fd int, buf []byte, size uint32, offset int64, userData uint64) bool {
	sqe := s.ring.GetSQE()
	if sqe == nil {
		return false
	}
	sqe.PrepareRead(fd, bufAddr(buf), size, uint64(offset))
	sqe.SetData64(userData)
	return true
}

// PushFsync populates one submission slot with a whole-file flush. Data-only
// (fdatasync) semantics are deliberately not used: the durability barrier
// must persist metadata such as file size changes as well.
func (s *Session) PushFsync(fd int, userData uint64) bool {
	sqe := s.ring.GetSQE()
	if sqe == nil {
		return false
	}
	sqe.PrepareFsync(fd, 0)
	sqe.SetData64(userData)
	return true
}

// Submit hands every populated slot to the kernel in a single
// io_uring_enter call and returns the number of submissions consumed.
func (s *Session) Submit() (uint, error) {
	return s.ring.Submit()
}

// Wait blocks until one completion arrives and marks it seen. A zero
// deadline waits indefinitely. Interrupted waits are restarted; an expired
// deadline surfaces as ETIME.
func (s *Session) Wait(deadline time.Time) (Completion, error) {
	for {
		var (
			cqe *giouring.CompletionQueueEvent
			err error
		)
		if deadline.IsZero() {
			cqe, err = s.ring.WaitCQE()
		} else {
			remain := time.Until(deadline)
			if remain <= 0 {
				return Completion{}, syscall.ETIME
			}
			ts := syscall.NsecToTimespec(remain.Nanoseconds())
			cqe, err = s.ring.WaitCQETimeout(&ts)
		}
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return Completion{}, err
		}
		c := Completion{UserData: cqe.UserData, Res: cqe.Res}
		s.ring.CQESeen(cqe)
		return c, nil
	}
}

func bufAddr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}
