package batchio

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
)

// Stage identifies the pipeline stage at which a batch failed.
type Stage string

const (
	StageEntries    Stage = "entries"    // entry validation, before any ring exists
	StageInit       Stage = "init"       // ring creation
	StageEnqueue    Stage = "enqueue"    // submission slot population
	StageSubmit     Stage = "submit"     // the single batch submit call
	StageCompletion Stage = "completion" // reaping completions
)

// ErrorCode represents high-level error categories.
type ErrorCode string

const (
	ErrCodeInvalidEntry ErrorCode = "invalid entry"
	ErrCodeRingInit     ErrorCode = "ring init failed"
	ErrCodeQueueFull    ErrorCode = "submission queue exhausted"
	ErrCodeSubmit       ErrorCode = "submit failed"
	ErrCodeOpFailed     ErrorCode = "operation failed"
	ErrCodeDeadline     ErrorCode = "deadline exceeded"
	ErrCodeUnsupported  ErrorCode = "io_uring not supported"
)

// Error is a structured batchio error carrying the failed entry point, the
// pipeline stage, and kernel-level detail where available. The whole batch is
// atomic from the caller's perspective: any Error means no partial success is
// observable through this package.
type Error struct {
	Op     string        // Entry point that failed ("batch_write", "batch_read")
	Stage  Stage         // Pipeline stage at which the batch aborted
	Index  int           // Submission index for completion failures (-1 if not applicable)
	Code   ErrorCode     // High-level error category
	Errno  syscall.Errno // Kernel errno (0 if not applicable)
	Result int32         // Raw negative CQE result for completion failures (0 if not applicable)
	Msg    string        // Human-readable message
	Inner  error         // Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Stage != "" {
		parts = append(parts, fmt.Sprintf("stage=%s", e.Stage))
	}
	if e.Index >= 0 {
		parts = append(parts, fmt.Sprintf("index=%d", e.Index))
	}
	if e.Result < 0 {
		parts = append(parts, fmt.Sprintf("res=%d", e.Result))
	}
	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", e.Errno))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("batchio: %s (%s)", msg, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("batchio: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is matches sentinel BatchError values and other *Error values by code.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if be, ok := target.(BatchError); ok {
		return e.Code == ErrorCode(be)
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// BatchError is a sentinel error usable with errors.Is against structured
// *Error values.
type BatchError string

func (e BatchError) Error() string {
	return "batchio: " + string(e)
}

// Sentinel errors, one per outcome in the failure taxonomy.
const (
	ErrInvalidEntry BatchError = BatchError(ErrCodeInvalidEntry)
	ErrRingInit     BatchError = BatchError(ErrCodeRingInit)
	ErrQueueFull    BatchError = BatchError(ErrCodeQueueFull)
	ErrSubmit       BatchError = BatchError(ErrCodeSubmit)
	ErrOpFailed     BatchError = BatchError(ErrCodeOpFailed)
	ErrDeadline     BatchError = BatchError(ErrCodeDeadline)
	ErrUnsupported  BatchError = BatchError(ErrCodeUnsupported)
)

// NewError creates a new structured error.
func NewError(op string, stage Stage, code ErrorCode, msg string) *Error {
	return &Error{
		Op:    op,
		Stage: stage,
		Index: -1,
		Code:  code,
		Msg:   msg,
	}
}

// NewOpFailedError creates the completion-failure error, carrying the
// submission index recovered from the CQE user data and the raw negative
// result code.
func NewOpFailedError(op string, index int, res int32) *Error {
	return &Error{
		Op:     op,
		Stage:  StageCompletion,
		Index:  index,
		Code:   ErrCodeOpFailed,
		Errno:  syscall.Errno(-res),
		Result: res,
		Msg:    fmt.Sprintf("async operation failed: %d", res),
	}
}

// WrapError wraps an error from a lower layer with batch context, mapping
// kernel errnos onto the stage's failure code.
func WrapError(op string, stage Stage, inner error) *Error {
	if inner == nil {
		return nil
	}

	if be, ok := inner.(*Error); ok {
		clone := *be
		clone.Op = op
		return &clone
	}

	e := &Error{
		Op:    op,
		Stage: stage,
		Index: -1,
		Code:  stageCode(stage),
		Msg:   inner.Error(),
		Inner: inner,
	}

	var errno syscall.Errno
	if errors.As(inner, &errno) {
		e.Errno = errno
		switch errno {
		case syscall.ENOSYS, syscall.EOPNOTSUPP:
			e.Code = ErrCodeUnsupported
		case syscall.ETIME, syscall.ETIMEDOUT:
			e.Code = ErrCodeDeadline
		}
	}
	return e
}

// stageCode maps a pipeline stage to its default failure code.
func stageCode(stage Stage) ErrorCode {
	switch stage {
	case StageEntries:
		return ErrCodeInvalidEntry
	case StageInit:
		return ErrCodeRingInit
	case StageEnqueue:
		return ErrCodeQueueFull
	case StageSubmit:
		return ErrCodeSubmit
	default:
		return ErrCodeOpFailed
	}
}

// IsCode checks if an error matches a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

// IsStage checks if an error was raised at a specific pipeline stage.
func IsStage(err error, stage Stage) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Stage == stage
	}
	return false
}
