package beamformer

import (
	"errors"
	"fmt"
	"syscall"
)

// Error represents a structured control-plane error with context and
// errno mapping.
type Error struct {
	Op    string    // Operation that failed (e.g., "Attach", "Dispatch")
	Block int       // Parameter block slot (-1 if not applicable)
	Code  ErrorCode // High-level error category
	Errno syscall.Errno
	Msg   string
	Inner error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Block >= 0 {
		parts = append(parts, fmt.Sprintf("block=%d", e.Block))
	}
	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", e.Errno))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("beamformer: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("beamformer: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is supports comparing against another *Error by Code alone.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// ErrorCode is a closed set of high-level error categories.
type ErrorCode string

const (
	ErrCodeVersionMismatch    ErrorCode = "shared memory version mismatch"
	ErrCodeRegionInvalid      ErrorCode = "shared memory region invalidated"
	ErrCodeQueueFull          ErrorCode = "work queue full"
	ErrCodeLockTimeout        ErrorCode = "lock acquisition timed out"
	ErrCodeInvalidParameters  ErrorCode = "invalid parameters"
	ErrCodeInvalidFilterKind  ErrorCode = "invalid filter kind"
	ErrCodeParameterBlockOOB  ErrorCode = "parameter block slot out of range"
	ErrCodeScratchOverflow    ErrorCode = "scratch arena overflow"
	ErrCodeExportTimeout      ErrorCode = "synchronous export timed out"
	ErrCodePermissionDenied   ErrorCode = "permission denied"
	ErrCodeInsufficientMemory ErrorCode = "insufficient memory"
	ErrCodeIOError            ErrorCode = "I/O error"
)

// NewError creates a new structured error.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Block: -1, Code: code, Msg: msg}
}

// NewErrorWithErrno creates a new structured error carrying an errno.
func NewErrorWithErrno(op string, code ErrorCode, errno syscall.Errno) *Error {
	return &Error{Op: op, Block: -1, Code: code, Errno: errno, Msg: errno.Error()}
}

// NewParameterBlockError creates a parameter-block-specific error.
func NewParameterBlockError(op string, block int, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Block: block, Code: code, Msg: msg}
}

// WrapError wraps an existing error with beamformer context.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}

	if be, ok := inner.(*Error); ok {
		return &Error{Op: op, Block: be.Block, Code: be.Code, Errno: be.Errno, Msg: be.Msg, Inner: be.Inner}
	}

	if errno, ok := inner.(syscall.Errno); ok {
		return &Error{Op: op, Block: -1, Code: mapErrnoToCode(errno), Errno: errno, Msg: errno.Error(), Inner: inner}
	}

	return &Error{Op: op, Block: -1, Code: ErrCodeIOError, Msg: inner.Error(), Inner: inner}
}

func mapErrnoToCode(errno syscall.Errno) ErrorCode {
	switch errno {
	case syscall.EINVAL, syscall.E2BIG:
		return ErrCodeInvalidParameters
	case syscall.EPERM, syscall.EACCES:
		return ErrCodePermissionDenied
	case syscall.ENOMEM, syscall.ENOSPC:
		return ErrCodeInsufficientMemory
	case syscall.ETIMEDOUT:
		return ErrCodeLockTimeout
	default:
		return ErrCodeIOError
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

// IsErrno checks if an error matches a specific errno.
func IsErrno(err error, errno syscall.Errno) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Errno == errno
	}
	return false
}
