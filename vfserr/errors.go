// Package vfserr defines the structured error taxonomy shared by every
// layer of the in-memory filesystem core, so that a tree.FileTree, an
// inode.ByteStore and the top-level memfs.FileSystemView all fail the same
// way and a caller can errors.Is/As against one vocabulary regardless of
// which package raised the error.
package vfserr

import (
	"errors"
	"fmt"
)

// Code identifies the condition an Error represents. Variants name the
// condition, not the implementation,
type Code int

const (
	_ Code = iota
	NotFound
	AlreadyExists
	NotADirectory
	IsADirectory
	DirectoryNotEmpty
	Loop
	CrossDevice
	InvalidPath
	InvalidArgument
	UnsupportedOperation
	ReadOnly
	FileSystemClosed
	ClosedChannel
	ClosedService
	Interrupted
	LockConflict
	OverlappingLock
	IO
)

var codeNames = map[Code]string{
	NotFound:             "NOT_FOUND",
	AlreadyExists:        "ALREADY_EXISTS",
	NotADirectory:        "NOT_A_DIRECTORY",
	IsADirectory:         "IS_A_DIRECTORY",
	DirectoryNotEmpty:    "DIRECTORY_NOT_EMPTY",
	Loop:                 "LOOP",
	CrossDevice:          "CROSS_DEVICE",
	InvalidPath:          "INVALID_PATH",
	InvalidArgument:      "INVALID_ARGUMENT",
	UnsupportedOperation: "UNSUPPORTED_OPERATION",
	ReadOnly:             "READ_ONLY",
	FileSystemClosed:     "FILESYSTEM_CLOSED",
	ClosedChannel:        "CLOSED_CHANNEL",
	ClosedService:        "CLOSED_SERVICE",
	Interrupted:          "INTERRUPTED",
	LockConflict:         "LOCK_CONFLICT",
	OverlappingLock:      "OVERLAPPING_LOCK",
	IO:                   "IO",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Error is the single structured error type returned by CORE operations.
// It is never logged or retried internally; callers (the façade layer)
// map it to the host's error conventions.
type Error struct {
	Code Code
	// Op names the operation that failed, e.g. "lookup" or "rename".
	Op string
	// Path is the path the operation was acting on, if any.
	Path string
	// Cause is the underlying error, if any (wrapped via errors.Unwrap).
	Cause error
}

func (e *Error) Error() string {
	if e.Path == "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Cause)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Code, e.Cause)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Code)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Code, ignoring Op,
// Path and Cause, so errors.Is(err, NewError(NotFound, "", "")) matches
// any NOT_FOUND error. A bare Code is not an error value and cannot be
// passed to errors.Is.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// NewError constructs an *Error for the given code.
func NewError(code Code, op, path string) *Error {
	return &Error{Code: code, Op: op, Path: path}
}

// WrapError constructs an *Error for the given code, wrapping cause.
func WrapError(code Code, op, path string, cause error) *Error {
	return &Error{Code: code, Op: op, Path: path, Cause: cause}
}

// CodeOf extracts the Code from err if it is (or wraps) an *Error,
// returning IO and false for any other non-nil error, and 0 and false for
// nil.
func CodeOf(err error) (Code, bool) {
	if err == nil {
		return 0, false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return IO, false
}
