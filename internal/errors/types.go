package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid returns a ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// FormatError reports a malformed container or manifest. Path may be empty
// when the data did not come from a file.
type FormatError struct {
	Path   string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := e.Reason
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both ErrFormat and the underlying cause.
func (e *FormatError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrFormat, e.Err}
	}
	return []error{ErrFormat}
}

// IOError reports a failed filesystem operation.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() []error { return []error{ErrIO, e.Err} }

// NewIOError wraps err unless it is nil or already carries ErrIO.
func NewIOError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrIO) {
		return err
	}
	return &IOError{Op: op, Path: path, Err: err}
}

// ShredKind classifies a secure deletion failure.
type ShredKind int

const (
	ShredFailed ShredKind = iota
	ShredLocked
	ShredReadOnlyFilesystem
	ShredDeviceFlushUnsupported
)

func (k ShredKind) sentinel() error {
	switch k {
	case ShredLocked:
		return ErrLocked
	case ShredReadOnlyFilesystem:
		return ErrReadOnlyFilesystem
	case ShredDeviceFlushUnsupported:
		return ErrDeviceFlushUnsupported
	default:
		return ErrShredFailed
	}
}

// ShredError reports why a file could not be securely deleted.
type ShredError struct {
	Kind ShredKind
	Path string
	// Pass is the overwrite pass that failed, zero if the failure happened
	// before or after the overwrite passes.
	Pass int
	Err  error
}

func (e *ShredError) Error() string {
	msg := fmt.Sprintf("shred %s: %v", e.Path, e.Kind.sentinel())
	if e.Pass > 0 {
		msg += fmt.Sprintf(" (pass %d)", e.Pass)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ShredError) Unwrap() []error {
	errs := []error{ErrShredFailed}
	if e.Kind != ShredFailed {
		errs = append(errs, e.Kind.sentinel())
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// PartialDeleteError lists the vault members that survived a delete.
type PartialDeleteError struct {
	VaultPath string
	Remaining []string
	Err       error
}

func (e *PartialDeleteError) Error() string {
	return fmt.Sprintf("vault %s partially deleted, %d file(s) remain: %s",
		e.VaultPath, len(e.Remaining), strings.Join(e.Remaining, ", "))
}

func (e *PartialDeleteError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrPartialDelete, e.Err}
	}
	return []error{ErrPartialDelete}
}
