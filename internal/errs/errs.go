// Package errs carries the error taxonomy shared by the queue, the workers,
// and the product pipeline. Every failure is tagged with a Kind that decides
// how callers react: validation errors are dropped, transient errors may be
// retried, terminal errors abandon the task, internal errors are caught at
// the loop boundary.
package errs

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindTransient  Kind = "transient"
	KindTerminal   Kind = "terminal"
	KindInternal   Kind = "internal"
)

// Stable codes, kept in sync with the log stream so failures can be grepped
// across deployments.
const (
	CodeValidation = "VAL001"
	CodeTransient  = "NET001"
	CodeTerminal   = "TPE001"
	CodeInternal   = "GEN001"
	CodeUpload     = "FOE001"
	CodeConfig     = "CFG001"
	CodeThirdParty = "TPS001"
)

type Error struct {
	Kind Kind
	Code string
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.Op)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, code, op string, err error) *Error {
	return &Error{Kind: kind, Code: code, Op: op, Err: err}
}

func Validation(op string, err error) *Error {
	return New(KindValidation, CodeValidation, op, err)
}

func Validationf(op, format string, args ...any) *Error {
	return New(KindValidation, CodeValidation, op, fmt.Errorf(format, args...))
}

func Transient(op string, err error) *Error {
	return New(KindTransient, CodeTransient, op, err)
}

func Terminal(code, op string, err error) *Error {
	return New(KindTerminal, code, op, err)
}

func Internal(op string, err error) *Error {
	return New(KindInternal, CodeInternal, op, err)
}

// KindOf reports the Kind of err, or KindInternal for untagged errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsValidation reports whether err is tagged as a validation failure.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}
