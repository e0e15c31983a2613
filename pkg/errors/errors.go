// Package errors provides the structured error kinds used across the
// application. We prefer these over raw fmt.Errorf strings so callers can
// classify failures with errors.As and the retry/4xx/swallow policy tables
// stay reliable.
package errors

import (
	"errors"
	"fmt"
)

// ValidationError indicates invalid input, config or state supplied by a
// caller or end user. Never retried, surfaces as a 4xx.
type ValidationError struct {
	Op  string // where it happened (package.Function)
	Msg string // human friendly message, no PII
	Err error  // underlying cause, optional
}

func (e *ValidationError) Error() string { return format("validation", e.Op, e.Msg, e.Err) }
func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidation wraps err as a ValidationError.
func NewValidation(op, msg string, err error) error {
	return &ValidationError{Op: op, Msg: msg, Err: err}
}

// DBError represents database access or migration failures.
type DBError struct {
	Op  string
	Msg string
	Err error
}

func (e *DBError) Error() string { return format("db", e.Op, e.Msg, e.Err) }
func (e *DBError) Unwrap() error { return e.Err }

// NewDB wraps err as a DBError.
func NewDB(op, msg string, err error) error { return &DBError{Op: op, Msg: msg, Err: err} }

// ExternalAPIError represents failures in external collaborators: the LLM
// provider, the web-search API, the music platform, SMTP.
type ExternalAPIError struct {
	Op     string
	System string // e.g. "anthropic", "syb", "search", "smtp"
	Msg    string
	Err    error
}

func (e *ExternalAPIError) Error() string {
	sys := e.System
	if sys == "" {
		sys = "external"
	}
	return format(sys, e.Op, e.Msg, e.Err)
}
func (e *ExternalAPIError) Unwrap() error { return e.Err }

// NewExternal wraps err as an ExternalAPIError for the named system.
func NewExternal(op, system, msg string, err error) error {
	return &ExternalAPIError{Op: op, System: system, Msg: msg, Err: err}
}

// BizError is for domain failures that are neither bad input nor bugs:
// expired approval tokens, briefs in the wrong status, missing mappings.
type BizError struct {
	Op  string
	Msg string
	Err error
}

func (e *BizError) Error() string { return format("biz", e.Op, e.Msg, e.Err) }
func (e *BizError) Unwrap() error { return e.Err }

// NewBiz wraps err as a BizError.
func NewBiz(op, msg string, err error) error { return &BizError{Op: op, Msg: msg, Err: err} }

func format(kind, op, msg string, err error) string {
	if err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", kind, op, msg, err)
	}
	return fmt.Sprintf("%s: %s: %s", kind, op, msg)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsDB reports whether err is (or wraps) a DBError.
func IsDB(err error) bool {
	var d *DBError
	return errors.As(err, &d)
}

// IsExternal reports whether err is (or wraps) an ExternalAPIError.
func IsExternal(err error) bool {
	var x *ExternalAPIError
	return errors.As(err, &x)
}

// IsBiz reports whether err is (or wraps) a BizError.
func IsBiz(err error) bool {
	var b *BizError
	return errors.As(err, &b)
}
