// Package apperr defines the error taxonomy shared by the ledger, the
// rule engine, and the HTTP API, so that a single switch at the transport
// boundary can map any error to the right status code.
package apperr

import (
	"errors"
	"fmt"
)

// Code classifies an error for HTTP-status mapping and logging.
type Code string

const (
	CodeValidation          Code = "validation"
	CodeNotFound            Code = "not_found"
	CodeInsufficientFunds   Code = "insufficient_funds"
	CodeInsufficientShares  Code = "insufficient_shares"
	CodeUpstreamUnavailable Code = "upstream_unavailable"
	CodeRuleEval            Code = "rule_eval"
	CodeAlreadyRunning      Code = "already_running"
	CodeNotActive           Code = "not_active"
	CodeNoRules             Code = "no_rules"
	CodeInternal            Code = "internal"
)

// Error is an application-level error carrying a Code for transport mapping
// in addition to the usual wrapped cause.
type Error struct {
	cause error
	Code  Code
	msg   string
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.msg)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// New builds an *Error with no wrapped cause.
func New(code Code, msg string) *Error {
	return &Error{Code: code, msg: msg}
}

// Wrap builds an *Error wrapping cause.
func Wrap(code Code, msg string, cause error) *Error {
	return &Error{Code: code, msg: msg, cause: cause}
}

// CodeOf extracts the Code from err if it is (or wraps) an *Error,
// defaulting to CodeInternal otherwise.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Sentinel values for precondition failures that callers compare against
// directly with errors.Is, rather than allocating via New/Wrap.
var (
	ErrInsufficientFunds  = New(CodeInsufficientFunds, "insufficient funds")
	ErrInsufficientShares = New(CodeInsufficientShares, "insufficient shares")
	ErrNotFound           = New(CodeNotFound, "not found")
	ErrAlreadyRunning     = New(CodeAlreadyRunning, "algorithm already running")
	ErrNotActive          = New(CodeNotActive, "algorithm not active")
	ErrNoRules            = New(CodeNoRules, "algorithm has no rules")
	ErrUpstreamUnavailable = New(CodeUpstreamUnavailable, "market data upstream unavailable")
)

// Is implements comparison so that errors.Is(err, apperr.ErrNotFound)
// works even when err carries a different message for the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}
