// Package faults defines the closed set of error kinds the monitor can
// produce.
//
// Every failure that crosses a component boundary is classified as one of:
//   - Network: reaching or reading the upstream calendar or an agenda URL
//   - Parse: the calendar page is missing its table, or a row is unreadable
//   - Conversion: the PDF converter failed, timed out, or produced nothing
//   - Store: a filesystem operation on the output directory failed
//   - Config: a required configuration value is missing or malformed
//
// The driver decides recovery per kind: calendar-level Network/Parse errors
// skip the whole run, per-agenda Network/Conversion errors fall back to the
// placeholder body, Store errors abort the run before the feed is written,
// and Config errors are fatal at startup.
package faults

import (
	"errors"
	"fmt"
)

// Code identifies the error kind.
type Code string

const (
	Network    Code = "NETWORK"
	Parse      Code = "PARSE"
	Conversion Code = "CONVERSION"
	Store      Code = "STORE"
	Config     Code = "CONFIG"
)

// Error is a classified monitor error.
//
// Op names the failing operation ("fetch calendar", "save meeting"). URL is
// set when the failure concerns a specific remote resource.
type Error struct {
	Code Code
	Op   string
	URL  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Op)
	if e.URL != "" {
		msg += fmt.Sprintf(" (%s)", e.URL)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with no underlying cause.
func New(code Code, op string) *Error {
	return &Error{Code: code, Op: op}
}

// Wrap classifies an underlying error.
func Wrap(code Code, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// WrapURL classifies an underlying error tied to a remote resource.
func WrapURL(code Code, op, url string, err error) *Error {
	return &Error{Code: code, Op: op, URL: url, Err: err}
}

// Is reports whether err is (or wraps) an Error with the given code.
func Is(err error, code Code) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// IsNetwork reports whether err is a Network error.
func IsNetwork(err error) bool { return Is(err, Network) }

// IsParse reports whether err is a Parse error.
func IsParse(err error) bool { return Is(err, Parse) }

// IsConversion reports whether err is a Conversion error.
func IsConversion(err error) bool { return Is(err, Conversion) }

// IsStore reports whether err is a Store error.
func IsStore(err error) bool { return Is(err, Store) }

// IsConfig reports whether err is a Config error.
func IsConfig(err error) bool { return Is(err, Config) }
