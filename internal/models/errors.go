package models

import (
	"errors"
	"fmt"
)

// ErrDataAbsent is returned when a portal states explicitly that a filing carries no data for
// the requested statement. It is an expected outcome, not a fault: callers skip the target and
// must not write an artifact.
var ErrDataAbsent = errors.New("data absent")

// ParseFault reports a document whose structure does not match the dialect and carries no
// explicit absence marker.
type ParseFault struct {
	Reason string
	Err    error
}

func (e *ParseFault) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse fault: %s: %v", e.Reason, e.Err)
	}
	return "parse fault: " + e.Reason
}

func (e *ParseFault) Unwrap() error {
	return e.Err
}

// NewParseFault builds a ParseFault with a formatted reason.
func NewParseFault(format string, args ...interface{}) *ParseFault {
	return &ParseFault{Reason: fmt.Sprintf(format, args...)}
}

// SessionFault reports a bootstrap that failed or yielded no cookies. It applies to every
// target of the source for the rest of the run.
type SessionFault struct {
	Source Source
	Err    error
}

func (e *SessionFault) Error() string {
	return fmt.Sprintf("session fault (%s): %v", e.Source, e.Err)
}

func (e *SessionFault) Unwrap() error {
	return e.Err
}

// TransportFault reports a request that still failed after the transport's retries.
type TransportFault struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportFault) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transport fault: %s (status: %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport fault: %s: %v", e.URL, e.Err)
}

func (e *TransportFault) Unwrap() error {
	return e.Err
}

// TargetError attaches the identifying target to a fault so operators can locate it.
type TargetError struct {
	Target Target
	Err    error
}

func (e *TargetError) Error() string {
	scope := string(e.Target.Scope)
	if scope == "" {
		scope = "-"
	}
	return fmt.Sprintf("%s (cvm %d) %s/%s %s: %v",
		e.Target.Company.LegalName,
		e.Target.Company.CVMCode,
		e.Target.Category,
		scope,
		e.Target.Filing.ReferenceLabel(),
		e.Err)
}

func (e *TargetError) Unwrap() error {
	return e.Err
}

// IsDataAbsent reports whether err is, or wraps, ErrDataAbsent
func IsDataAbsent(err error) bool {
	return errors.Is(err, ErrDataAbsent)
}

// IsSessionFault reports whether err is, or wraps, a SessionFault
func IsSessionFault(err error) bool {
	var fault *SessionFault
	return errors.As(err, &fault)
}

// IsParseFault reports whether err is, or wraps, a ParseFault
func IsParseFault(err error) bool {
	var fault *ParseFault
	return errors.As(err, &fault)
}
