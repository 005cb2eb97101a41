package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies per-turn failures. None of these are fatal to the
// process; each maps to a user-facing recovery path.
type ErrorKind string

const (
	ErrKindNotFound         ErrorKind = "not_found"
	ErrKindValidation       ErrorKind = "validation_failed"
	ErrKindAmbiguousIntent  ErrorKind = "ambiguous_intent"
	ErrKindUpstream         ErrorKind = "upstream_unavailable"
)

// TurnError is a structured per-turn error
type TurnError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *TurnError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *TurnError) Unwrap() error { return e.Err }

// NotFoundErr reports a missing assessment, question, or document
func NotFoundErr(format string, args ...interface{}) *TurnError {
	return &TurnError{Kind: ErrKindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// ValidationErr reports a rejected answer with the specific reason
func ValidationErr(format string, args ...interface{}) *TurnError {
	return &TurnError{Kind: ErrKindValidation, Msg: fmt.Sprintf(format, args...)}
}

// AmbiguousErr reports a message the intent classifier could not settle on
func AmbiguousErr(format string, args ...interface{}) *TurnError {
	return &TurnError{Kind: ErrKindAmbiguousIntent, Msg: fmt.Sprintf(format, args...)}
}

// UpstreamErr wraps a store or LLM failure
func UpstreamErr(msg string, err error) *TurnError {
	return &TurnError{Kind: ErrKindUpstream, Msg: msg, Err: err}
}

// KindOf extracts the error kind, defaulting to upstream for plain errors
func KindOf(err error) ErrorKind {
	var te *TurnError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ErrKindUpstream
}
