package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code classifies engine errors so callers can tell retryable failures
// (Network, Unknown from a transient store) from terminal ones.
type Code string

const (
	CodeNotFound         Code = "not_found"
	CodeDuplicate        Code = "duplicate"
	CodeConflict         Code = "conflict"
	CodeValidation       Code = "validation"
	CodeNetwork          Code = "network"
	CodePermissionDenied Code = "permission_denied"
	CodeUnknown          Code = "unknown"
)

type Error struct {
	Code   Code
	Kind   string // entity kind, e.g. "program"
	Key    string // id or natural key the error is about
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Kind != "" {
		b.WriteString(" " + e.Kind)
	}
	if e.Key != "" {
		b.WriteString(" " + e.Key)
	}
	if e.Reason != "" {
		b.WriteString(": " + e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(kind, key string) *Error {
	return &Error{Code: CodeNotFound, Kind: kind, Key: key}
}

func Duplicate(kind, naturalKey string) *Error {
	return &Error{Code: CodeDuplicate, Kind: kind, Key: naturalKey}
}

func Conflict(kind, key, reason string) *Error {
	return &Error{Code: CodeConflict, Kind: kind, Key: key, Reason: reason}
}

func Validation(field, reason string) *Error {
	return &Error{Code: CodeValidation, Key: field, Reason: reason}
}

func Network(err error) *Error {
	return &Error{Code: CodeNetwork, Err: err}
}

func PermissionDenied(err error) *Error {
	return &Error{Code: CodePermissionDenied, Err: err}
}

func Unknown(err error) *Error {
	return &Error{Code: CodeUnknown, Err: err}
}

// CodeOf walks the error chain and returns the first engine code found,
// or CodeUnknown when the error carries no code.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var c *CascadeError
	if errors.As(err, &c) {
		return CodeConflict
	}
	return CodeUnknown
}

func IsNotFound(err error) bool   { return CodeOf(err) == CodeNotFound }
func IsDuplicate(err error) bool  { return CodeOf(err) == CodeDuplicate }
func IsConflict(err error) bool   { return CodeOf(err) == CodeConflict }
func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }

// IsRetryable reports whether the failure is transient from the caller's
// point of view. Validation, duplicate and conflict outcomes never change
// on retry.
func IsRetryable(err error) bool {
	return CodeOf(err) == CodeNetwork
}

// CascadeError reports a delete whose dependent cleanup only partially
// succeeded. The primary entity is already gone; Failed names the dependent
// collections still holding rows, so the caller can retry just the cleanup.
type CascadeError struct {
	Kind   string
	Key    string
	Purged []string
	Failed map[string]error
}

func (e *CascadeError) Error() string {
	if e == nil {
		return ""
	}
	cols := make([]string, 0, len(e.Failed))
	for c := range e.Failed {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return fmt.Sprintf("cascade delete of %s %s incomplete: failed collections %s",
		e.Kind, e.Key, strings.Join(cols, ", "))
}
