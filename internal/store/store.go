// Package store defines the remote document-store contract the engine is
// written against, plus the concrete clients (memory, redis, gorm). Both
// backing stores of the app speak this same contract; which one is "user
// private" and which is "shared" is purely a matter of which collections
// are queried on which client.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Code string

const (
	CodeNotFound         Code = "not_found"
	CodePermissionDenied Code = "permission_denied"
	CodeUnavailable      Code = "unavailable"
	CodeUnknown          Code = "unknown"
)

// Error is the normalized store error taxonomy. Every client maps its
// native failures onto these four codes before returning.
type Error struct {
	Code       Code
	Collection string
	ID         string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("store %s: %s/%s", e.Code, e.Collection, e.ID)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func NotFoundError(collection, id string) *Error {
	return &Error{Code: CodeNotFound, Collection: collection, ID: id}
}

func UnavailableError(collection string, err error) *Error {
	return &Error{Code: CodeUnavailable, Collection: collection, Err: err}
}

func UnknownError(collection string, err error) *Error {
	return &Error{Code: CodeUnknown, Collection: collection, Err: err}
}

func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

func IsNotFound(err error) bool    { return CodeOf(err) == CodeNotFound }
func IsUnavailable(err error) bool { return CodeOf(err) == CodeUnavailable }

// Document is one stored record: an id plus a flat-to-nested field map as
// produced by a JSON round trip (strings, bools, float64, nested maps,
// slices).
type Document struct {
	ID     string
	Fields map[string]any
}

type Op string

const (
	// OpEqual matches loosely typed equality after JSON normalization.
	OpEqual Op = "=="
	// OpContains matches case-insensitive substring on string fields.
	OpContains Op = "contains"
)

type Predicate struct {
	Field string
	Op    Op
	Value any
}

func Eq(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpEqual, Value: value}
}

func Contains(field string, value string) Predicate {
	return Predicate{Field: field, Op: OpContains, Value: value}
}

type OrderBy struct {
	Field string
	Desc  bool
}

// Client is the async document-store boundary. Implementations block only
// inside the call; every method honors ctx cancellation for the read path,
// while writes run to completion once issued (the engine never cancels
// writes mid-flight to avoid partial backfill state).
type Client interface {
	// GetDocument returns the document or a CodeNotFound *Error.
	GetDocument(ctx context.Context, collection, id string) (Document, error)
	// Query returns matching documents; an empty result is not an error.
	Query(ctx context.Context, collection string, preds []Predicate, orderBy *OrderBy, limit int) ([]Document, error)
	// SetDocument upserts. With merge, incoming fields are merged into the
	// existing document (nested maps merge per key); without, the document
	// is replaced wholesale.
	SetDocument(ctx context.Context, collection, id string, fields map[string]any, merge bool) error
	// DeleteDocument removes the document. Deleting a missing document
	// returns a CodeNotFound *Error.
	DeleteDocument(ctx context.Context, collection, id string) error
}

// matches evaluates one predicate against a field map.
func matches(fields map[string]any, pred Predicate) bool {
	got, ok := fields[pred.Field]
	if !ok {
		return false
	}
	switch pred.Op {
	case OpEqual:
		return looselyEqual(got, pred.Value)
	case OpContains:
		gs, ok1 := got.(string)
		ws, ok2 := pred.Value.(string)
		if !ok1 || !ok2 {
			return false
		}
		return strings.Contains(strings.ToLower(gs), strings.ToLower(ws))
	default:
		return false
	}
}

func matchesAll(fields map[string]any, preds []Predicate) bool {
	for _, p := range preds {
		if !matches(fields, p) {
			return false
		}
	}
	return true
}

// looselyEqual compares values that may have gone through a JSON round
// trip on one side only (ints become float64, uuids become strings).
func looselyEqual(a, b any) bool {
	if a == b {
		return true
	}
	if af, bf, ok := bothNumbers(a, b); ok {
		return af == bf
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as == bs
	}
	if s, ok := b.(fmt.Stringer); ok && aok {
		return as == s.String()
	}
	if s, ok := a.(fmt.Stringer); ok && bok {
		return s.String() == bs
	}
	return false
}

func bothNumbers(a, b any) (float64, float64, bool) {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return af, bf, aok && bok
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// mergeFields merges src into dst, recursing into nested maps so that
// partial updates stay additive per key rather than replacing whole
// sub-documents.
func mergeFields(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if cur, ok := dst[k].(map[string]any); ok {
				dst[k] = mergeFields(cur, sub)
				continue
			}
		}
		dst[k] = v
	}
	return dst
}

// copyFields deep-copies a field map so cached documents never alias
// caller-held maps.
func copyFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch t := v.(type) {
		case map[string]any:
			out[k] = copyFields(t)
		case []any:
			cp := make([]any, len(t))
			for i, e := range t {
				if m, ok := e.(map[string]any); ok {
					cp[i] = copyFields(m)
				} else {
					cp[i] = e
				}
			}
			out[k] = cp
		default:
			out[k] = v
		}
	}
	return out
}
