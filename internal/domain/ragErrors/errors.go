// Package ragErrors is the error taxonomy shared by every layer of the pipeline.
package ragErrors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindUpstream
	KindNotFound
	KindIndexConsistency
	KindCapacity
	KindConfiguration
	KindContent
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUpstream:
		return "upstream"
	case KindNotFound:
		return "not_found"
	case KindIndexConsistency:
		return "index_consistency"
	case KindCapacity:
		return "capacity"
	case KindConfiguration:
		return "configuration"
	case KindContent:
		return "content"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Op   string
	Msg  string
	// ChunkIDs lists the chunks that failed to embed, IndexConsistency only
	ChunkIDs []string
	// Transient marks upstream failures that may succeed on retry
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if len(e.ChunkIDs) > 0 {
		fmt.Fprintf(&b, " (%d chunks failed: %s)", len(e.ChunkIDs), strings.Join(e.ChunkIDs, ","))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(op, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func Capacity(op, format string, args ...any) *Error {
	return &Error{Kind: KindCapacity, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func Configuration(op, format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func Content(op string, err error, format string, args ...any) *Error {
	return &Error{Kind: KindContent, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

func Upstream(op string, err error, transient bool) *Error {
	return &Error{Kind: KindUpstream, Op: op, Transient: transient, Err: err}
}

func IndexConsistency(op string, chunkIDs []string, err error) *Error {
	return &Error{Kind: KindIndexConsistency, Op: op, Msg: "swap aborted, prior index state retained", ChunkIDs: chunkIDs, Err: err}
}

// KindOf returns the kind of the outermost *Error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsTransient reports whether a retry could succeed. Caller cancellation never is.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindUpstream && e.Transient
	}
	return false
}

// FailedChunks returns the chunk ids attached to an IndexConsistency error.
func FailedChunks(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.ChunkIDs
	}
	return nil
}
