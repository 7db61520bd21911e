// Package qerr defines the typed error outcomes surfaced by the query engine.
// The transport layer maps kinds to user-facing error codes; the engine itself
// never retries or logs, it only returns these.
package qerr

import (
	"errors"
	"fmt"
)

// Kind discriminates engine error outcomes.
type Kind int

const (
	// KindSchema covers configuration or request-shape bugs: a model without a
	// primary key, an unknown relationship or column in a path, a cyclic
	// fragment reference. Fatal to the request, never retried.
	KindSchema Kind = iota
	// KindNotFound covers primary-key lookups that miss, for items, mutations,
	// and relationship references.
	KindNotFound
	// KindConstraint covers relational-layer violations surfaced at exec or
	// commit time, such as unique or foreign-key violations.
	KindConstraint
	// KindConfiguration covers wiring bugs outside the engine, such as a
	// missing transaction handle on the request context.
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindSchema:
		return "schema"
	case KindNotFound:
		return "not_found"
	case KindConstraint:
		return "constraint"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Error is a typed engine error. Use the constructors rather than building
// values directly.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// Kind reports which error class this is.
func (e *Error) Kind() Kind { return e.kind }

// Schemaf creates a KindSchema error.
func Schemaf(format string, args ...any) *Error {
	return &Error{kind: KindSchema, msg: fmt.Sprintf(format, args...)}
}

// NotFoundf creates a KindNotFound error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{kind: KindNotFound, msg: fmt.Sprintf(format, args...)}
}

// Constraint creates a KindConstraint error wrapping the relational-layer cause.
func Constraint(msg string, cause error) *Error {
	return &Error{kind: KindConstraint, msg: msg, err: cause}
}

// Configurationf creates a KindConfiguration error.
func Configurationf(format string, args ...any) *Error {
	return &Error{kind: KindConfiguration, msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from an error chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.kind, true
	}
	return 0, false
}

func is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsSchema reports whether err is a KindSchema error.
func IsSchema(err error) bool { return is(err, KindSchema) }

// IsNotFound reports whether err is a KindNotFound error.
func IsNotFound(err error) bool { return is(err, KindNotFound) }

// IsConstraint reports whether err is a KindConstraint error.
func IsConstraint(err error) bool { return is(err, KindConstraint) }

// IsConfiguration reports whether err is a KindConfiguration error.
func IsConfiguration(err error) bool { return is(err, KindConfiguration) }
