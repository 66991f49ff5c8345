package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a connector failure. The set is closed: every error a
// connector returns maps onto exactly one kind, and the kind name travels
// to clients in the JSON-RPC error's data object.
type Kind string

const (
	// KindInvalidInput indicates a caller-supplied value is malformed.
	KindInvalidInput Kind = "InvalidInput"
	// KindInvalidParams indicates well-formed input that fails schema or semantics.
	KindInvalidParams Kind = "InvalidParams"
	// KindAuthentication indicates credentials are missing, expired, or rejected.
	KindAuthentication Kind = "Authentication"
	// KindResourceNotFound indicates the requested named resource does not exist.
	KindResourceNotFound Kind = "ResourceNotFound"
	// KindToolNotFound indicates an unknown tool name.
	KindToolNotFound Kind = "ToolNotFound"
	// KindMethodNotFound indicates an unknown JSON-RPC method.
	KindMethodNotFound Kind = "MethodNotFound"
	// KindHTTPRequest indicates a network or transport failure to an upstream.
	KindHTTPRequest Kind = "HttpRequest"
	// KindParseError indicates an upstream body that could not be parsed.
	KindParseError Kind = "ParseError"
	// KindIO indicates a local I/O failure.
	KindIO Kind = "Io"
	// KindSerialization indicates a JSON encode or decode failure.
	KindSerialization Kind = "Serialization"
	// KindOther covers everything else, carrying a human-readable message.
	KindOther Kind = "Other"
)

// Error is the taxonomy error type shared by all connectors and the
// aggregator. It wraps an optional cause for errors.Is/As chains.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches taxonomy errors by kind, so sentinel values like
// ErrResourceNotFound compare with errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// Sentinel errors for kinds that carry no useful message of their own.
var (
	ErrResourceNotFound = &Error{Kind: KindResourceNotFound, Message: "resource not found"}
	ErrToolNotFound     = &Error{Kind: KindToolNotFound, Message: "tool not found"}
	ErrMethodNotFound   = &Error{Kind: KindMethodNotFound, Message: "method not found"}
)

// InvalidInputf builds an InvalidInput error.
func InvalidInputf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// InvalidParamsf builds an InvalidParams error.
func InvalidParamsf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidParams, Message: fmt.Sprintf(format, args...)}
}

// Authenticationf builds an Authentication error.
func Authenticationf(format string, args ...any) *Error {
	return &Error{Kind: KindAuthentication, Message: fmt.Sprintf(format, args...)}
}

// HTTPRequestErr wraps an upstream transport failure.
func HTTPRequestErr(err error) *Error {
	return &Error{Kind: KindHTTPRequest, Message: "HTTP request error: " + err.Error(), Err: err}
}

// ParseErrorf builds a ParseError.
func ParseErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindParseError, Message: fmt.Sprintf(format, args...)}
}

// IOErr wraps a local I/O failure.
func IOErr(err error) *Error {
	return &Error{Kind: KindIO, Message: "I/O error: " + err.Error(), Err: err}
}

// SerializationErr wraps a JSON encode/decode failure.
func SerializationErr(err error) *Error {
	return &Error{Kind: KindSerialization, Message: "serialization error: " + err.Error(), Err: err}
}

// Otherf builds an Other error.
func Otherf(format string, args ...any) *Error {
	return &Error{Kind: KindOther, Message: fmt.Sprintf(format, args...)}
}

// KindOf classifies any error. Taxonomy errors report their own kind;
// everything else is Other.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindOther
}
