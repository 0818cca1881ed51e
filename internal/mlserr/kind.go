// Package mlserr defines the error taxonomy that crosses the mlscore
// boundary. Every fallible operation returns one of these kinds, wrapped
// with a diagnostic message whose prefix a caller can pattern-match on.
package mlserr

import (
	"fmt"
	"strings"
)

// Kind discriminates the category of a failure. Names and prefixes are
// part of the public contract: callers on the other side of the flat
// boundary match on the string prefix, not on this type.
type Kind int

const (
	// InvalidInput signals a wrong-size key or malformed argument.
	InvalidInput Kind = iota
	// SessionNotFound signals an unknown session_id.
	SessionNotFound
	// StorageError signals a provider storage write/read failure.
	StorageError
	// DecodeError signals a TLS deserialization failure.
	DecodeError
	// ValidationError signals a KeyPackage or message failed crypto validation.
	ValidationError
	// UnexpectedMessageType signals an envelope variant mismatch.
	UnexpectedMessageType
	// GroupNotFound signals a group_id absent from session storage.
	GroupNotFound
	// ProtocolError signals an MLS operation refused by group semantics.
	ProtocolError
	// SerializeError signals a TLS re-serialization failure.
	SerializeError
)

// prefix is the stable, pattern-matchable string each Kind renders with.
func (k Kind) prefix() string {
	switch k {
	case InvalidInput:
		return "invalid input"
	case SessionNotFound:
		return "session not found"
	case StorageError:
		return "storage "
	case DecodeError:
		return "deserialize "
	case ValidationError:
		return "validate "
	case UnexpectedMessageType:
		return "unexpected message type"
	case GroupNotFound:
		return "group not found"
	case ProtocolError:
		return "merge "
	case SerializeError:
		return "serialize "
	default:
		return "error"
	}
}

func (k Kind) String() string {
	return k.prefix()
}

// Error is the concrete error type returned across mlscore's boundary.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.prefix()
	}
	return fmt.Sprintf("%s %s", strings.TrimRight(e.Kind.prefix(), " "), e.Detail)
}

// New builds an *Error for the given kind with a formatted detail.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Is lets errors.Is match on Kind via a sentinel of the same Kind.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}

// Sentinel returns a bare *Error usable as an errors.Is target for a Kind.
func Sentinel(kind Kind) *Error {
	return &Error{Kind: kind}
}
