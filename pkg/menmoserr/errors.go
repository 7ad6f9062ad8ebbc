// Package menmoserr defines the error kinds the directory node's
// components return, per the design's error-handling section: callers
// switch on Kind rather than parsing messages.
package menmoserr

import "fmt"

// Kind classifies an error for the caller's dispatch logic (HTTP status,
// retry, panic).
type Kind string

const (
	// NotFound means a blob, node, or user is not in the index.
	NotFound Kind = "not_found"
	// Forbidden means an owner mismatch or missing identity.
	Forbidden Kind = "forbidden"
	// InvalidArgument means a malformed expression, an invalid tag, or
	// an invalid routing config.
	InvalidArgument Kind = "invalid_argument"
	// NoStorageNode means the router is empty or every node is stale.
	NoStorageNode Kind = "no_storage_node"
	// WrongNode means a storage node asked to delete a blob assigned
	// elsewhere.
	WrongNode Kind = "wrong_node"
	// Conflict is reserved for future optimistic-update support.
	Conflict Kind = "conflict"
	// Transient means a KV I/O error occurred; the caller may retry.
	Transient Kind = "transient"
)

// Error is a menmosd domain error carrying a Kind alongside the message.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New constructs an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given kind, wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is a menmosd Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if ok := asError(err, &e); !ok {
		return false
	}
	return e.Kind == kind
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
