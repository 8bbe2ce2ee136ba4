package instance

import (
	"errors"
	"fmt"
)

// Kind is a stable machine-readable error category. A presentation layer
// branches on Kind and displays Message verbatim.
type Kind string

const (
	KindInvalidName   Kind = "INVALID_NAME"
	KindDuplicateName Kind = "DUPLICATE_NAME"
	KindNotFound      Kind = "NOT_FOUND"
	KindInvalidState  Kind = "INVALID_STATE"
	KindJavaNotFound  Kind = "JAVA_NOT_FOUND"
	KindJarNotFound   Kind = "JAR_NOT_FOUND"
	KindCommandFailed Kind = "COMMAND_FAILED"
	KindSpawnFailed   Kind = "SPAWN_FAILED"
)

// Error is the domain error type for all lifecycle operations.
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

func (e *Error) Unwrap() error { return e.Cause }

// KindOf extracts the Kind from err, or "" when err is not a domain error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func ErrInvalidName(name string) *Error {
	return &Error{Kind: KindInvalidName, Message: fmt.Sprintf("invalid server name %q", name)}
}

func ErrDuplicateName(name string) *Error {
	return &Error{Kind: KindDuplicateName, Message: fmt.Sprintf("server name %q is already in use", name)}
}

func ErrNotFound(id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("unknown server: %s", id)}
}

func ErrInvalidState(name string, st Status, op string) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf("cannot %s server %q while %s", op, name, st)}
}

func ErrJavaNotFound(path string, cause error) *Error {
	return &Error{Kind: KindJavaNotFound, Message: fmt.Sprintf("no usable java executable (tried %q)", path), Cause: cause}
}

func ErrJarNotFound(path string) *Error {
	return &Error{Kind: KindJarNotFound, Message: fmt.Sprintf("server jar not found at %s", path)}
}

func ErrCommandFailed(id string) *Error {
	return &Error{Kind: KindCommandFailed, Message: fmt.Sprintf("failed to write to stdin of server %s", id)}
}

func ErrSpawnFailed(id string, cause error) *Error {
	return &Error{Kind: KindSpawnFailed, Message: fmt.Sprintf("failed to spawn process for server %s", id), Cause: cause}
}
