// Package apperr holds the error taxonomy shared by the store, the chain
// gateway and the services. Every error that reaches the HTTP layer is an
// *Error with a Kind, so handlers never have to inspect raw driver or RPC
// failures.
package apperr

import (
	"fmt"

	"github.com/pkg/errors"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotConnected
	KindRPC
	KindTimeout
	KindNotFound
	KindPermission
	KindConflict
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotConnected:
		return "not_connected"
	case KindRPC:
		return "rpc"
	case KindTimeout:
		return "timeout"
	case KindNotFound:
		return "not_found"
	case KindPermission:
		return "permission"
	case KindConflict:
		return "conflict"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// JSON-RPC and EIP-1193 codes used by the gateway.
const (
	CodeInternal       = -32603
	CodeMethodNotFound = -32601
	CodeDisconnected   = 4900
)

type Error struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Kind == KindRPC {
		if e.Err != nil {
			return fmt.Sprintf("rpc error %d: %s: %v", e.Code, e.Message, e.Err)
		}
		return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func Validationf(format string, args ...interface{}) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

func NotConnected(message string) *Error {
	return &Error{Kind: KindNotConnected, Code: CodeDisconnected, Message: message}
}

func RPC(code int, message string) *Error {
	return &Error{Kind: KindRPC, Code: code, Message: message}
}

func Timeout(operation string, err error) *Error {
	return &Error{Kind: KindTimeout, Message: operation + " timed out", Err: err}
}

// Cancelled reports a call the caller gave up on before the provider
// answered. It is grouped with timeouts.
func Cancelled(operation string, err error) *Error {
	return &Error{Kind: KindTimeout, Message: operation + " cancelled", Err: err}
}

func NotFound(resource string, id interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %v not found", resource, id)}
}

func Permission(message string) *Error {
	return &Error{Kind: KindPermission, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Persistence wraps a store failure. The original error keeps its stack for
// logging through pkg/errors.
func Persistence(err error, message string) *Error {
	return &Error{Kind: KindPersistence, Message: message, Err: errors.WithStack(err)}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the text shown to the user for err.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
