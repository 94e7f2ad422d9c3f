package auth

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Kind classifies an authentication failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindInvalidCredentials
	KindEmailAlreadyExists
	KindNetwork
	KindServer
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindEmailAlreadyExists:
		return "email_already_exists"
	case KindNetwork:
		return "network_error"
	case KindServer:
		return "server_error"
	case KindStorage:
		return "storage_error"
	default:
		return "unknown"
	}
}

// Error is a typed authentication failure. Fields is set only for
// KindInvalidInput and maps a form field to its message. Status is the HTTP
// status when the failure came from a response.
type Error struct {
	Kind   Kind
	Fields map[string]string
	Status int
	Err    error
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrInvalidInput       = &Error{Kind: KindInvalidInput}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrEmailAlreadyExists = &Error{Kind: KindEmailAlreadyExists}
	ErrNetwork            = &Error{Kind: KindNetwork}
	ErrServer             = &Error{Kind: KindServer}
	ErrStorage            = &Error{Kind: KindStorage}
)

// ErrInFlight is returned when a submission arrives while another one is
// still authenticating. The store is not touched.
var ErrInFlight = errors.New("auth: a sign-in is already in progress")

// ErrSuperseded is returned when a logout happened while the submission was
// in flight. The submission's result is discarded.
var ErrSuperseded = errors.New("auth: sign-in superseded by logout")

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("auth: ")
	sb.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&sb, " (HTTP %d)", e.Status)
	}
	if len(e.Fields) > 0 {
		for _, f := range slices.Sorted(maps.Keys(e.Fields)) {
			fmt.Fprintf(&sb, "; %s: %s", f, e.Fields[f])
		}
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Message returns text safe to show on the form.
func (e *Error) Message() string {
	switch e.Kind {
	case KindInvalidInput:
		return "Please fix the highlighted fields."
	case KindInvalidCredentials:
		return "Invalid email or password."
	case KindEmailAlreadyExists:
		return "An account with this email already exists."
	case KindNetwork:
		return "Could not reach the server. Check your connection and try again."
	default:
		return "Something went wrong. Please try again later."
	}
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// FieldErrors returns the per-field messages carried by an InvalidInput
// error, or nil.
func FieldErrors(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindInvalidInput {
		return e.Fields
	}
	return nil
}
