package engine

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures for callers that map them to responses.
type Kind string

const (
	KindObjectiveLocked      Kind = "objective_locked"
	KindNoQuestionsAvailable Kind = "no_questions_available"
	KindStaleQuestion        Kind = "stale_question"
	KindStorageUnavailable   Kind = "storage_unavailable"
	KindInvalidOption        Kind = "invalid_option"
	KindUnknownObjective     Kind = "unknown_objective"
	KindUnknownSection       Kind = "unknown_section"
)

// Sentinels for errors.Is. Any *Error of the same Kind matches.
var (
	ErrObjectiveLocked      = &Error{Kind: KindObjectiveLocked}
	ErrNoQuestionsAvailable = &Error{Kind: KindNoQuestionsAvailable}
	ErrStaleQuestion        = &Error{Kind: KindStaleQuestion}
	ErrStorageUnavailable   = &Error{Kind: KindStorageUnavailable}
	ErrInvalidOption        = &Error{Kind: KindInvalidOption}
	ErrUnknownObjective     = &Error{Kind: KindUnknownObjective}
	ErrUnknownSection       = &Error{Kind: KindUnknownSection}
)

// Error is the typed failure returned by every Engine operation.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of err, or "" if err is not an engine error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}
