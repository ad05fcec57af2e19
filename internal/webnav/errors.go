// internal/webnav/errors.go
package webnav

import (
	"errors"
	"fmt"
)

// Failures that concern the page and the caller's request are reported as a
// typed *Error so consumers can classify them with errors.Is against the
// sentinels below instead of matching on message text. Infrastructure failures
// (a dropped CDP connection, a cancelled context) stay ordinary wrapped errors.

// Kind classifies a page-level failure.
type Kind string

const (
	KindNotFound             Kind = "not_found"
	KindInvalidTargetType    Kind = "invalid_target_type"
	KindReferenceUnavailable Kind = "reference_unavailable"
	KindReferenceStale       Kind = "reference_stale"
	KindEvaluationFailure    Kind = "evaluation_failure"
	KindInvalidQuery         Kind = "invalid_query"
	KindInvalidSelector      Kind = "invalid_selector"
	KindInvalidArgument      Kind = "invalid_argument"
)

// Error is the structured failure returned by every operation.
// Its message is surfaced verbatim to the agent as the {error} payload.
type Error struct {
	Kind    Kind
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same kind, so the message-less sentinels below
// work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrInvalidTargetType    = &Error{Kind: KindInvalidTargetType}
	ErrReferenceUnavailable = &Error{Kind: KindReferenceUnavailable}
	ErrReferenceStale       = &Error{Kind: KindReferenceStale}
	ErrEvaluationFailure    = &Error{Kind: KindEvaluationFailure}
	ErrInvalidQuery         = &Error{Kind: KindInvalidQuery}
	ErrInvalidSelector      = &Error{Kind: KindInvalidSelector}
	ErrInvalidArgument      = &Error{Kind: KindInvalidArgument}
)

// Errorf builds an *Error of the given kind.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// NewSelectorNotFoundError reports a selector that matched nothing.
func NewSelectorNotFoundError(selector string) *Error {
	return Errorf(KindNotFound, "no element matches selector %q", selector)
}

// NewTextNotFoundError reports a text search that matched nothing.
func NewTextNotFoundError(text string) *Error {
	return Errorf(KindNotFound, "no element contains text %q", text)
}

// NewInvalidQueryError reports a query that names neither a selector nor text.
func NewInvalidQueryError() *Error {
	return Errorf(KindInvalidQuery, "selector or text is required")
}

// NewInvalidSelectorError reports a selector that does not compile.
func NewInvalidSelectorError(selector string, cause error) *Error {
	return Errorf(KindInvalidSelector, "invalid selector %q: %v", selector, cause)
}

// NewInvalidTargetTypeError reports a toggle on something that is not a checkbox or radio.
func NewInvalidTargetTypeError(tag, typ string) *Error {
	return Errorf(KindInvalidTargetType, "element <%s> with type %q is not a checkbox or radio", tag, typ)
}

// NewReferenceUnavailableError reports a page that has no reference table.
func NewReferenceUnavailableError() *Error {
	return Errorf(KindReferenceUnavailable, "no reference table on this page; run snapshot first")
}

// NewReferenceStaleError reports a ref missing from the table, or whose element left the document.
func NewReferenceStaleError(ref string) *Error {
	return Errorf(KindReferenceStale, "ref %q not found; it may be stale, run snapshot again", ref)
}

// NewEvaluationError wraps the message of a parse error, thrown value or rejected promise.
func NewEvaluationError(message string) *Error {
	return &Error{Kind: KindEvaluationFailure, Message: message}
}

// NewInvalidArgumentError reports a malformed request argument.
func NewInvalidArgumentError(format string, args ...interface{}) *Error {
	return Errorf(KindInvalidArgument, format, args...)
}
