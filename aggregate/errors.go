package aggregate

import (
	"errors"

	"github.com/goccy/go-json"
)

// Kind discriminates the externally visible failure classes of the
// aggregation handler. The boundary maps each kind to a distinct outcome:
// validation failures describe the caller's mistake, everything else is
// reported with a generic message and the detail stays in the logs.
type Kind string

const (
	// KindValidation means the caller's input was malformed (bad date,
	// start after end). Not retryable; the message may describe the
	// specific input problem.
	KindValidation Kind = "ValidationError"

	// KindStore means the query against the event store failed for
	// infrastructure reasons. The caller receives a generic message.
	KindStore Kind = "StoreError"

	// KindAggregation means a fetched record could not be interpreted
	// while tallying. Treated the same as KindStore for the caller.
	KindAggregation Kind = "AggregationError"
)

// Caller-facing messages for the non-validation kinds. Internal detail is
// carried in the wrapped cause and must never reach the caller.
const (
	storeErrorMessage       = "Something went wrong with the database."
	aggregationErrorMessage = "Something went wrong with tallying dates."
)

// Error is the tagged error returned by [Handler.Handle]. Message is safe to
// surface to the caller; the wrapped cause is not.
type Error struct {
	Kind    Kind
	Message string

	cause error
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// MarshalJSON renders the error in the invocation contract's wire form:
//
//	{"type": "ValidationError", "message": "..."}
//
// The cause is deliberately excluded.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    Kind   `json:"type"`
		Message string `json:"message"`
	}{
		Type:    e.Kind,
		Message: e.Message,
	})
}

func newValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func newStoreError(cause error) *Error {
	return &Error{Kind: KindStore, Message: storeErrorMessage, cause: cause}
}

func newAggregationError(cause error) *Error {
	return &Error{Kind: KindAggregation, Message: aggregationErrorMessage, cause: cause}
}

// KindOf returns the [Kind] of err, or an empty Kind when err is not an
// [*Error] produced by this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return ""
}
