// Package service implements the business core: bill creation, the
// allocation engine, the participant lifecycle, items and users. Failures
// are reported as *Error values carrying an abstract kind; handlers map
// kinds to HTTP status codes without inspecting message text.
package service

import "errors"

// Kind classifies a domain failure independent of any transport.
type Kind int

const (
	// KindNotFound – bill, participant, item or user is absent.
	KindNotFound Kind = iota + 1
	// KindInvalidState – action attempted on a bill that is not open
	// (or otherwise in the wrong lifecycle state).
	KindInvalidState
	// KindInvalidInput – malformed amount, missing required field,
	// empty or duplicate selection.
	KindInvalidInput
	// KindNotAuthorized – requester lacks permission for the transition.
	KindNotAuthorized
	// KindConflict – the mutation would violate the unallocated-sum
	// invariant (over-allocation, exceeding the remainder).
	KindConflict
	// KindBusinessRule – a domain rule blocks the operation (no unpaid
	// participants, all selected already paid, zero-amount payment).
	KindBusinessRule
)

// Error is a typed domain error. The message is safe to render to users.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// KindOf extracts the domain kind of err, or 0 when err is not a domain
// error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

func notFound(msg string) *Error      { return &Error{Kind: KindNotFound, Message: msg} }
func invalidState(msg string) *Error  { return &Error{Kind: KindInvalidState, Message: msg} }
func invalidInput(msg string) *Error  { return &Error{Kind: KindInvalidInput, Message: msg} }
func notAuthorized(msg string) *Error { return &Error{Kind: KindNotAuthorized, Message: msg} }
func conflict(msg string) *Error      { return &Error{Kind: KindConflict, Message: msg} }
func businessRule(msg string) *Error  { return &Error{Kind: KindBusinessRule, Message: msg} }
