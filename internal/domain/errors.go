package domain

import "fmt"

// ErrorKind classifies domain rule violations.
type ErrorKind string

const (
	KindNotAuthorized           ErrorKind = "NOT_AUTHORIZED"
	KindNotActive               ErrorKind = "NOT_ACTIVE"
	KindNotInProgress           ErrorKind = "NOT_IN_PROGRESS"
	KindNotRespondedOrCancelled ErrorKind = "NOT_RESPONDED_OR_CANCELLED"
	KindClosedByRequester       ErrorKind = "CLOSED_BY_REQUESTER"
	KindAlreadyResolver         ErrorKind = "ALREADY_RESOLVER"
)

// Error is a typed ticket rule violation. Op is set for authorization
// failures so each transition has its own variant.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on kind, and on op when the target carries one. This lets
// errors.Is(err, ErrNotAuthorized) match every per-transition variant.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Op == "" || t.Op == e.Op
}

var (
	ErrNotAuthorized = &Error{Kind: KindNotAuthorized, Message: "actor is not authorized to perform this action"}

	ErrNotAuthorizedToForward = &Error{
		Kind: KindNotAuthorized, Op: "forward",
		Message: "forwarding is restricted to the ticket resolver and managers of the resolver department",
	}
	ErrNotAuthorizedToCapture = &Error{
		Kind: KindNotAuthorized, Op: "capture",
		Message: "capturing is restricted to members of the resolver department",
	}
	ErrNotAuthorizedToReject = &Error{
		Kind: KindNotAuthorized, Op: "reject",
		Message: "rejecting is restricted to the ticket resolver",
	}
	ErrNotAuthorizedToRespond = &Error{
		Kind: KindNotAuthorized, Op: "respond",
		Message: "only the ticket resolver can respond to it",
	}
	ErrNotAuthorizedToCancel = &Error{
		Kind: KindNotAuthorized, Op: "cancel",
		Message: "cancelling is restricted to the requester, the resolver and managers of the resolver department",
	}
	ErrNotAuthorizedToReopen = &Error{
		Kind: KindNotAuthorized, Op: "reopen",
		Message: "reopening is restricted to members of the requester department",
	}
	ErrNotAuthorizedToReactivate = &Error{
		Kind: KindNotAuthorized, Op: "reactivate",
		Message: "reactivating is restricted to the ticket resolver and managers of the resolver department",
	}

	ErrNotActive = &Error{
		Kind:    KindNotActive,
		Message: "ticket is neither awaiting distribution nor in progress",
	}
	ErrNotInProgress = &Error{
		Kind:    KindNotInProgress,
		Message: "ticket is not in progress",
	}
	ErrNotRespondedOrCancelled = &Error{
		Kind:    KindNotRespondedOrCancelled,
		Message: "ticket has not been responded to or cancelled yet",
	}
	ErrClosedByRequester = &Error{
		Kind:    KindClosedByRequester,
		Message: "ticket was cancelled by its requester and cannot be reopened",
	}
	ErrAlreadyResolver = &Error{
		Kind:    KindAlreadyResolver,
		Message: "user is already the resolver of this ticket",
	}
)

// ValidationError reports an invalid field value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
