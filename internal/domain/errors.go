package domain

import (
	"context"
	"errors"
)

var (
	ErrEmptyOrder         = errors.New("order must contain at least one item")
	ErrItemNotFound       = errors.New("catalog item not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrRefundExceedsTotal = errors.New("refund amount exceeds order total")

	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrOrderNotCancellable = errors.New("order cannot be cancelled in its current status")
	ErrInvalidState        = errors.New("operation not allowed in current order status")

	ErrOrderNotFound = errors.New("order not found")
	ErrConflict      = errors.New("order was modified concurrently")
	ErrInvalidInput  = errors.New("invalid input")
	ErrPersistence   = errors.New("persistence failure")

	ErrDuplicateOrderNumber = errors.New("order number already exists")
)

// ErrorKind is the machine readable classification of an error.
type ErrorKind string

const (
	KindEmptyOrder          ErrorKind = "empty_order"
	KindItemNotFound        ErrorKind = "item_not_found"
	KindInsufficientStock   ErrorKind = "insufficient_stock"
	KindRefundExceedsTotal  ErrorKind = "refund_exceeds_total"
	KindInvalidTransition   ErrorKind = "invalid_transition"
	KindOrderNotCancellable ErrorKind = "order_not_cancellable"
	KindInvalidState        ErrorKind = "invalid_state"
	KindNotFound            ErrorKind = "not_found"
	KindConflict            ErrorKind = "conflict"
	KindInvalidInput        ErrorKind = "invalid_input"
	KindPersistenceFailure  ErrorKind = "persistence_failure"
	KindTimeout             ErrorKind = "timeout"
	KindCanceled            ErrorKind = "canceled"
	KindInternal            ErrorKind = "internal"
)

// Kind classifies err. Validation and state errors take precedence over
// ErrPersistence so a wrapped domain error keeps its own kind.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return ""

	case errors.Is(err, ErrEmptyOrder):
		return KindEmptyOrder

	case errors.Is(err, ErrItemNotFound):
		return KindItemNotFound

	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock

	case errors.Is(err, ErrRefundExceedsTotal):
		return KindRefundExceedsTotal

	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition

	case errors.Is(err, ErrOrderNotCancellable):
		return KindOrderNotCancellable

	case errors.Is(err, ErrInvalidState):
		return KindInvalidState

	case errors.Is(err, ErrOrderNotFound):
		return KindNotFound

	case errors.Is(err, ErrConflict):
		return KindConflict

	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput

	case errors.Is(err, ErrPersistence):
		return KindPersistenceFailure

	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout

	case errors.Is(err, context.Canceled):
		return KindCanceled

	default:
		return KindInternal
	}
}
