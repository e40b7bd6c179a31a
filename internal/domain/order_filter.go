package domain

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// OrderFilter has AND semantics across fields, OR semantics within each field slice.
// The zero value matches every order.
type OrderFilter struct {
	CustomerIDs []string
	Statuses    []OrderStatus
	CreatedAt   *TimeRange
}

func (f OrderFilter) Validate() error {
	for _, status := range f.Statuses {
		if _, err := ToOrderStatus(string(status)); err != nil {
			return fmt.Errorf("statuses: %w: %q", err, status)
		}
	}

	if f.CreatedAt != nil {
		if err := f.CreatedAt.Validate(); err != nil {
			return fmt.Errorf("createdAt: %w", err)
		}
	}

	return nil
}

// Matches reports whether o satisfies every non-empty field of the filter.
func (f OrderFilter) Matches(o Order) bool {
	if len(f.CustomerIDs) > 0 && !slices.Contains(f.CustomerIDs, o.CustomerID) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, o.Status) {
		return false
	}
	if f.CreatedAt != nil && !f.CreatedAt.Contains(o.CreatedAt) {
		return false
	}
	return true
}

// TimeRange is half open: After is inclusive, Before is exclusive.
type TimeRange struct {
	Before *time.Time
	After  *time.Time
}

func (t TimeRange) Validate() error {
	if t.Before == nil && t.After == nil {
		return errors.New("both Before and After are nil")
	}

	if t.Before != nil && t.After != nil {
		if !t.After.Before(*t.Before) {
			return errors.New("after is not before Before")
		}
	}

	return nil
}

// Contains reports whether ts falls inside the range.
func (t TimeRange) Contains(ts time.Time) bool {
	if t.After != nil && ts.Before(*t.After) {
		return false
	}
	if t.Before != nil && !ts.Before(*t.Before) {
		return false
	}
	return true
}
