package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const (
	MinItemQuantity = 1
	MaxItemQuantity = 100

	MaxNotesLength       = 500
	NotesSeparator       = "\n"
	MaxGiftMessageLength = 200

	ReturnWindow = 30 * 24 * time.Hour

	DefaultCountry = "United States"
)

// Order is a ledger entry. Once inserted it is changed only through the
// lifecycle methods below, each of which re-validates its precondition.
type Order struct {
	ID              uuid.UUID
	OrderNumber     string
	CustomerID      string
	Items           []OrderLineItem
	ShippingAddress ShippingAddress
	PaymentMethod   PaymentMethod
	Currency        currency.Unit

	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	Tax          decimal.Decimal
	Discount     decimal.Decimal
	GiftWrapCost decimal.Decimal
	Total        decimal.Decimal

	Status        OrderStatus
	PaymentStatus PaymentStatus

	TrackingNumber string
	TrackingURL    string
	Notes          string
	Gift           GiftOptions

	CancellationReason string
	RefundAmount       decimal.Decimal
	RefundReason       string

	DeliveredAt *time.Time
	CancelledAt *time.Time
	RefundedAt  *time.Time

	// Version is bumped by the repository on every successful update.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderLineItem is a snapshot of a catalog item taken when the order was placed.
type OrderLineItem struct {
	CatalogItemID     uuid.UUID
	TitleSnapshot     string
	UnitPriceSnapshot decimal.Decimal
	Quantity          int
	ImageSnapshot     string
}

func (i OrderLineItem) LineTotal() decimal.Decimal {
	return i.UnitPriceSnapshot.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type ShippingAddress struct {
	Name    string
	Street  string
	City    string
	State   string
	Zip     string
	Country string
	Phone   string
}

// Normalize trims every field and fills in the default country.
func (a ShippingAddress) Normalize() ShippingAddress {
	a.Name = strings.TrimSpace(a.Name)
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.Zip = strings.TrimSpace(a.Zip)
	a.Country = strings.TrimSpace(a.Country)
	a.Phone = strings.TrimSpace(a.Phone)
	if a.Country == "" {
		a.Country = DefaultCountry
	}
	return a
}

func (a ShippingAddress) Validate() error {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"name", a.Name},
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"zip", a.Zip},
		{"country", a.Country},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("shipping address: missing %s", strings.Join(missing, ", "))
	}

	return nil
}

type GiftOptions struct {
	IsGift    bool
	Message   string
	IsWrapped bool
}

// OrderSummary is a compact view used in listings and logs.
type OrderSummary struct {
	ItemCount  int
	TotalItems int
	TotalValue decimal.Decimal
	Status     OrderStatus
}

// Validate checks the caller supplied fields of a new order.
func (o Order) Validate() error {
	if len(o.Items) == 0 {
		return ErrEmptyOrder
	}
	if strings.TrimSpace(o.CustomerID) == "" {
		return fmt.Errorf("%w: customer id is empty", ErrInvalidInput)
	}
	for idx, item := range o.Items {
		if err := validateQuantity(item.Quantity); err != nil {
			return fmt.Errorf("%w: items[%d]: %v", ErrInvalidInput, idx, err)
		}
		if item.UnitPriceSnapshot.IsNegative() {
			return fmt.Errorf("%w: items[%d]: unit price is negative", ErrInvalidInput, idx)
		}
	}
	if err := o.ShippingAddress.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := ToPaymentMethod(string(o.PaymentMethod)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if utf8.RuneCountInString(o.Notes) > MaxNotesLength {
		return fmt.Errorf("%w: notes cannot exceed %d characters", ErrInvalidInput, MaxNotesLength)
	}
	if utf8.RuneCountInString(o.Gift.Message) > MaxGiftMessageLength {
		return fmt.Errorf("%w: gift message cannot exceed %d characters", ErrInvalidInput, MaxGiftMessageLength)
	}
	if o.Discount.IsNegative() {
		return fmt.Errorf("%w: discount is negative", ErrInvalidInput)
	}
	return nil
}

func validateQuantity(q int) error {
	if q < MinItemQuantity || q > MaxItemQuantity {
		return fmt.Errorf("quantity must be within [%d, %d], got %d", MinItemQuantity, MaxItemQuantity, q)
	}
	return nil
}

// SetItems replaces the line items and recomputes subtotal and total.
func (o *Order) SetItems(items []OrderLineItem) {
	o.Items = items
	o.Recalculate()
}

// ApplyCharges sets shipping, tax and gift wrap from policy for the current
// subtotal and recomputes the total.
func (o *Order) ApplyCharges(policy PricingPolicy) {
	o.Recalculate()
	o.ShippingCost = policy.ShippingFor(o.Subtotal)
	o.Tax = policy.TaxFor(o.Subtotal)
	o.GiftWrapCost = policy.GiftWrapFor(o.Gift)
	o.Recalculate()
}

// Recalculate derives Subtotal from the line items and Total from the charges.
// Total never goes below zero.
func (o *Order) Recalculate() {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	o.Subtotal = subtotal

	total := subtotal.
		Add(o.ShippingCost).
		Add(o.Tax).
		Add(o.GiftWrapCost).
		Sub(o.Discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	o.Total = total
}

// TransitionTo moves the order to target if the transition table allows it.
// Non-blank notes are appended to the existing ones; MaxNotesLength bounds
// each appended entry, not the accumulated history.
func (o *Order) TransitionTo(target OrderStatus, notes string, now time.Time) error {
	if !CanTransition(o.Status, target) {
		return fmt.Errorf("%w: from %s to %s", ErrInvalidTransition, o.Status, target)
	}
	if utf8.RuneCountInString(notes) > MaxNotesLength {
		return fmt.Errorf("%w: notes cannot exceed %d characters", ErrInvalidInput, MaxNotesLength)
	}

	o.Status = target
	switch target {
	case OrderStatusDelivered:
		o.DeliveredAt = &now
	case OrderStatusCancelled:
		o.CancelledAt = &now
	}

	o.appendNotes(notes)
	o.UpdatedAt = now

	return nil
}

// appendNotes adds a line to the notes history. Blank input is ignored.
func (o *Order) appendNotes(notes string) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return
	}
	if o.Notes == "" {
		o.Notes = notes
		return
	}
	o.Notes += NotesSeparator + notes
}

// Cancel is the customer facing cancellation, narrower than TransitionTo.
func (o *Order) Cancel(reason string, now time.Time) error {
	if !o.CanBeCancelled() {
		return fmt.Errorf("%w: status %s", ErrOrderNotCancellable, o.Status)
	}

	o.Status = OrderStatusCancelled
	o.CancelledAt = &now
	o.CancellationReason = strings.TrimSpace(reason)
	o.UpdatedAt = now

	return nil
}

func (o *Order) AddTracking(trackingNumber, trackingURL string, now time.Time) error {
	if o.Status != OrderStatusShipped {
		return fmt.Errorf("%w: tracking requires status %s, got %s", ErrInvalidState, OrderStatusShipped, o.Status)
	}
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return fmt.Errorf("%w: tracking number is empty", ErrInvalidInput)
	}

	o.TrackingNumber = trackingNumber
	o.TrackingURL = strings.TrimSpace(trackingURL)
	o.UpdatedAt = now

	return nil
}

// ApplyRefund records a refund. The order status is left untouched.
func (o *Order) ApplyRefund(amount decimal.Decimal, reason string, now time.Time) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: refund amount must be positive", ErrInvalidInput)
	}
	if !amount.Equal(amount.Round(centsExp)) {
		return fmt.Errorf("%w: refund amount %s has more than %d decimal places", ErrInvalidInput, amount, centsExp)
	}
	if amount.GreaterThan(o.Total) {
		return fmt.Errorf("%w: %s > %s", ErrRefundExceedsTotal, amount.StringFixed(centsExp), o.Total.StringFixed(centsExp))
	}

	o.RefundAmount = amount
	o.RefundReason = strings.TrimSpace(reason)
	o.RefundedAt = &now
	if amount.Equal(o.Total) {
		o.PaymentStatus = PaymentStatusRefunded
	} else {
		o.PaymentStatus = PaymentStatusPartiallyRefunded
	}
	o.UpdatedAt = now

	return nil
}

func (o Order) CanBeCancelled() bool {
	return o.Status.IsCancellable()
}

// CanBeReturned reports whether a delivered order is still within the return window.
func (o Order) CanBeReturned(now time.Time) bool {
	if o.Status != OrderStatusDelivered || o.DeliveredAt == nil {
		return false
	}
	return now.Sub(*o.DeliveredAt) <= ReturnWindow
}

func (o Order) IsDelivered() bool {
	return o.Status == OrderStatusDelivered
}

func (o Order) IsCancelled() bool {
	return o.Status == OrderStatusCancelled
}

func (o Order) Summary() OrderSummary {
	itemCount := 0
	for _, item := range o.Items {
		itemCount += item.Quantity
	}

	return OrderSummary{
		ItemCount:  itemCount,
		TotalItems: len(o.Items),
		TotalValue: o.Total,
		Status:     o.Status,
	}
}

// Quantities sums ordered quantities per catalog item.
func (o Order) Quantities() map[uuid.UUID]int {
	result := make(map[uuid.UUID]int, len(o.Items))
	for _, item := range o.Items {
		result[item.CatalogItemID] += item.Quantity
	}
	return result
}
