package domain

import (
	"errors"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// PricingPolicy holds the store-wide charges applied on top of an order subtotal.
type PricingPolicy struct {
	Currency              currency.Unit
	FreeShippingThreshold decimal.Decimal // shipping is free when the subtotal is strictly greater
	FlatShippingFee       decimal.Decimal
	TaxRate               decimal.Decimal
	GiftWrapCost          decimal.Decimal
}

func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		Currency:              currency.USD,
		FreeShippingThreshold: decimal.NewFromInt(50),
		FlatShippingFee:       decimal.RequireFromString("9.99"),
		TaxRate:               decimal.RequireFromString("0.08"),
		GiftWrapCost:          decimal.Zero,
	}
}

func (p PricingPolicy) Validate() error {
	if p.Currency == (currency.Unit{}) {
		return errors.New("currency is empty")
	}
	if p.FreeShippingThreshold.IsNegative() {
		return errors.New("free shipping threshold is negative")
	}
	if p.FlatShippingFee.IsNegative() {
		return errors.New("flat shipping fee is negative")
	}
	if p.TaxRate.IsNegative() || p.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return errors.New("tax rate must be within [0, 1]")
	}
	if p.GiftWrapCost.IsNegative() {
		return errors.New("gift wrap cost is negative")
	}
	return nil
}

func (p PricingPolicy) ShippingFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.FlatShippingFee
}

func (p PricingPolicy) TaxFor(subtotal decimal.Decimal) decimal.Decimal {
	return roundCents(subtotal.Mul(p.TaxRate))
}

func (p PricingPolicy) GiftWrapFor(gift GiftOptions) decimal.Decimal {
	if !gift.IsWrapped {
		return decimal.Zero
	}
	return p.GiftWrapCost
}
