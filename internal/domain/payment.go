package domain

import "errors"

type PaymentMethod string

const (
	PaymentMethodCreditCard     PaymentMethod = "credit_card"
	PaymentMethodDebitCard      PaymentMethod = "debit_card"
	PaymentMethodPayPal         PaymentMethod = "paypal"
	PaymentMethodStripe         PaymentMethod = "stripe"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

var validPaymentMethods = map[PaymentMethod]struct{}{
	PaymentMethodCreditCard:     {},
	PaymentMethodDebitCard:      {},
	PaymentMethodPayPal:         {},
	PaymentMethodStripe:         {},
	PaymentMethodCashOnDelivery: {},
}

func ToPaymentMethod(s string) (PaymentMethod, error) {
	method := PaymentMethod(s)
	if _, ok := validPaymentMethods[method]; ok {
		return method, nil
	}

	return "", errors.New("invalid payment method")
}

type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

var validPaymentStatuses = map[PaymentStatus]struct{}{
	PaymentStatusPending:           {},
	PaymentStatusPaid:              {},
	PaymentStatusFailed:            {},
	PaymentStatusRefunded:          {},
	PaymentStatusPartiallyRefunded: {},
}

func ToPaymentStatus(s string) (PaymentStatus, error) {
	status := PaymentStatus(s)
	if _, ok := validPaymentStatuses[status]; ok {
		return status, nil
	}

	return "", errors.New("invalid payment status")
}
