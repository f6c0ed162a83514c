package booking

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidMoney indicates provider-reported amounts that cannot be
// reconciled into finite figures. A snapshot must never be built from them.
var ErrInvalidMoney = errors.New("booking: invalid money values")

// PaymentStatus is derived purely from the reconciled money.
type PaymentStatus string

const (
	StatusPaid          PaymentStatus = "paid"
	StatusPartiallyPaid PaymentStatus = "partially_paid"
	StatusUnpaid        PaymentStatus = "unpaid"
)

// Money is the reconciled financial view of a booking. All fields are
// non-negative, rounded to two decimals and never NaN.
type Money struct {
	// BasePrice is the total price of the booking.
	BasePrice float64 `json:"basePrice" dynamodbav:"basePrice"`
	// StripePaid is the amount actually charged to the card.
	StripePaid float64 `json:"stripePaid" dynamodbav:"stripePaid"`
	// DiscountApplied is the promo/voucher value. It counts as paid: the
	// customer's obligation was reduced by that amount.
	DiscountApplied float64 `json:"discountApplied" dynamodbav:"discountApplied"`
	// AmountPaid = StripePaid + DiscountApplied.
	AmountPaid float64 `json:"amountPaid" dynamodbav:"amountPaid"`
	// BalanceDue = max(0, BasePrice - AmountPaid).
	BalanceDue float64 `json:"balanceDue" dynamodbav:"balanceDue"`
}

// ReconcileMoney reconstructs total price, total paid and balance due from
// the amounts the payment provider reports. The declared total is used only
// when it is a finite number greater than zero; otherwise the sale is fully
// paid by construction and the amount paid is the total. The charged amount
// is the more trustworthy figure, so it is never overridden by metadata.
func ReconcileMoney(stripePaid, discountApplied float64, declaredTotal *float64) (Money, error) {
	if !isFinite(stripePaid) || !isFinite(discountApplied) {
		return Money{}, fmt.Errorf("%w: paid=%v discount=%v", ErrInvalidMoney, stripePaid, discountApplied)
	}
	if declaredTotal != nil && !isFinite(*declaredTotal) {
		return Money{}, fmt.Errorf("%w: declared total=%v", ErrInvalidMoney, *declaredTotal)
	}

	// Provider amounts are clamped rather than rejected: a negative figure
	// can only come from upstream noise and must not surface downstream.
	stripePaid = math.Max(0, stripePaid)
	discountApplied = math.Max(0, discountApplied)

	amountPaid := stripePaid + discountApplied

	basePrice := amountPaid
	if declaredTotal != nil && *declaredTotal > 0 {
		basePrice = *declaredTotal
	}

	balanceDue := math.Max(0, basePrice-amountPaid)

	return Money{
		BasePrice:       round2(basePrice),
		StripePaid:      round2(stripePaid),
		DiscountApplied: round2(discountApplied),
		AmountPaid:      round2(amountPaid),
		BalanceDue:      round2(balanceDue),
	}, nil
}

// Status derives the payment status from the reconciled figures.
func (m Money) Status() PaymentStatus {
	switch {
	case m.BalanceDue <= 0:
		return StatusPaid
	case m.AmountPaid > 0:
		return StatusPartiallyPaid
	default:
		return StatusUnpaid
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
