package model

import "errors"

var (
	// ErrInvalidAmount is returned when a redemption amount resolves to zero or less.
	ErrInvalidAmount = errors.New("redemption amount must be greater than zero")

	// ErrNoRemainingValue is returned when a voucher balance is already exhausted.
	ErrNoRemainingValue = errors.New("voucher has no remaining value")

	// ErrAmountExceedsRemaining is returned when a redemption would exceed the remaining value.
	ErrAmountExceedsRemaining = errors.New("redemption amount exceeds remaining value")

	// ErrQuantityExceedsRemaining is returned when a single-purpose redemption asks for
	// more units than the voucher has left.
	ErrQuantityExceedsRemaining = errors.New("redemption quantity exceeds remaining quantity")

	// ErrAmountNotMultipleOfUnitPrice is returned when a single-purpose voucher is
	// redeemed for anything other than a whole number of units.
	ErrAmountNotMultipleOfUnitPrice = errors.New("redemption amount must be a multiple of the voucher unit price")

	// ErrCurrencyMismatch is returned when a voucher currency does not match the order currency.
	ErrCurrencyMismatch = errors.New("voucher currency does not match order currency")

	// ErrNotEditable is returned when a voucher is not in a status that permits the operation.
	ErrNotEditable = errors.New("voucher is not editable in its current status")

	// ErrNotRedeemable is returned when a voucher cannot accept redemptions
	// (expired, voided, pending, or not valid for online use).
	ErrNotRedeemable = errors.New("voucher is not redeemable")

	// ErrInvalidTransition is returned when a status change is not in the transition table.
	ErrInvalidTransition = errors.New("invalid voucher status transition")
)
