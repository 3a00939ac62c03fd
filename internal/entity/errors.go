package entity

import "errors"

var (
	// ErrValidation signals malformed or missing input.
	ErrValidation = errors.New("invalid input")
	// ErrNotFound indicates a missing order or product.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the caller may not perform the action.
	ErrForbidden = errors.New("forbidden")
	// ErrInsufficientStock indicates a line item exceeds available stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrPriceMismatch indicates the client-submitted total diverged from
	// the server-computed total beyond tolerance.
	ErrPriceMismatch = errors.New("amount validation failed")
	// ErrInvalidTransition indicates an illegal order-status transition.
	ErrInvalidTransition = errors.New("invalid status transition")
)
