package models

import (
	"errors"
	"fmt"
)

// Common errors used throughout the checkout pipeline
var (
	ErrNotFound                  = errors.New("not found")
	ErrContentNotFound           = fmt.Errorf("content %w", ErrNotFound)
	ErrOrderNotFound             = fmt.Errorf("order %w", ErrNotFound)
	ErrOrderGroupNotFound        = fmt.Errorf("order group %w", ErrNotFound)
	ErrTicketNotFound            = fmt.Errorf("ticket %w", ErrNotFound)
	ErrInvalidTier               = errors.New("invalid ticket type")
	ErrMissingBuyerEmail         = errors.New("buyer email is required")
	ErrInsufficientInventory     = errors.New("insufficient tickets available")
	ErrPaymentGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrNotSupported              = errors.New("payment method not supported")
	ErrSignatureVerification     = errors.New("webhook signature verification failed")
	ErrAlreadyUsed               = errors.New("ticket already used")
	ErrContentMismatch           = errors.New("ticket is not valid for this content")
	ErrAlreadyFulfilled          = errors.New("order already fulfilled")
	ErrFulfillmentFailed         = errors.New("fulfillment failed")
	ErrDuplicateEntry            = errors.New("duplicate entry")
)

// ValidationError describes a user-fixable problem with request input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// InsufficientInventoryError names the content that cannot cover a requested quantity.
type InsufficientInventoryError struct {
	ContentID string
	Title     string
	Requested int
	Available int
}

func (e *InsufficientInventoryError) Error() string {
	name := e.Title
	if name == "" {
		name = e.ContentID
	}
	return fmt.Sprintf("not enough tickets for %q: requested %d, available %d", name, e.Requested, e.Available)
}

func (e *InsufficientInventoryError) Is(target error) bool {
	return target == ErrInsufficientInventory
}

// PaymentError carries the id of the unpaid group or order created before the
// payment step failed, so the client can retry with another method.
type PaymentError struct {
	Err          error
	OrderGroupID string
	OrderID      string
}

func (e *PaymentError) Error() string {
	return e.Err.Error()
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err is a user-fixable input error.
func IsValidationError(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	return errors.Is(err, ErrInvalidTier) || errors.Is(err, ErrMissingBuyerEmail)
}
