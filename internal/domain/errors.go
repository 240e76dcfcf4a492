package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired means the credential could not be refreshed.
	// Persisted client state is cleared and the caller must sign in again.
	ErrSessionExpired = errors.New("session expired")

	ErrOutOfStock    = errors.New("item is out of stock")
	ErrUnavailable   = errors.New("item is currently unavailable")
	ErrStockExceeded = errors.New("cannot add more than available stock")
	ErrNotInCart     = errors.New("item not found in cart")

	ErrCartInvalid   = errors.New("cart failed validation")
	ErrPaymentFailed = errors.New("payment verification failed")
)

// ValidationError reports user-correctable input, handled at the call
// site rather than escalated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// APIError is a non-2xx response from the storefront API, carrying the
// server's {message} body when one was provided.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}
