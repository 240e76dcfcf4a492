package store

import (
	"context"
	"errors"

	"storefront/internal/domain"
)

var ErrNotFound = errors.New("not found")

// ClientState is the persistence surface for client-local state: the
// current credential and the cart snapshot. Writes happen synchronously
// inside the mutating component so a concurrent reload observes a
// consistent value. Clear wipes everything at once (logout, or an
// unrecoverable refresh failure).
type ClientState interface {
	SaveCredential(ctx context.Context, cred domain.Credential) error
	LoadCredential(ctx context.Context) (domain.Credential, error)
	ClearCredential(ctx context.Context) error

	SaveCart(ctx context.Context, items []domain.CartItem) error
	LoadCart(ctx context.Context) ([]domain.CartItem, error)

	Clear(ctx context.Context) error
}
