package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"storefront/internal/api"
	"storefront/internal/cart"
	"storefront/internal/domain"
)

// PaymentResult is whatever the provider's widget hands back on
// completion; it is forwarded verbatim to the server for verification.
type PaymentResult struct {
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
	Success   bool   `json:"success"`
}

// PaymentProvider is the opaque checkout widget: invoked with an amount
// and an order reference, it reports how the payment went. The real
// implementation lives outside this module.
type PaymentProvider interface {
	Pay(ctx context.Context, amount float64, orderRef string) (PaymentResult, error)
}

// Gateway is the slice of the API client the checkout flow needs.
type Gateway interface {
	ValidateCart(ctx context.Context, items []domain.CartItem) (bool, error)
	CreateOrder(ctx context.Context, amount float64, items []domain.CartItem, notes, idempotencyKey string) (api.PaymentOrder, error)
	VerifyPayment(ctx context.Context, orderID string, paymentResult interface{}) (bool, error)
}

type Receipt struct {
	OrderID string
	Amount  float64
}

type Flow struct {
	gateway  Gateway
	ledger   *cart.Ledger
	provider PaymentProvider
}

func NewFlow(gateway Gateway, ledger *cart.Ledger, provider PaymentProvider) *Flow {
	return &Flow{gateway: gateway, ledger: ledger, provider: provider}
}

// PlaceOrder runs the whole checkout: validate the cart against current
// prices and stock, create the provider-side order, invoke the payment
// widget, verify the outcome server-side, and only then clear the cart.
// Any failure along the way leaves the cart as it was.
func (f *Flow) PlaceOrder(ctx context.Context, notes string) (Receipt, error) {
	items := f.ledger.Items()
	if len(items) == 0 {
		return Receipt{}, &domain.ValidationError{Field: "cart", Reason: "cart is empty"}
	}

	valid, err := f.gateway.ValidateCart(ctx, items)
	if err != nil {
		return Receipt{}, fmt.Errorf("validate cart: %w", err)
	}
	if !valid {
		return Receipt{}, domain.ErrCartInvalid
	}

	order, err := f.gateway.CreateOrder(ctx, f.ledger.Total(), items, notes, uuid.NewString())
	if err != nil {
		return Receipt{}, fmt.Errorf("create order: %w", err)
	}

	result, err := f.provider.Pay(ctx, order.Amount, order.ID)
	if err != nil {
		return Receipt{}, fmt.Errorf("payment provider: %w", err)
	}
	if !result.Success {
		return Receipt{}, domain.ErrPaymentFailed
	}

	verified, err := f.gateway.VerifyPayment(ctx, order.ID, result)
	if err != nil {
		return Receipt{}, fmt.Errorf("verify payment: %w", err)
	}
	if !verified {
		return Receipt{}, domain.ErrPaymentFailed
	}

	if err := f.ledger.Clear(ctx); err != nil {
		return Receipt{}, fmt.Errorf("clear cart: %w", err)
	}
	return Receipt{OrderID: order.ID, Amount: order.Amount}, nil
}
