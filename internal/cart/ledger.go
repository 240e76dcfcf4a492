package cart

import (
	"context"
	"errors"
	"sync"

	"storefront/internal/domain"
	"storefront/internal/store"
)

// Ledger is the in-memory cart, uniquely keyed by menu item id and
// persisted as a whole snapshot after every mutation. Entries keep
// their insertion order.
type Ledger struct {
	mu    sync.Mutex
	state store.ClientState
	items []domain.CartItem
}

// NewLedger restores the persisted cart if one exists.
func NewLedger(ctx context.Context, state store.ClientState) (*Ledger, error) {
	l := &Ledger{state: state}
	items, err := state.LoadCart(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	l.items = items
	return l, nil
}

// Add puts one more unit of the item in the cart. Out-of-stock and
// unavailable items are rejected, as is any quantity that would exceed
// the item's known stock; the ledger is left untouched on rejection.
func (l *Ledger) Add(ctx context.Context, item domain.MenuItem) error {
	if item.Stock < 1 {
		return domain.ErrOutOfStock
	}
	if !item.Availability {
		return domain.ErrUnavailable
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.items {
		if l.items[i].ID == item.ID {
			if l.items[i].Quantity+1 > l.items[i].Stock {
				return domain.ErrStockExceeded
			}
			l.items[i].Quantity++
			return l.persist(ctx)
		}
	}
	l.items = append(l.items, domain.CartItem{MenuItem: item, Quantity: 1})
	return l.persist(ctx)
}

// Reduce removes one unit of the item, dropping the entry entirely when
// its quantity reaches zero.
func (l *Ledger) Reduce(ctx context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.items {
		if l.items[i].ID != id {
			continue
		}
		l.items[i].Quantity--
		if l.items[i].Quantity <= 0 {
			l.items = append(l.items[:i], l.items[i+1:]...)
		}
		return l.persist(ctx)
	}
	return domain.ErrNotInCart
}

func (l *Ledger) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
	return l.persist(ctx)
}

func (l *Ledger) Items() []domain.CartItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.CartItem(nil), l.items...)
}

func (l *Ledger) Total() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total float64
	for _, item := range l.items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

func (l *Ledger) persist(ctx context.Context) error {
	return l.state.SaveCart(ctx, l.items)
}
