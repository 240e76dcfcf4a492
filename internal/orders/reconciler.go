package orders

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"storefront/internal/domain"
	"storefront/internal/events"
)

// Puller fetches one page of orders. *api.Client satisfies this.
type Puller interface {
	Orders(ctx context.Context, q domain.OrderQuery) ([]domain.Order, int, error)
}

// Reconciler merges paginated pulls and push events into one consistent
// view of orders. It owns the current page; nothing else mutates it.
// Push events patch records in place between pulls, a completed pull
// replaces the page wholesale, and events for ids outside the current
// page are dropped (the next pull resynchronizes fully). Events apply
// in arrival order; no business-time reordering is attempted.
type Reconciler struct {
	puller    Puller
	allOrders bool // kitchen/admin view subscribed to every order

	mu         sync.Mutex
	nextSeq    uint64
	appliedSeq uint64
	page       domain.OrderPage
	hasPage    bool
}

func NewReconciler(puller Puller, allOrders bool) *Reconciler {
	return &Reconciler{puller: puller, allOrders: allOrders}
}

// LoadPage pulls the requested page and, on success, replaces the
// current page atomically. Pulls carry a monotonically increasing
// sequence number: a completion older than one already applied is
// discarded, so racing pulls can never interleave rows. A failed pull
// keeps the previous page visible and reports the error.
func (r *Reconciler) LoadPage(ctx context.Context, q domain.OrderQuery) (domain.OrderPage, error) {
	r.mu.Lock()
	r.nextSeq++
	seq := r.nextSeq
	r.mu.Unlock()

	items, total, err := r.puller.Orders(ctx, q)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		return r.snapshotLocked(), err
	}
	if seq <= r.appliedSeq {
		// A newer pull already landed; this result is stale.
		return r.snapshotLocked(), nil
	}
	r.appliedSeq = seq
	r.page = domain.OrderPage{
		Items: append([]domain.Order(nil), items...),
		Page:  q.Page,
		Limit: q.Limit,
		Total: total,
	}
	r.hasPage = true
	return r.snapshotLocked(), nil
}

// ApplyStatusEvent patches the matching record's status in place.
// Returns false when the id is not on the current page and the event
// was dropped.
func (r *Reconciler) ApplyStatusEvent(orderID int64, status domain.OrderStatus) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.page.Items {
		if r.page.Items[i].ID == orderID {
			r.page.Items[i].Status = status
			return true
		}
	}
	return false
}

// ApplyPaymentEvent patches the matching record's payment status along
// with the order status the server derived from the payment outcome.
func (r *Reconciler) ApplyPaymentEvent(orderID int64, payment domain.PaymentStatus, derived domain.OrderStatus) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.page.Items {
		if r.page.Items[i].ID == orderID {
			r.page.Items[i].PaymentStatus = payment
			if derived != "" {
				r.page.Items[i].Status = derived
			}
			return true
		}
	}
	return false
}

// ApplyNewOrder prepends an order pushed to the all-orders view. An id
// already on the page is patched rather than duplicated.
func (r *Reconciler) ApplyNewOrder(order domain.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.page.Items {
		if r.page.Items[i].ID == order.ID {
			r.page.Items[i] = order
			return
		}
	}
	r.page.Items = append([]domain.Order{order}, r.page.Items...)
	r.page.Total++
	r.hasPage = true
}

// Page returns a copy of the current page. The second return is false
// until the first successful pull (or pushed order) lands.
func (r *Reconciler) Page() (domain.OrderPage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(), r.hasPage
}

func (r *Reconciler) snapshotLocked() domain.OrderPage {
	snap := r.page
	snap.Items = append([]domain.Order(nil), r.page.Items...)
	return snap
}

// Bind subscribes the reconciler to the push channel's order events.
// new-order is only wired for the all-orders view; a per-user view
// picks new orders up on its next pull.
func (r *Reconciler) Bind(ch events.Channel) {
	ch.On(domain.EventOrderUpdated, func(data json.RawMessage) {
		var ev domain.StatusEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("bad order-updated payload: %v", err)
			return
		}
		r.ApplyStatusEvent(ev.OrderID, ev.Status)
	})
	ch.On(domain.EventOrderPaid, func(data json.RawMessage) {
		var ev domain.PaymentEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("bad order-paid payload: %v", err)
			return
		}
		r.ApplyPaymentEvent(ev.OrderID, ev.PaymentStatus, ev.OrderStatus)
	})
	if r.allOrders {
		ch.On(domain.EventNewOrder, func(data json.RawMessage) {
			var order domain.Order
			if err := json.Unmarshal(data, &order); err != nil {
				log.Printf("bad new-order payload: %v", err)
				return
			}
			r.ApplyNewOrder(order)
		})
	}
}
