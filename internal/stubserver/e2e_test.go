package stubserver_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront/internal/api"
	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/domain"
	"storefront/internal/events/ws"
	"storefront/internal/orders"
	"storefront/internal/store/memory"
	"storefront/internal/stubserver"
)

type autoApprove struct{}

func (autoApprove) Pay(_ context.Context, _ float64, _ string) (checkout.PaymentResult, error) {
	return checkout.PaymentResult{PaymentID: "pay_ok", Signature: "sig", Success: true}, nil
}

func newStack(t *testing.T) (*stubserver.Server, *httptest.Server, *api.Client, *auth.CredentialStore, *memory.Store) {
	t.Helper()
	stub := stubserver.NewServer("e2e-secret", time.Hour)
	srv := httptest.NewServer(stub.Router())
	t.Cleanup(srv.Close)

	state := memory.NewStore()
	creds := auth.NewCredentialStore(state)
	client := api.NewClient(srv.URL, creds, state, &http.Client{Timeout: 5 * time.Second}, 0)
	return stub, srv, client, creds, state
}

func eventsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
}

func TestE2E_SignInBrowseAndCheckout(t *testing.T) {
	stub, _, client, creds, state := newStack(t)
	stub.SeedUser("Asha", "Rao", "asha@test", "pw", domain.RoleUser)
	dosa := stub.SeedMenuItem(domain.MenuItem{Name: "Masala Dosa", Price: 120, Stock: 10, Availability: true})
	ctx := context.Background()

	if _, err := client.SignIn(ctx, "asha@test", "pw"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if _, ok := creds.Token(); !ok {
		t.Fatal("no credential after sign in")
	}

	items, total, err := client.Menu(ctx, api.MenuQuery{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("menu: %v", err)
	}
	if total != 1 || items[0].Name != "Masala Dosa" {
		t.Fatalf("unexpected menu: %d %+v", total, items)
	}

	ledger, err := cart.NewLedger(ctx, state)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if err := ledger.Add(ctx, dosa); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	if err := ledger.Add(ctx, dosa); err != nil {
		t.Fatalf("add to cart: %v", err)
	}

	flow := checkout.NewFlow(client, ledger, autoApprove{})
	receipt, err := flow.PlaceOrder(ctx, "extra chutney")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if receipt.Amount != 240 {
		t.Fatalf("receipt amount = %v, want 240", receipt.Amount)
	}
	if len(ledger.Items()) != 0 {
		t.Fatal("cart not cleared after checkout")
	}

	pulled, n, err := client.Orders(ctx, domain.OrderQuery{Page: 1, Limit: 5})
	if err != nil {
		t.Fatalf("orders: %v", err)
	}
	if n != 1 || pulled[0].PaymentStatus != domain.PaymentStatusPaid || pulled[0].TotalAmount != 240 {
		t.Fatalf("unexpected order list: %d %+v", n, pulled)
	}
}

func TestE2E_ExpiredTokenIsRefreshedTransparently(t *testing.T) {
	stub, _, client, creds, _ := newStack(t)
	stub.SeedUser("Asha", "Rao", "asha@test", "pw", domain.RoleUser)
	ctx := context.Background()

	cred, err := client.SignIn(ctx, "asha@test", "pw")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	stub.ExpireSessions()

	if _, _, err := client.Orders(ctx, domain.OrderQuery{Page: 1}); err != nil {
		t.Fatalf("orders after expiry: %v", err)
	}
	if got := stub.RefreshCalls(); got != 1 {
		t.Fatalf("expected exactly 1 refresh call, got %d", got)
	}
	tok, _ := creds.Token()
	if tok == cred.AccessToken {
		t.Fatal("access token was not replaced")
	}

	// Subsequent calls ride the refreshed token without another refresh.
	if _, _, err := client.Orders(ctx, domain.OrderQuery{Page: 1}); err != nil {
		t.Fatalf("orders with refreshed token: %v", err)
	}
	if got := stub.RefreshCalls(); got != 1 {
		t.Fatalf("unexpected extra refresh, got %d", got)
	}
}

func TestE2E_RevokedRefreshEndsSession(t *testing.T) {
	stub, _, client, creds, _ := newStack(t)
	stub.SeedUser("Asha", "Rao", "asha@test", "pw", domain.RoleUser)
	ctx := context.Background()

	if _, err := client.SignIn(ctx, "asha@test", "pw"); err != nil {
		t.Fatalf("sign in: %v", err)
	}

	stub.ExpireSessions()
	stub.RevokeRefreshTokens()

	_, _, err := client.Orders(ctx, domain.OrderQuery{Page: 1})
	if !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if _, ok := creds.Token(); ok {
		t.Fatal("credential still present after session expiry")
	}
}

func TestE2E_KitchenViewReceivesPushes(t *testing.T) {
	stub, srv, client, _, _ := newStack(t)
	stub.SeedUser("Kit", "Chen", "kitchen@test", "pw", domain.RoleAdmin)
	stub.SeedUser("Asha", "Rao", "asha@test", "pw", domain.RoleUser)
	ctx := context.Background()

	// Kitchen terminal: admin session, all-orders view bound to pushes.
	if _, err := client.SignIn(ctx, "kitchen@test", "pw"); err != nil {
		t.Fatalf("admin sign in: %v", err)
	}
	reconciler := orders.NewReconciler(client, true)
	channel := ws.NewChannel(eventsURL(srv), nil)
	reconciler.Bind(channel)
	if err := channel.Connect(ctx); err != nil {
		t.Fatalf("connect push channel: %v", err)
	}
	defer channel.Disconnect()
	if err := channel.Emit(domain.EventJoinKitchen, map[string]string{}); err != nil {
		t.Fatalf("join kitchen: %v", err)
	}

	// A separate customer session places an order.
	customerState := memory.NewStore()
	customer := api.NewClient(srv.URL, auth.NewCredentialStore(customerState), customerState, &http.Client{Timeout: 5 * time.Second}, 0)
	if _, err := customer.SignIn(ctx, "asha@test", "pw"); err != nil {
		t.Fatalf("customer sign in: %v", err)
	}
	// Give the hub a moment to register the kitchen subscription.
	time.Sleep(100 * time.Millisecond)
	placed, err := customer.PlaceOrder(ctx, []domain.CartItem{
		{MenuItem: domain.MenuItem{ID: 1, Name: "Dosa", Price: 120, Stock: 5, Availability: true}, Quantity: 1},
	}, "")
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	waitFor(t, func() bool {
		page, ok := reconciler.Page()
		return ok && len(page.Items) == 1 && page.Items[0].ID == placed.ID
	}, "new-order push never reached the kitchen view")

	// Admin moves the order along; the same view sees the patch.
	if err := client.UpdateOrderStatus(ctx, placed.ID, domain.OrderStatusPreparing); err != nil {
		t.Fatalf("update status: %v", err)
	}
	waitFor(t, func() bool {
		page, _ := reconciler.Page()
		return page.Items[0].Status == domain.OrderStatusPreparing
	}, "order-updated push never patched the page")
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal(msg)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
