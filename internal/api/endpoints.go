package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"storefront/internal/domain"
)

// call sends one JSON request and decodes the response into out when
// provided. Non-2xx responses become *domain.APIError.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	var body []byte
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = raw
	}
	resp, err := c.Do(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}
	if out != nil && len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}

type SignUpInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Password  string `json:"password"`
}

// SignIn authenticates and installs the returned credential as the
// current one.
func (c *Client) SignIn(ctx context.Context, email, password string) (domain.Credential, error) {
	var cred domain.Credential
	err := c.call(ctx, http.MethodPost, "/auth/signin", nil, map[string]string{
		"email":    email,
		"password": password,
	}, &cred)
	if err != nil {
		return domain.Credential{}, err
	}
	if err := c.creds.Set(ctx, cred); err != nil {
		return domain.Credential{}, fmt.Errorf("persist credential: %w", err)
	}
	return cred, nil
}

func (c *Client) SignUp(ctx context.Context, in SignUpInput) error {
	return c.call(ctx, http.MethodPost, "/auth/signup", nil, in, nil)
}

// Logout tells the server to revoke the session and wipes all persisted
// client state. Local state is cleared even when the call fails; a
// dead session is not worth keeping around.
func (c *Client) Logout(ctx context.Context) error {
	callErr := c.call(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
	if err := c.creds.Clear(ctx); err != nil {
		return err
	}
	if c.state != nil {
		if err := c.state.Clear(ctx); err != nil {
			return err
		}
	}
	return callErr
}

type MenuQuery struct {
	Page     int
	Limit    int
	Sort     string
	Category string
}

func (q MenuQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	return v
}

func (c *Client) Menu(ctx context.Context, q MenuQuery) ([]domain.MenuItem, int, error) {
	var env struct {
		Data  []domain.MenuItem `json:"data"`
		Total int               `json:"total"`
	}
	if err := c.call(ctx, http.MethodGet, "/menu", q.values(), nil, &env); err != nil {
		return nil, 0, err
	}
	return env.Data, env.Total, nil
}

func (c *Client) CreateMenuItem(ctx context.Context, item domain.MenuItem) error {
	return c.call(ctx, http.MethodPost, "/menu", nil, item, nil)
}

func (c *Client) UpdateMenuItem(ctx context.Context, item domain.MenuItem) error {
	return c.call(ctx, http.MethodPut, fmt.Sprintf("/menu/%d", item.ID), nil, item, nil)
}

func (c *Client) DeleteMenuItem(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/menu/%d", id), nil, nil, nil)
}

// Orders pulls one page of the order list. Admins see every order via
// /orders/all; everyone else gets /orders/my-orders.
func (c *Client) Orders(ctx context.Context, q domain.OrderQuery) ([]domain.Order, int, error) {
	path := "/orders/my-orders"
	if q.All {
		path = "/orders/all"
	}
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	var env struct {
		Data  []domain.Order `json:"data"`
		Total int            `json:"total"`
	}
	if err := c.call(ctx, http.MethodGet, path, v, nil, &env); err != nil {
		return nil, 0, err
	}
	return env.Data, env.Total, nil
}

func (c *Client) Order(ctx context.Context, id int64) (domain.Order, error) {
	var order domain.Order
	err := c.call(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", id), nil, nil, &order)
	return order, err
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	return c.call(ctx, http.MethodPut, fmt.Sprintf("/orders/%d/status", id), nil, map[string]domain.OrderStatus{
		"status": status,
	}, nil)
}

func (c *Client) PlaceOrder(ctx context.Context, items []domain.CartItem, notes string) (domain.Order, error) {
	var order domain.Order
	err := c.call(ctx, http.MethodPost, "/orders", nil, map[string]interface{}{
		"cart":  items,
		"notes": notes,
	}, &order)
	return order, err
}

// PaymentOrder is the provider-side order created before the checkout
// widget is invoked.
type PaymentOrder struct {
	ID     string  `json:"id"`
	Amount float64 `json:"amount"`
}

func (c *Client) CreateOrder(ctx context.Context, amount float64, items []domain.CartItem, notes, idempotencyKey string) (PaymentOrder, error) {
	var order PaymentOrder
	err := c.call(ctx, http.MethodPost, "/orders/create-order", nil, map[string]interface{}{
		"amount":         amount,
		"cart":           items,
		"notes":          notes,
		"idempotencyKey": idempotencyKey,
	}, &order)
	return order, err
}

func (c *Client) VerifyPayment(ctx context.Context, orderID string, paymentResult interface{}) (bool, error) {
	var out struct {
		Success bool `json:"success"`
	}
	err := c.call(ctx, http.MethodPost, "/orders/verify-payment", nil, map[string]interface{}{
		"orderId":       orderID,
		"paymentResult": paymentResult,
	}, &out)
	return out.Success, err
}

func (c *Client) ValidateCart(ctx context.Context, items []domain.CartItem) (bool, error) {
	var out struct {
		Valid bool `json:"valid"`
	}
	err := c.call(ctx, http.MethodPost, "/orders/validateCart", nil, map[string]interface{}{
		"cart": items,
	}, &out)
	return out.Valid, err
}
