package domain

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusReady     OrderStatus = "READY"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "UNPAID"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Push channel event names consumed and emitted by the client.
const (
	EventNewOrder     = "new-order"
	EventOrderPaid    = "order-paid"
	EventOrderUpdated = "order-updated"
	EventJoinKitchen  = "join-kitchen"
)

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
}

// Credential is the short-lived access token plus the identity it was
// issued for. At most one credential is current per client.
type Credential struct {
	AccessToken string `json:"accessToken"`
	User        User   `json:"user"`
}

type MenuItem struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	Stock           int     `json:"stock"`
	Category        string  `json:"category"`
	Availability    bool    `json:"availability"`
	Description     string  `json:"description,omitempty"`
	ImageURL        string  `json:"image_url,omitempty"`
	PreparationTime int     `json:"preparation_time"`
	CreatedAt       string  `json:"created_at,omitempty"`
}

type CartItem struct {
	MenuItem
	Quantity int `json:"quantity"`
}

type Order struct {
	ID            int64         `json:"id"`
	UserID        int64         `json:"user_id"`
	TotalAmount   float64       `json:"total_amount"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Notes         string        `json:"notes,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// OrderQuery identifies one pulled view of the order list.
type OrderQuery struct {
	Page   int
	Limit  int
	Status string // CSV of OrderStatus values, empty for all
	Sort   string
	All    bool // admin/kitchen view across every user
}

// OrderPage is a read-only snapshot of one page of orders. It is
// replaced wholesale by a pull and patched in place by push events.
type OrderPage struct {
	Items []Order
	Page  int
	Limit int
	Total int
}

// StatusEvent is the payload of an order-updated push.
type StatusEvent struct {
	OrderID int64       `json:"orderId"`
	Status  OrderStatus `json:"status"`
}

// PaymentEvent is the payload of an order-paid push. The server derives
// the order status transition that accompanies the payment outcome.
type PaymentEvent struct {
	OrderID       int64         `json:"orderId"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	OrderStatus   OrderStatus   `json:"orderStatus"`
}
