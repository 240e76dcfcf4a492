package stubserver

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"storefront/internal/domain"
)

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	account, ok := s.usersByEmail[req.Email]
	s.mu.Unlock()
	if !ok || account.password != req.Password {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.signToken(account.user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to sign token")
		return
	}

	session := uuid.NewString()
	s.mu.Lock()
	s.sessions[session] = account.user.ID
	s.mu.Unlock()
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    session,
		Path:     "/",
		HttpOnly: true,
	})

	writeJSON(w, http.StatusOK, domain.Credential{AccessToken: token, User: account.user})
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
		Password  string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	s.mu.Lock()
	if _, exists := s.usersByEmail[req.Email]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	s.nextUserID++
	u := domain.User{
		ID:        s.nextUserID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Role:      domain.RoleUser,
	}
	s.usersByEmail[req.Email] = &stubUser{user: u, password: req.Password}
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]string{"message": "account created"})
}

func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&s.refreshCalls, 1)

	cookie, err := r.Cookie(refreshCookie)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing refresh token")
		return
	}

	s.mu.Lock()
	userID, ok := s.sessions[cookie.Value]
	var account *stubUser
	if ok {
		for _, candidate := range s.usersByEmail {
			if candidate.user.ID == userID {
				account = candidate
				break
			}
		}
	}
	s.mu.Unlock()
	if account == nil {
		writeError(w, http.StatusUnauthorized, "refresh token revoked")
		return
	}

	token, err := s.signToken(account.user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to sign token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(refreshCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, cookie.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: refreshCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleListMenu(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	items := make([]domain.MenuItem, 0, len(s.menuIDs))
	for _, id := range s.menuIDs {
		item := s.menu[id]
		if category := r.URL.Query().Get("category"); category != "" && !strings.Contains(item.Category, category) {
			continue
		}
		items = append(items, item)
	}
	s.mu.Unlock()

	page, limit := pageParams(r)
	writeJSON(w, http.StatusOK, paginate(items, page, limit))
}

func (s *Server) handleCreateMenuItem(w http.ResponseWriter, r *http.Request) {
	var item domain.MenuItem
	if err := decodeJSON(r, &item); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if item.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	created := s.SeedMenuItem(item)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad menu id")
		return
	}
	var item domain.MenuItem
	if err := decodeJSON(r, &item); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.menu[id]; !ok {
		writeError(w, http.StatusNotFound, "menu item not found")
		return
	}
	item.ID = id
	s.menu[id] = item
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad menu id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.menu[id]; !ok {
		writeError(w, http.StatusNotFound, "menu item not found")
		return
	}
	delete(s.menu, id)
	for i, mid := range s.menuIDs {
		if mid == id {
			s.menuIDs = append(s.menuIDs[:i], s.menuIDs[i+1:]...)
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	user, _ := r.Context().Value(contextKeyUser).(domain.User)
	s.writeOrderPage(w, r, func(o domain.Order) bool { return o.UserID == user.ID })
}

func (s *Server) handleAllOrders(w http.ResponseWriter, r *http.Request) {
	s.writeOrderPage(w, r, func(domain.Order) bool { return true })
}

func (s *Server) writeOrderPage(w http.ResponseWriter, r *http.Request, include func(domain.Order) bool) {
	statusFilter := map[domain.OrderStatus]bool{}
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, st := range strings.Split(raw, ",") {
			statusFilter[domain.OrderStatus(strings.TrimSpace(st))] = true
		}
	}

	s.mu.Lock()
	orders := make([]domain.Order, 0, len(s.orderIDs))
	for _, id := range s.orderIDs {
		o := s.orders[id]
		if !include(o) {
			continue
		}
		if len(statusFilter) > 0 && !statusFilter[o.Status] {
			continue
		}
		orders = append(orders, o)
	}
	s.mu.Unlock()

	switch r.URL.Query().Get("sort") {
	case "total_amount":
		sort.SliceStable(orders, func(i, j int) bool { return orders[i].TotalAmount < orders[j].TotalAmount })
	case "status":
		sort.SliceStable(orders, func(i, j int) bool { return orders[i].Status < orders[j].Status })
	default: // created_at, newest first
		sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	}

	page, limit := pageParams(r)
	writeJSON(w, http.StatusOK, paginateOrders(orders, page, limit))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad order id")
		return
	}
	user, _ := r.Context().Value(contextKeyUser).(domain.User)

	s.mu.Lock()
	order, ok := s.orders[id]
	s.mu.Unlock()
	if !ok || (user.Role != domain.RoleAdmin && order.UserID != user.ID) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cart  []domain.CartItem `json:"cart"`
		Notes string            `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Cart) == 0 {
		writeError(w, http.StatusBadRequest, "cart is empty")
		return
	}

	user, _ := r.Context().Value(contextKeyUser).(domain.User)
	order := s.createOrder(user.ID, req.Cart, req.Notes, domain.PaymentStatusUnpaid)
	s.hub.broadcast(domain.EventNewOrder, order, true)
	writeJSON(w, http.StatusCreated, order)
}

func (s *Server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad order id")
		return
	}
	var req struct {
		Status domain.OrderStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	order, ok := s.orders[id]
	if ok {
		order.Status = req.Status
		order.UpdatedAt = time.Now().UTC()
		s.orders[id] = order
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	s.hub.broadcast(domain.EventOrderUpdated, domain.StatusEvent{OrderID: id, Status: req.Status}, false)
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount         float64           `json:"amount"`
		Cart           []domain.CartItem `json:"cart"`
		Notes          string            `json:"notes"`
		IdempotencyKey string            `json:"idempotencyKey"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	user, _ := r.Context().Value(contextKeyUser).(domain.User)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Replaying the same idempotency key returns the same payment order.
	if req.IdempotencyKey != "" {
		if existingID, ok := s.payByIdemKey[req.IdempotencyKey]; ok {
			existing := s.payOrders[existingID]
			writeJSON(w, http.StatusOK, map[string]interface{}{"id": existing.id, "amount": existing.amount})
			return
		}
	}
	po := &paymentOrder{
		id:     "pay_" + uuid.NewString(),
		amount: req.Amount,
		cart:   req.Cart,
		notes:  req.Notes,
		userID: user.ID,
	}
	s.payOrders[po.id] = po
	if req.IdempotencyKey != "" {
		s.payByIdemKey[req.IdempotencyKey] = po.id
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": po.id, "amount": po.amount})
}

func (s *Server) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID       string `json:"orderId"`
		PaymentResult struct {
			PaymentID string `json:"paymentId"`
			Signature string `json:"signature"`
			Success   bool   `json:"success"`
		} `json:"paymentResult"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	po, ok := s.payOrders[req.OrderID]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "payment order not found")
		return
	}
	if !req.PaymentResult.Success || req.PaymentResult.PaymentID == "" {
		writeJSON(w, http.StatusOK, map[string]bool{"success": false})
		return
	}

	order := s.createOrder(po.userID, po.cart, po.notes, domain.PaymentStatusPaid)
	s.hub.broadcast(domain.EventNewOrder, order, true)
	s.hub.broadcast(domain.EventOrderPaid, domain.PaymentEvent{
		OrderID:       order.ID,
		PaymentStatus: domain.PaymentStatusPaid,
		OrderStatus:   order.Status,
	}, false)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleValidateCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cart []domain.CartItem `json:"cart"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	valid := len(req.Cart) > 0
	for _, item := range req.Cart {
		current, ok := s.menu[item.ID]
		if !ok || current.Price != item.Price || !current.Availability || current.Stock < item.Quantity {
			valid = false
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

func (s *Server) createOrder(userID int64, items []domain.CartItem, notes string, payment domain.PaymentStatus) domain.Order {
	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextOrderID++
	order := domain.Order{
		ID:            s.nextOrderID,
		UserID:        userID,
		TotalAmount:   total,
		Status:        domain.OrderStatusPending,
		PaymentStatus: payment,
		Notes:         notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.orders[order.ID] = order
	s.orderIDs = append(s.orderIDs, order.ID)
	return order
}

func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit
}

func paginate(items []domain.MenuItem, page, limit int) map[string]interface{} {
	total := len(items)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return map[string]interface{}{"data": items[start:end], "total": total}
}

func paginateOrders(orders []domain.Order, page, limit int) map[string]interface{} {
	total := len(orders)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return map[string]interface{}{"data": orders[start:end], "total": total}
}
