// Package stubserver is an in-process implementation of the storefront
// REST and push-event contract. It backs the devserver binary and the
// integration tests; the production server is someone else's code.
package stubserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"storefront/internal/domain"
)

const refreshCookie = "refresh_token"

type contextKey string

const contextKeyUser contextKey = "user"

type stubUser struct {
	user     domain.User
	password string
}

type paymentOrder struct {
	id     string
	amount float64
	cart   []domain.CartItem
	notes  string
	userID int64
}

type Server struct {
	secret    []byte
	accessTTL time.Duration

	refreshCalls int32

	mu            sync.Mutex
	usersByEmail  map[string]*stubUser
	nextUserID    int64
	menu          map[int64]domain.MenuItem
	menuIDs       []int64
	nextMenuID    int64
	orders        map[int64]domain.Order
	orderIDs      []int64
	nextOrderID   int64
	sessions      map[string]int64 // refresh cookie -> user id
	payOrders     map[string]*paymentOrder
	payByIdemKey  map[string]string
	revokedBefore time.Time

	hub *hub
}

func NewServer(secret string, accessTTL time.Duration) *Server {
	return &Server{
		secret:       []byte(secret),
		accessTTL:    accessTTL,
		usersByEmail: make(map[string]*stubUser),
		menu:         make(map[int64]domain.MenuItem),
		orders:       make(map[int64]domain.Order),
		sessions:     make(map[string]int64),
		payOrders:    make(map[string]*paymentOrder),
		payByIdemKey: make(map[string]string),
		hub:          newHub(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)

	r.Post("/auth/signin", s.handleSignIn)
	r.Post("/auth/signup", s.handleSignUp)
	r.Post("/auth/refresh-token", s.handleRefreshToken)
	r.Post("/auth/logout", s.handleLogout)

	r.Get("/events", s.hub.handleWS)

	r.Group(func(protected chi.Router) {
		protected.Use(s.requireAuth)
		protected.Get("/menu", s.handleListMenu)
		protected.Get("/orders/my-orders", s.handleMyOrders)
		protected.Get("/orders/{id}", s.handleGetOrder)
		protected.Post("/orders", s.handlePlaceOrder)
		protected.Post("/orders/create-order", s.handleCreateOrder)
		protected.Post("/orders/verify-payment", s.handleVerifyPayment)
		protected.Post("/orders/validateCart", s.handleValidateCart)
	})

	r.Group(func(admin chi.Router) {
		admin.Use(s.requireAuth, s.requireAdmin)
		admin.Post("/menu", s.handleCreateMenuItem)
		admin.Put("/menu/{id}", s.handleUpdateMenuItem)
		admin.Delete("/menu/{id}", s.handleDeleteMenuItem)
		admin.Get("/orders/all", s.handleAllOrders)
		admin.Put("/orders/{id}/status", s.handleUpdateOrderStatus)
	})

	return r
}

// SeedUser registers a fixture account and returns its identity.
func (s *Server) SeedUser(firstName, lastName, email, password string, role domain.Role) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUserID++
	u := domain.User{
		ID:        s.nextUserID,
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Role:      role,
	}
	s.usersByEmail[email] = &stubUser{user: u, password: password}
	return u
}

// SeedMenuItem registers a fixture menu item, assigning it an id.
func (s *Server) SeedMenuItem(item domain.MenuItem) domain.MenuItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMenuID++
	item.ID = s.nextMenuID
	item.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	s.menu[item.ID] = item
	s.menuIDs = append(s.menuIDs, item.ID)
	return item
}

// ExpireSessions invalidates every access token issued so far, forcing
// clients through the refresh flow on their next call.
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revokedBefore = time.Now().UTC()
}

// RevokeRefreshTokens drops every refresh session so the next refresh
// attempt fails outright.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]int64)
}

// RefreshCalls reports how many refresh requests the server has seen.
func (s *Server) RefreshCalls() int32 {
	return atomic.LoadInt32(&s.refreshCalls)
}

// Broadcast pushes a named event to every connected push-channel
// client (kitchen-only events go to join-kitchen subscribers).
func (s *Server) Broadcast(event string, data interface{}) {
	s.hub.broadcast(event, data, event == domain.EventNewOrder)
}

func (s *Server) signToken(u domain.User) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":   strconv.FormatInt(u.ID, 10),
		"email": u.Email,
		"role":  string(u.Role),
		"iat":   now.Unix(),
		"exp":   now.Add(s.accessTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) userFromToken(tokenString string) (domain.User, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return domain.User{}, fmt.Errorf("invalid token: %w", err)
	}

	iat, err := claims.GetIssuedAt()
	if err != nil || iat == nil {
		return domain.User{}, fmt.Errorf("token missing iat")
	}
	s.mu.Lock()
	revoked := !s.revokedBefore.IsZero() && iat.Time.Before(s.revokedBefore)
	s.mu.Unlock()
	if revoked {
		return domain.User{}, fmt.Errorf("token revoked")
	}

	sub, _ := claims.GetSubject()
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return domain.User{}, fmt.Errorf("bad subject: %w", err)
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	return domain.User{ID: id, Email: email, Role: domain.Role(role)}, nil
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		user, err := s.userFromToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKeyUser, user)))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := r.Context().Value(contextKeyUser).(domain.User)
		if user.Role != domain.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
