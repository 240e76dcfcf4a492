package api

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RefreshIfExpiring refreshes the credential ahead of time when its
// expiry claim falls within the configured skew. Callers typically run
// this once at startup so the first burst of real traffic does not pay
// the 401 round trip. A refresh already in flight makes this a no-op.
func (c *Client) RefreshIfExpiring(ctx context.Context) error {
	token, ok := c.creds.Token()
	if !ok || c.refreshSkew <= 0 || !expiresWithin(token, c.refreshSkew) {
		return nil
	}

	c.mu.Lock()
	if c.refreshing {
		c.mu.Unlock()
		return nil
	}
	c.refreshing = true
	c.mu.Unlock()

	return c.runRefresh(ctx)
}

// expiresWithin inspects the token's exp claim without verifying the
// signature; the server remains the authority and will still 401 a
// token it does not like.
func expiresWithin(token string, skew time.Duration) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Until(exp.Time) < skew
}
