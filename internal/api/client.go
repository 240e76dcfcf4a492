package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/store"
)

// Client is the session manager: it owns the request pipeline, attaches
// the current credential to every call, and coordinates the
// single-flight refresh of an expired credential. Construct one per
// logical session and pass it to everything that talks to the API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	creds       *auth.CredentialStore
	state       store.ClientState
	refreshSkew time.Duration

	mu         sync.Mutex
	refreshing bool
	waiters    []*pendingCall
}

// request captures everything needed to replay a call verbatim after a
// credential refresh.
type request struct {
	method string
	path   string
	query  url.Values
	body   []byte
}

type Response struct {
	StatusCode int
	Body       []byte
}

type callResult struct {
	resp *Response
	err  error
}

// pendingCall is a suspended request waiting for a refresh episode to
// finish. Its done channel is buffered so the replayer never blocks on
// a caller that gave up.
type pendingCall struct {
	ctx  context.Context
	req  *request
	done chan callResult
}

func NewClient(baseURL string, creds *auth.CredentialStore, state store.ClientState, httpClient *http.Client, refreshSkew time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if httpClient.Jar == nil {
		// The refresh credential travels in a cookie.
		jar, _ := cookiejar.New(nil)
		httpClient.Jar = jar
	}
	return &Client{
		baseURL:     baseURL,
		httpClient:  httpClient,
		creds:       creds,
		state:       state,
		refreshSkew: refreshSkew,
	}
}

// Do sends one API call through the pipeline. A 401 response triggers
// the refresh flow at most once per call; every other outcome is
// returned as-is.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body []byte) (*Response, error) {
	return c.send(ctx, &request{method: method, path: path, query: query, body: body}, false)
}

func (c *Client) send(ctx context.Context, r *request, retried bool) (*Response, error) {
	resp, err := c.roundTrip(ctx, r)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || retried {
		return resp, nil
	}

	c.mu.Lock()
	if c.refreshing {
		// A refresh episode is underway: queue and wait for replay.
		call := &pendingCall{ctx: ctx, req: r, done: make(chan callResult, 1)}
		c.waiters = append(c.waiters, call)
		c.mu.Unlock()
		select {
		case res := <-call.done:
			return res.resp, res.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c.refreshing = true
	c.mu.Unlock()

	if err := c.runRefresh(ctx); err != nil {
		return nil, err
	}
	return c.send(ctx, r, true)
}

// runRefresh issues the one refresh call for the current episode and
// settles every waiter that queued while it was in flight. Waiters are
// replayed in FIFO arrival order, each marked retried so a second 401
// surfaces as a hard failure instead of re-entering this path. On
// refresh failure all waiters observe the same session-expired error
// and the persisted credential is cleared. The caller must have set
// c.refreshing before invoking this.
func (c *Client) runRefresh(ctx context.Context) error {
	token, err := c.refreshToken(ctx)
	if err == nil {
		err = c.creds.SetToken(ctx, token)
	}

	c.mu.Lock()
	c.refreshing = false
	queued := c.waiters
	c.waiters = nil
	c.mu.Unlock()

	if err != nil {
		sessionErr := fmt.Errorf("%w: %v", domain.ErrSessionExpired, err)
		if clearErr := c.creds.Clear(ctx); clearErr != nil {
			sessionErr = fmt.Errorf("%w (clearing credential also failed: %v)", sessionErr, clearErr)
		}
		for _, call := range queued {
			call.done <- callResult{err: sessionErr}
		}
		return sessionErr
	}

	for _, call := range queued {
		resp, replayErr := c.send(call.ctx, call.req, true)
		call.done <- callResult{resp: resp, err: replayErr}
	}
	return nil
}

// refreshToken exchanges the refresh cookie for a new access token. It
// bypasses send so a 401 here cannot recurse into the refresh flow.
func (c *Client) refreshToken(ctx context.Context) (string, error) {
	resp, err := c.roundTrip(ctx, &request{method: http.MethodPost, path: "/auth/refresh-token"})
	if err != nil {
		return "", fmt.Errorf("refresh call: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apiError(resp)
	}
	var body struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", fmt.Errorf("parse refresh response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("refresh response missing accessToken")
	}
	return body.AccessToken, nil
}

func (c *Client) roundTrip(ctx context.Context, r *request) (*Response, error) {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	var reader io.Reader
	if r.body != nil {
		reader = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, reader)
	if err != nil {
		return nil, err
	}
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := c.creds.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", r.method, r.path, err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: raw}, nil
}

func apiError(resp *Response) error {
	apiErr := &domain.APIError{Status: resp.StatusCode}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		apiErr.Message = body.Message
	}
	return apiErr
}
