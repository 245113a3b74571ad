// Package api is the gateway to the remote journal API. Each method performs exactly one
// request with the currently configured bearer credential. There is no retrying and no
// caching; callers interpret the classified errors.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-prayer-journal/journal"
	"golang.org/x/oauth2"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:3000/api/"

// Client calls the journal API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	metrics    *Metrics

	mu     sync.RWMutex
	bearer string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithMetrics records request counts and latencies.
func WithMetrics(metrics *Metrics) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, options ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("[api.New] invalid base URL: %w", err)
	}

	c := &Client{baseURL: u, httpClient: http.DefaultClient}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// SetBearer sets the credential sent with every following request.
func (c *Client) SetBearer(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bearer = token
}

// RemoveBearer stops sending a credential.
func (c *Client) RemoveBearer() {
	c.SetBearer("")
}

// Bearer returns the configured credential.
func (c *Client) Bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bearer
}

// Journal returns every active request with its latest update.
func (c *Client) Journal(ctx context.Context) ([]journal.Request, error) {
	var out []journal.Request
	if err := c.do(ctx, "journal", http.MethodGet, "journal/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type addRequestBody struct {
	RequestText string            `json:"requestText"`
	RecurType   journal.RecurType `json:"recurType,omitempty"`
	RecurCount  int               `json:"recurCount,omitempty"`
}

// AddRequest creates a request and returns it as stored by the server.
func (c *Client) AddRequest(ctx context.Context, text string, recurType journal.RecurType, recurCount int) (*journal.Request, error) {
	var out journal.Request
	body := addRequestBody{RequestText: text, RecurType: recurType, RecurCount: recurCount}
	if err := c.do(ctx, "add_request", http.MethodPost, "request/", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddNote attaches notes to a request.
func (c *Client) AddNote(ctx context.Context, requestID, notes string) error {
	body := struct {
		Notes string `json:"notes"`
	}{Notes: notes}
	return c.do(ctx, "add_note", http.MethodPost, requestPath(requestID, "note"), body, nil)
}

// UpdateRequest records a status change, optionally with new text.
func (c *Client) UpdateRequest(ctx context.Context, requestID string, status journal.Status, updateText string) error {
	body := struct {
		Status     journal.Status `json:"status"`
		UpdateText string         `json:"updateText"`
	}{Status: status, UpdateText: updateText}
	return c.do(ctx, "update_request", http.MethodPost, requestPath(requestID, "history"), body, nil)
}

// UpdateRecurrence changes how often a request comes back after being prayed.
func (c *Client) UpdateRecurrence(ctx context.Context, requestID string, recurType journal.RecurType, recurCount int) error {
	body := struct {
		RecurType  journal.RecurType `json:"recurType"`
		RecurCount int               `json:"recurCount"`
	}{RecurType: recurType, RecurCount: recurCount}
	return c.do(ctx, "update_recurrence", http.MethodPost, requestPath(requestID, "recurrence"), body, nil)
}

// SnoozeRequest hides a request until the given time.
func (c *Client) SnoozeRequest(ctx context.Context, requestID string, until time.Time) error {
	body := struct {
		Until int64 `json:"until"`
	}{Until: journal.Millis(until)}
	return c.do(ctx, "snooze_request", http.MethodPost, requestPath(requestID, "snooze"), body, nil)
}

// ShowRequest makes a request visible again from showAfter.
func (c *Client) ShowRequest(ctx context.Context, requestID string, showAfter time.Time) error {
	body := struct {
		ShowAfter int64 `json:"showAfter"`
	}{ShowAfter: journal.Millis(showAfter)}
	return c.do(ctx, "show_request", http.MethodPost, requestPath(requestID, "show"), body, nil)
}

// GetRequest returns a request journal-style, with only its latest update.
func (c *Client) GetRequest(ctx context.Context, requestID string) (*journal.Request, error) {
	var out journal.Request
	if err := c.do(ctx, "get_request", http.MethodGet, requestPath(requestID, ""), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetFullRequest returns a request with its complete history.
func (c *Client) GetFullRequest(ctx context.Context, requestID string) (*journal.Request, error) {
	var out journal.Request
	if err := c.do(ctx, "get_full_request", http.MethodGet, requestPath(requestID, "full"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAnsweredRequests returns answered requests with the text they had when answered.
func (c *Client) GetAnsweredRequests(ctx context.Context) ([]journal.Request, error) {
	var out []journal.Request
	if err := c.do(ctx, "get_answered", http.MethodGet, "request/answered", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetNotes returns the past notes of a request.
func (c *Client) GetNotes(ctx context.Context, requestID string) ([]journal.Note, error) {
	var out []journal.Note
	if err := c.do(ctx, "get_notes", http.MethodGet, requestPath(requestID, "notes"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func requestPath(requestID, suffix string) string {
	p := "request/" + url.PathEscape(requestID)
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}

func (c *Client) do(ctx context.Context, operation, method, path string, body, out any) error {
	start := time.Now()
	outcome := outcomeOK
	defer func() {
		if c.metrics != nil {
			c.metrics.Requests.WithLabelValues(operation, outcome).Inc()
			c.metrics.Duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		}
	}()

	ref, err := url.Parse(path)
	if err != nil {
		outcome = outcomeRequestError
		return &RequestError{Operation: operation, Err: err}
	}
	target := c.baseURL.ResolveReference(ref)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			outcome = outcomeRequestError
			return &RequestError{Operation: operation, Err: err}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		outcome = outcomeRequestError
		return &RequestError{Operation: operation, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client().Do(req)
	if err != nil {
		outcome = outcomeTransportError
		return &TransportError{Method: method, URL: target.String(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = outcomeHTTPError
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &ResponseError{
			Method:     method,
			URL:        target.String(),
			StatusCode: resp.StatusCode,
			Body:       data,
			Header:     resp.Header.Clone(),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		outcome = outcomeDecodeError
		return &DecodeError{Method: method, URL: target.String(), StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

// client returns the HTTP client for one request, wrapping the transport with the bearer
// credential when one is set.
func (c *Client) client() *http.Client {
	bearer := c.Bearer()
	if bearer == "" {
		return c.httpClient
	}
	withAuth := *c.httpClient
	withAuth.Transport = &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: bearer, TokenType: "Bearer"}),
		Base:   c.httpClient.Transport,
	}
	return &withAuth
}
