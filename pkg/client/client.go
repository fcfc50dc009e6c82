// Package client provides a Go client for the accounts HTTP API
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/memtensor/accounts/pkg/users"
)

// Config holds client configuration
type Config struct {
	BaseURL    string        `json:"base_url" yaml:"base_url"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`
	RetryCount int           `json:"retry_count" yaml:"retry_count"`
	UserAgent  string        `json:"user_agent" yaml:"user_agent"`
}

// DefaultConfig returns a client configuration for a local server
func DefaultConfig() Config {
	return Config{
		BaseURL:    "http://localhost:8080",
		Timeout:    30 * time.Second,
		RetryCount: 2,
		UserAgent:  "accounts-client/1.0",
	}
}

// APIError is a non-2xx answer from the server
type APIError struct {
	StatusCode int           `json:"-"`
	Message    string        `json:"message"`
	ErrorCode  string        `json:"error_code,omitempty"`
	Status     string        `json:"status,omitempty"`
	Auth       *bool         `json:"auth,omitempty"`
	RetryAfter time.Duration `json:"-"`
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("HTTP %d [%s]: %s", e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// LoginResult is the body of a successful login
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *users.User `json:"user"`
}

// Health is the body of the health endpoint
type Health struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Uptime  string            `json:"uptime"`
	Checks  map[string]string `json:"checks"`
}

type message struct {
	Message string `json:"message"`
}

// Client calls the accounts API. A token obtained by Login is sent on
// every later request.
type Client struct {
	http  *resty.Client
	mu    sync.RWMutex
	token string
}

// New creates a client for the server at config.BaseURL
func New(config Config) *Client {
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}

	h := resty.New()
	h.SetBaseURL(config.BaseURL)
	h.SetTimeout(config.Timeout)
	h.SetRetryCount(config.RetryCount)
	h.SetRetryWaitTime(500 * time.Millisecond)
	h.SetRetryMaxWaitTime(5 * time.Second)
	h.SetHeader("Content-Type", "application/json")
	h.SetHeader("User-Agent", config.UserAgent)

	return &Client{http: h}
}

// SetToken sets the bearer token used for gated calls
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx).SetError(&APIError{})
	if token := c.Token(); token != "" {
		req.SetAuthToken(token)
	}
	return req
}

// Health reports the server's health. A 503 still yields the body.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var health Health
	resp, err := c.request(ctx).SetResult(&health).Get("/health")
	if err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	if resp.StatusCode() == http.StatusServiceUnavailable {
		if err := json.Unmarshal(resp.Body(), &health); err != nil {
			return nil, fmt.Errorf("failed to decode health: %w", err)
		}
		return &health, apiError(resp)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return &health, nil
}

// Register creates an account through the public registration endpoint
func (c *Client) Register(ctx context.Context, payload users.RegistrationPayload) error {
	resp, err := c.request(ctx).SetBody(payload).SetResult(&message{}).Post("/register")
	if err != nil {
		return fmt.Errorf("register request failed: %w", err)
	}
	if resp.IsError() {
		return apiError(resp)
	}
	return nil
}

// Login exchanges credentials for a token and keeps it for later calls
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var result LoginResult
	resp, err := c.request(ctx).
		SetBody(map[string]string{"username": username, "password": password}).
		SetResult(&result).
		Post("/login")
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}

	c.SetToken(result.Token)
	return &result, nil
}

// CreateUser creates an account on behalf of the logged-in caller
func (c *Client) CreateUser(ctx context.Context, payload users.RegistrationPayload) error {
	resp, err := c.request(ctx).SetBody(payload).SetResult(&message{}).Post("/users")
	if err != nil {
		return fmt.Errorf("create user request failed: %w", err)
	}
	if resp.IsError() {
		return apiError(resp)
	}
	return nil
}

// GetUser fetches an account. It returns nil when no account has the id.
func (c *Client) GetUser(ctx context.Context, id string) (*users.User, error) {
	resp, err := c.request(ctx).SetPathParam("id", id).Get("/users/{id}")
	if err != nil {
		return nil, fmt.Errorf("get user request failed: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return decodeUser(resp.Body())
}

// ListUsers returns every account
func (c *Client) ListUsers(ctx context.Context) ([]users.User, error) {
	var list []users.User
	resp, err := c.request(ctx).SetResult(&list).Get("/users")
	if err != nil {
		return nil, fmt.Errorf("list users request failed: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return list, nil
}

// UpdateUser patches an account and returns it, or nil when it does not exist
func (c *Client) UpdateUser(ctx context.Context, id string, patch map[string]interface{}) (*users.User, error) {
	resp, err := c.request(ctx).SetPathParam("id", id).SetBody(patch).Patch("/users/{id}")
	if err != nil {
		return nil, fmt.Errorf("update user request failed: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return decodeUser(resp.Body())
}

// DeleteUser removes an account
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	resp, err := c.request(ctx).SetPathParam("id", id).SetResult(&message{}).Delete("/users/{id}")
	if err != nil {
		return fmt.Errorf("delete user request failed: %w", err)
	}
	if resp.IsError() {
		return apiError(resp)
	}
	return nil
}

func decodeUser(body []byte) (*users.User, error) {
	var user *users.User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return user, nil
}

// apiError builds an APIError from a failed response. Bodies that are not
// JSON keep the raw text as the message.
func apiError(resp *resty.Response) error {
	apiErr, ok := resp.Error().(*APIError)
	if !ok || apiErr == nil || apiErr.Message == "" {
		apiErr = &APIError{}
		if err := json.Unmarshal(resp.Body(), apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = resp.String()
		}
	}
	apiErr.StatusCode = resp.StatusCode()

	if v := resp.Header().Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			apiErr.RetryAfter = time.Duration(seconds) * time.Second
		}
	}
	return apiErr
}
