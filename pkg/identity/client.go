// Package identity talks to the external credential provider that owns user
// accounts and passwords.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/walknrun/walkrun-backend/pkg/config"
)

const responseBodyReadLimit int64 = 4096

// ErrUserNotFound reports that no account exists for the given email or id.
var ErrUserNotFound = errors.New("identity: user not found")

// User is the provider's account projection.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Provider is the collaborator contract the services depend on.
type Provider interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	SetPassword(ctx context.Context, id, password string) error
	DeleteAccount(ctx context.Context, id string) error
}

// Client is the REST implementation of Provider.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the identity client from configuration.
func NewClient(cfg config.IdentityConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("identity base url is required")
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("identity api key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

func (c *Client) FindByEmail(ctx context.Context, email string) (User, error) {
	endpoint := fmt.Sprintf("%s/v1/accounts/lookup?email=%s", c.baseURL, url.QueryEscape(email))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return User{}, err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return User{}, fmt.Errorf("identity lookup: %w", err)
	}
	defer drainAndClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		var user User
		if err := json.NewDecoder(io.LimitReader(resp.Body, responseBodyReadLimit)).Decode(&user); err != nil {
			return User{}, fmt.Errorf("identity lookup decode: %w", err)
		}
		if user.ID == "" {
			return User{}, fmt.Errorf("identity lookup: response missing account id")
		}
		return user, nil
	case http.StatusNotFound:
		return User{}, ErrUserNotFound
	default:
		return User{}, statusError("lookup", resp.StatusCode)
	}
}

func (c *Client) SetPassword(ctx context.Context, id, password string) error {
	payload, err := json.Marshal(map[string]string{"password": password})
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/v1/accounts/%s/password", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity set password: %w", err)
	}
	defer drainAndClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return ErrUserNotFound
	default:
		return statusError("set password", resp.StatusCode)
	}
}

func (c *Client) DeleteAccount(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("%s/v1/accounts/%s", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity delete account: %w", err)
	}
	defer drainAndClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return ErrUserNotFound
	default:
		return statusError("delete account", resp.StatusCode)
	}
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

func statusError(op string, status int) error {
	return fmt.Errorf("identity %s: unexpected status %d", op, status)
}

func drainAndClose(body io.ReadCloser) {
	io.Copy(io.Discard, io.LimitReader(body, responseBodyReadLimit))
	body.Close()
}
