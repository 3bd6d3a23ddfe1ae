// Package horsepay is a minimal client for the HorsePay PIX payment API:
// bearer-token auth, deposit order creation and withdraw transfers.
package horsepay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://api.horsepay.io"

// Client talks to the HorsePay REST API. It authenticates lazily and caches
// the bearer token until shortly before expiry.
type Client struct {
	baseURL      string
	clientKey    string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, used by tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a HorsePay client with the given credentials.
func NewClient(clientKey, clientSecret string, opts ...Option) *Client {
	c := &Client{
		baseURL:      defaultBaseURL,
		clientKey:    clientKey,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from HorsePay.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("horsepay: status %d: %s", e.StatusCode, e.Body)
}

// DepositOrder is a created PIX charge awaiting payment.
type DepositOrder struct {
	ExternalID int64           `json:"external_id"`
	CopyPast   string          `json:"copy_past"`
	Amount     decimal.Decimal `json:"-"`
	Payment    string          `json:"payment"`
}

// WithdrawResult is an accepted PIX transfer.
type WithdrawResult struct {
	ExternalID int64  `json:"external_id"`
	Status     string `json:"status"`
}

type authRequest struct {
	ClientKey    string `json:"client_key"`
	ClientSecret string `json:"client_secret"`
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type depositRequest struct {
	PayerName   string  `json:"payer_name"`
	Amount      float64 `json:"amount"`
	CallbackURL string  `json:"callback_url"`
}

type withdrawRequest struct {
	Amount      float64 `json:"amount"`
	PixKey      string  `json:"pix_key"`
	PixType     string  `json:"pix_type"`
	CallbackURL string  `json:"callback_url"`
}

// CreateDepositOrder creates a PIX charge and returns the copy-paste code
// the user pays with.
func (c *Client) CreateDepositOrder(ctx context.Context, payerName string, amount decimal.Decimal, callbackURL string) (*DepositOrder, error) {
	amt, _ := amount.Float64()
	var order DepositOrder
	err := c.do(ctx, http.MethodPost, "/transaction/neworder", depositRequest{
		PayerName:   payerName,
		Amount:      amt,
		CallbackURL: callbackURL,
	}, &order)
	if err != nil {
		return nil, err
	}
	order.Amount = amount
	return &order, nil
}

// Withdraw requests a PIX transfer to the given key.
func (c *Client) Withdraw(ctx context.Context, amount decimal.Decimal, pixKey, pixType, callbackURL string) (*WithdrawResult, error) {
	amt, _ := amount.Float64()
	var result WithdrawResult
	err := c.do(ctx, http.MethodPost, "/transaction/withdraw", withdrawRequest{
		Amount:      amt,
		PixKey:      pixKey,
		PixType:     pixType,
		CallbackURL: callbackURL,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	token, err := c.authToken(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("horsepay request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// authToken returns a cached bearer token, re-authenticating when the cached
// one is within a minute of expiry.
func (c *Client) authToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.token, nil
	}

	body, err := json.Marshal(authRequest{ClientKey: c.clientKey, ClientSecret: c.clientSecret})
	if err != nil {
		return "", fmt.Errorf("failed to encode auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("horsepay auth failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", fmt.Errorf("failed to decode auth response: %w", err)
	}
	if auth.AccessToken == "" {
		return "", fmt.Errorf("horsepay auth returned empty token")
	}

	c.token = auth.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(auth.ExpiresIn) * time.Second)
	return c.token, nil
}
