package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrRejected is returned when the provider refuses a payout.
var ErrRejected = errors.New("payout rejected by provider")

// Request describes one payout to the provider
type Request struct {
	CashoutID   uuid.UUID       `json:"cashout_id"`
	UserID      uuid.UUID       `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Method      string          `json:"method"`
	Destination string          `json:"destination"`
}

// Gateway starts payouts. Completion arrives asynchronously and is recorded
// by an operator or callback, not here.
type Gateway interface {
	InitiatePayout(ctx context.Context, req Request) (string, error)
}

// Config holds payout provider configuration
type Config struct {
	BaseURL     string
	MerchantKey string
	Timeout     time.Duration
}

// Client is an HTTP JSON payout provider client
type Client struct {
	httpClient *http.Client
	config     Config
}

type initiateResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
}

// NewClient creates a payout client
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
	}
}

// InitiatePayout posts the payout and returns the provider transaction id
func (c *Client) InitiatePayout(ctx context.Context, req Request) (string, error) {
	if !req.Amount.IsPositive() {
		return "", fmt.Errorf("validation error: amount must be > 0")
	}
	if strings.TrimSpace(req.Destination) == "" {
		return "", fmt.Errorf("validation error: destination must be non-empty")
	}
	if strings.TrimSpace(c.config.BaseURL) == "" {
		return "", fmt.Errorf("payout config error: base_url is empty")
	}
	if strings.TrimSpace(c.config.MerchantKey) == "" {
		return "", fmt.Errorf("payout config error: merchant_key is empty")
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode payout request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/api/v1/payouts"

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("payout api call failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.MerchantKey)
	httpReq.Header.Set("Idempotency-Key", req.CashoutID.String())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("payout api call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("payout api call failed: %w", err)
	}

	if resp.StatusCode == http.StatusUnprocessableEntity {
		return "", fmt.Errorf("%w: %s", ErrRejected, strings.TrimSpace(string(body)))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("payout api returned non-2xx status: %d, body: %s", resp.StatusCode, string(body))
	}

	var out initiateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to parse payout response: %w", err)
	}
	if out.TransactionID == "" {
		return "", fmt.Errorf("payout api returned empty transaction_id")
	}
	return out.TransactionID, nil
}

// Sandbox accepts every payout and invents a transaction id. Used when no
// provider is configured.
type Sandbox struct{}

func (Sandbox) InitiatePayout(_ context.Context, req Request) (string, error) {
	return "sandbox-" + req.CashoutID.String(), nil
}
