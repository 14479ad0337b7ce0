package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const defaultTimeout = 10 * time.Second

// ErrNotConfigured is returned when the gateway key pair is missing.
var ErrNotConfigured = errors.New("payment gateway not configured")

// OrderRequest describes an order to open with the gateway. Amount is in minor units.
type OrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

// Order is the gateway's view of an opened order.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Gateway opens orders and verifies checkout signatures.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
	KeyID() string
}

// Client talks to a Razorpay-compatible orders API.
type Client struct {
	baseURL   string
	keyID     string
	keySecret string
}

// NewClient builds a gateway client.
func NewClient(baseURL, keyID, keySecret string) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), keyID: keyID, keySecret: keySecret}
}

// KeyID is the public key the checkout widget needs.
func (c *Client) KeyID() string {
	return c.keyID
}

type orderPayload struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type gatewayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder posts a new order to the gateway.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if c.keyID == "" || c.keySecret == "" {
		return nil, ErrNotConfigured
	}
	timeout := defaultTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	agent := fiber.Post(c.baseURL + "/orders")
	agent.BasicAuth(c.keyID, c.keySecret)
	agent.Timeout(timeout)
	agent.JSON(orderPayload{
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err := agent.Parse(); err != nil {
		return nil, fmt.Errorf("prepare order request: %w", err)
	}

	var order Order
	code, body, errs := agent.Struct(&order)
	if code >= fiber.StatusBadRequest {
		var ge gatewayError
		if jerr := json.Unmarshal(body, &ge); jerr == nil && ge.Error.Description != "" {
			return nil, fmt.Errorf("create order: gateway status %d: %s", code, ge.Error.Description)
		}
		return nil, fmt.Errorf("create order: gateway status %d", code)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("create order: %w", errors.Join(errs...))
	}
	if order.ID == "" {
		return nil, errors.New("create order: gateway returned no order id")
	}
	return &order, nil
}

// VerifySignature checks the checkout signature: hex HMAC-SHA256 of "orderID|paymentID".
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	if c.keySecret == "" || orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	expected := Sign(c.keySecret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// Sign computes the checkout signature the gateway returns to the client.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
