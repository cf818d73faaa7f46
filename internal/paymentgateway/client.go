package paymentgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/frahmantamala/voucher-store/internal"
	paymentgatewaytypes "github.com/frahmantamala/voucher-store/internal/core/datamodel/paymentgateway"
)

type Config struct {
	BaseURL       string
	APIKey        string
	MerchantID    string
	CallbackURL   string
	ExpiryMinutes int
	Source        string
	Timeout       time.Duration
}

// API is what the payment adapter and reconciler depend on.
type API interface {
	CreateQRIS(ctx context.Context, req *paymentgatewaytypes.ChargeRequest) (*paymentgatewaytypes.ChargeData, error)
	GetPaymentStatus(ctx context.Context, orderID string) (*PaymentStatusResult, error)
}

type Client struct {
	baseURL       string
	apiKey        string
	merchantID    string
	callbackURL   string
	expiryMinutes int
	source        string
	httpClient    *http.Client
	logger        *slog.Logger
}

// PaymentStatusResult is the gateway's current view of an order.
type PaymentStatusResult struct {
	OrderID string
	Status  Status
	PaidAt  *time.Time
	Amount  int64
	Raw     map[string]interface{}
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	expiry := config.ExpiryMinutes
	if expiry <= 0 {
		expiry = 30
	}
	source := config.Source
	if source == "" {
		source = "vexa-cell"
	}

	return &Client{
		baseURL:       strings.TrimRight(config.BaseURL, "/"),
		apiKey:        config.APIKey,
		merchantID:    config.MerchantID,
		callbackURL:   config.CallbackURL,
		expiryMinutes: expiry,
		source:        source,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logger,
	}
}

// CreateQRIS requests a QRIS charge for an order. The order id doubles as the gateway reference.
func (c *Client) CreateQRIS(ctx context.Context, req *paymentgatewaytypes.ChargeRequest) (*paymentgatewaytypes.ChargeData, error) {
	if err := req.Validate(); err != nil {
		c.logger.Error("charge request validation failed", "error", err)
		return nil, fmt.Errorf("validation error: %w", err)
	}

	expiry := req.ExpiryMinutes
	if expiry == 0 {
		expiry = c.expiryMinutes
	}

	payload := map[string]interface{}{
		"merchant_id":    c.merchantID,
		"order_id":       req.OrderID,
		"amount":         req.Amount,
		"payment_method": "qris",
		"customer": map[string]string{
			"email": req.Customer.Email,
			"phone": req.Customer.Phone,
		},
		"expiry":       expiry,
		"callback_url": c.callbackURL,
		"metadata": map[string]string{
			"source": c.source,
		},
	}

	c.logger.Info("gateway: creating qris charge",
		"order_id", req.OrderID,
		"amount", req.Amount,
		"expiry_minutes", expiry)

	var data paymentgatewaytypes.ChargeData
	if err := c.do(ctx, http.MethodPost, "/v1/charge", payload, &data); err != nil {
		return nil, err
	}
	if data.OrderID == "" {
		data.OrderID = req.OrderID
	}
	if data.Amount == 0 {
		data.Amount = req.Amount
	}

	c.logger.Info("gateway: qris charge created",
		"order_id", data.OrderID,
		"expiry_time", data.ExpiryTime)

	return &data, nil
}

func (c *Client) GetPaymentStatus(ctx context.Context, orderID string) (*PaymentStatusResult, error) {
	c.logger.Info("gateway: getting payment status", "order_id", orderID)

	var raw map[string]interface{}
	if err := c.do(ctx, http.MethodGet, "/v1/status/"+url.PathEscape(orderID), nil, &raw); err != nil {
		return nil, err
	}

	encoded, _ := json.Marshal(raw)
	var data paymentgatewaytypes.StatusData
	if err := json.Unmarshal(encoded, &data); err != nil {
		return nil, internal.NewUpstreamError("Payment gateway returned an invalid response", internal.ErrCodePaymentGateway, err)
	}

	result := &PaymentStatusResult{
		OrderID: data.OrderID,
		Status:  ParseStatus(data.Status),
		PaidAt:  ParseTimestamp(data.PaidAt),
		Amount:  data.Amount,
		Raw:     raw,
	}
	if result.OrderID == "" {
		result.OrderID = orderID
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal gateway request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("X-Merchant-ID", c.merchantID)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("gateway: request failed", "path", path, "error", err)
		return internal.NewUpstreamError("Payment gateway request failed", internal.ErrCodePaymentGateway, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return internal.NewUpstreamError("Payment gateway request failed", internal.ErrCodePaymentGateway, err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &apiErr)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		c.logger.Warn("gateway: non-success response", "path", path, "status_code", resp.StatusCode, "message", apiErr.Message)
		return internal.NewUpstreamError("Payment gateway request failed", internal.ErrCodePaymentGateway,
			fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Message))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return internal.NewUpstreamError("Payment gateway returned an invalid response", internal.ErrCodePaymentGateway, err)
	}
	return nil
}

// ParseTimestamp accepts the RFC 3339 variants the gateway emits. Unparseable or empty values yield nil.
func ParseTimestamp(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
