package supplier

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/voucher-store/internal"
)

type Config struct {
	BaseURL  string
	Username string
	APIKey   string
	Deploy   string
	Timeout  time.Duration
}

// API is what the catalog, ledger and fulfillment depend on.
type API interface {
	PriceList(ctx context.Context) ([]PriceItem, error)
	Purchase(ctx context.Context, req PurchaseRequest) (*TransactionResult, error)
	CheckStatus(ctx context.Context, req PurchaseRequest) (*TransactionResult, error)
}

type Client struct {
	baseURL    string
	username   string
	apiKey     string
	deploy     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	deploy := cfg.Deploy
	if deploy == "" {
		deploy = "production"
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		username:   cfg.Username,
		apiKey:     cfg.APIKey,
		deploy:     deploy,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Sign is md5(username + apiKey), hex encoded.
func Sign(username, apiKey string) string {
	sum := md5.Sum([]byte(username + apiKey))
	return hex.EncodeToString(sum[:])
}

func (c *Client) authParams() map[string]interface{} {
	return map[string]interface{}{
		"username": c.username,
		"sign":     Sign(c.username, c.apiKey),
		"deploy":   c.deploy,
	}
}

func (c *Client) PriceList(ctx context.Context) ([]PriceItem, error) {
	var resp struct {
		Data []PriceItem `json:"data"`
	}
	if err := c.post(ctx, "/v1/price", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) Purchase(ctx context.Context, req PurchaseRequest) (*TransactionResult, error) {
	if req.SKU == "" || req.CustomerNo == "" || req.RefID == "" {
		return nil, errors.New("supplier purchase requires sku, customer number and ref id")
	}

	c.logger.Info("supplier purchase", "ref_id", req.RefID, "sku", req.SKU)

	return c.transaction(ctx, map[string]interface{}{
		"buyer_sku_code": req.SKU,
		"customer_no":    req.CustomerNo,
		"ref_id":         req.RefID,
	})
}

// CheckStatus asks for the state of an existing purchase. The status command never places a new order.
func (c *Client) CheckStatus(ctx context.Context, req PurchaseRequest) (*TransactionResult, error) {
	if req.RefID == "" {
		return nil, errors.New("supplier status check requires ref id")
	}

	return c.transaction(ctx, map[string]interface{}{
		"buyer_sku_code": req.SKU,
		"customer_no":    req.CustomerNo,
		"ref_id":         req.RefID,
		"cmd":            "status",
	})
}

func (c *Client) transaction(ctx context.Context, params map[string]interface{}) (*TransactionResult, error) {
	var resp struct {
		Data *TransactionResult `json:"data"`
	}
	if err := c.post(ctx, "/v1/transaction", params, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, internal.NewUpstreamError("Supplier returned an empty response", internal.ErrCodeSupplier, nil)
	}
	return resp.Data, nil
}

func (c *Client) post(ctx context.Context, endpoint string, params map[string]interface{}, out interface{}) error {
	body := c.authParams()
	for k, v := range params {
		body[k] = v
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal supplier request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create supplier request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("supplier request failed", "endpoint", endpoint, "error", err)
		return internal.NewUpstreamError("Supplier service failed", internal.ErrCodeSupplier, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return internal.NewUpstreamError("Supplier service failed", internal.ErrCodeSupplier, err)
	}

	c.logger.Debug("supplier response",
		"endpoint", endpoint,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Message string `json:"message"`
			Data    struct {
				Message string `json:"message"`
			} `json:"data"`
		}
		_ = json.Unmarshal(raw, &apiErr)
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Data.Message
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return internal.NewUpstreamError("Supplier service failed", internal.ErrCodeSupplier,
			fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return internal.NewUpstreamError("Supplier returned an invalid response", internal.ErrCodeSupplier, err)
	}

	return nil
}
