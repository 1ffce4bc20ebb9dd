// Package mercadopago is a small client for the Mercado Pago payments API, limited to PIX
// charges, status reads and recent-payment listings.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"agendamento-backend/internal/apperr"
	"agendamento-backend/internal/metrics"
)

const (
	defaultBaseURL   = "https://api.mercadopago.com"
	defaultUserAgent = "agendamento-backend/1.0"
	defaultLookback  = 30 * 24 * time.Hour
)

// ErrNotConfigured is returned by every call when no access token is set.
var ErrNotConfigured = errors.New("mercadopago: access token not configured")

type Config struct {
	BaseURL         string
	AccessToken     string
	NotificationURL string
	Timeout         time.Duration
	HTTPClient      *http.Client
	Logger          *slog.Logger
	Metrics         *metrics.Metrics
	UserAgent       string
}

type Client struct {
	baseURL         string
	accessToken     string
	notificationURL string
	httpClient      *http.Client
	logger          *slog.Logger
	metrics         *metrics.Metrics
	userAgent       string
	now             func() time.Time
}

func New(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		accessToken:     strings.TrimSpace(cfg.AccessToken),
		notificationURL: strings.TrimSpace(cfg.NotificationURL),
		httpClient:      httpClient,
		logger:          logger,
		metrics:         cfg.Metrics,
		userAgent:       userAgent,
		now:             time.Now,
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.accessToken != ""
}

// CreatePixPayment opens a PIX charge and returns its QR payload.
func (c *Client) CreatePixPayment(ctx context.Context, req PixRequest) (*Payment, error) {
	if req.Amount <= 0 {
		return nil, apperr.Invalid("amount", "must be greater than zero")
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = uuid.NewString()
	}
	body, err := json.Marshal(createBody{
		TransactionAmount: req.Amount,
		Description:       req.Description,
		PaymentMethodID:   "pix",
		NotificationURL:   c.notificationURL,
		ExternalReference: req.Metadata["external_reference"],
		Payer:             payerFrom(req.Payer),
		Metadata:          req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("mercadopago: marshal payment: %w", err)
	}

	data, err := c.invoke(ctx, "create_pix", http.MethodPost, "/v1/payments", nil, body, key)
	if err != nil {
		return nil, err
	}
	var parsed paymentBody
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &apperr.GatewayError{Op: "create_pix", Message: "decode response", Err: err}
	}
	p := parsed.toPayment()
	p.IdempotencyKey = key
	return &p, nil
}

func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperr.Invalid("id", "required")
	}
	data, err := c.invoke(ctx, "get_payment", http.MethodGet, "/v1/payments/"+url.PathEscape(id), nil, nil, "")
	if err != nil {
		return nil, err
	}
	var parsed paymentBody
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &apperr.GatewayError{Op: "get_payment", Message: "decode response", Err: err}
	}
	p := parsed.toPayment()
	return &p, nil
}

// SearchRecentPayments lists payments created within the lookback window, newest first.
func (c *Client) SearchRecentPayments(ctx context.Context, lookback time.Duration, limit int) ([]Payment, error) {
	if lookback <= 0 {
		lookback = defaultLookback
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	now := c.now().UTC()
	q := url.Values{}
	q.Set("sort", "date_created")
	q.Set("criteria", "desc")
	q.Set("range", "date_created")
	q.Set("begin_date", now.Add(-lookback).Format("2006-01-02T15:04:05.000Z"))
	q.Set("end_date", now.Format("2006-01-02T15:04:05.000Z"))
	q.Set("limit", fmt.Sprint(limit))

	data, err := c.invoke(ctx, "search_payments", http.MethodGet, "/v1/payments/search", q, nil, "")
	if err != nil {
		return nil, err
	}
	var parsed searchBody
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &apperr.GatewayError{Op: "search_payments", Message: "decode response", Err: err}
	}
	out := make([]Payment, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		out = append(out, r.toPayment())
	}
	return out, nil
}

func (c *Client) invoke(ctx context.Context, op, method, path string, query url.Values, body []byte, idempotencyKey string) ([]byte, error) {
	if !c.Configured() {
		return nil, &apperr.GatewayError{Op: op, Err: ErrNotConfigured}
	}
	full := c.baseURL + path
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, full, reader)
	if err != nil {
		return nil, &apperr.GatewayError{Op: op, Message: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveGateway(op, 0, time.Since(started))
		c.logger.Error("mercadopago request: transport error",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return nil, &apperr.GatewayError{Op: op, Message: "provider unreachable", Err: err}
	}
	defer resp.Body.Close()
	c.metrics.ObserveGateway(op, resp.StatusCode, time.Since(started))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperr.GatewayError{Op: op, StatusCode: resp.StatusCode, Message: "read response", Err: err}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}
	gerr := decodeError(op, resp.StatusCode, data)
	c.logger.Error("mercadopago request: provider rejected call",
		slog.String("op", op),
		slog.Int("status", resp.StatusCode),
		slog.String("message", gerr.Message),
		slog.String("cause", gerr.Cause),
	)
	return nil, gerr
}

func decodeError(op string, status int, data []byte) *apperr.GatewayError {
	var parsed errorBody
	if err := json.Unmarshal(data, &parsed); err != nil {
		return &apperr.GatewayError{Op: op, StatusCode: status, Message: strings.TrimSpace(string(data))}
	}
	msg := parsed.Message
	if msg == "" {
		msg = parsed.Error
	}
	cause := ""
	if len(parsed.Cause) > 0 && string(parsed.Cause) != "null" {
		cause = string(parsed.Cause)
	}
	return &apperr.GatewayError{Op: op, StatusCode: status, Message: msg, Cause: cause}
}
