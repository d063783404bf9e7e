// AngelaMos | 2026
// gateway.go

package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/carterperez-dev/booking-api/internal/config"
	"github.com/carterperez-dev/booking-api/internal/core"
	"github.com/carterperez-dev/booking-api/internal/metrics"
)

const orderNote = "Booking payment"

type Order struct {
	ID            string
	Amount        float64
	Currency      string
	CustomerID    string
	CustomerEmail string
	CustomerPhone string
}

// Gateway opens hosted checkout sessions with an external payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, order Order) (sessionID string, err error)
}

type customerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

type createOrderRequest struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     float64         `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	OrderNote       string          `json:"order_note"`
	CustomerDetails customerDetails `json:"customer_details"`
}

type createOrderResponse struct {
	OrderID          string `json:"order_id"`
	PaymentSessionID string `json:"payment_session_id"`
}

// CashfreeClient talks to a Cashfree compatible orders API.
type CashfreeClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	apiVersion   string
	httpClient   *http.Client
}

func NewCashfreeClient(cfg config.PaymentConfig) *CashfreeClient {
	return &CashfreeClient{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		apiVersion:   cfg.APIVersion,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *CashfreeClient) CreateOrder(ctx context.Context, order Order) (string, error) {
	body, err := json.Marshal(createOrderRequest{
		OrderID:       order.ID,
		OrderAmount:   order.Amount,
		OrderCurrency: order.Currency,
		OrderNote:     orderNote,
		CustomerDetails: customerDetails{
			CustomerID:    order.CustomerID,
			CustomerEmail: order.CustomerEmail,
			CustomerPhone: order.CustomerPhone,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode order: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/orders",
		bytes.NewReader(body),
	)
	if err != nil {
		return "", fmt.Errorf("build order request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-client-id", c.clientID)
	req.Header.Set("x-client-secret", c.clientSecret)
	req.Header.Set("x-api-version", c.apiVersion)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.PaymentGatewayDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("create order %s: %v: %w", order.ID, err, core.ErrPaymentGateway)
	}
	defer resp.Body.Close() //nolint:errcheck // response body

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024)) //nolint:errcheck // best effort detail
		return "", fmt.Errorf(
			"create order %s: status %d: %s: %w",
			order.ID,
			resp.StatusCode,
			strings.TrimSpace(string(detail)),
			core.ErrPaymentGateway,
		)
	}

	var out createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode order %s: %v: %w", order.ID, err, core.ErrPaymentGateway)
	}

	if out.PaymentSessionID == "" {
		return "", fmt.Errorf("create order %s: empty session id: %w", order.ID, core.ErrPaymentGateway)
	}

	return out.PaymentSessionID, nil
}

// OrderReference derives a gateway order id from the booking id and the
// current clock, so every reopen gets a fresh reference.
func OrderReference(bookingID string, now time.Time) string {
	ms := fmt.Sprintf("%d", now.UnixMilli())
	if len(ms) > 6 {
		ms = ms[len(ms)-6:]
	}
	return "order_" + strings.ReplaceAll(bookingID, "-", "") + "_" + ms
}
