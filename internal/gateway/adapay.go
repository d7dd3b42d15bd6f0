package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/honeynil/AdaPayAcquirer/internal/infrastructure/observability"
	"github.com/honeynil/AdaPayAcquirer/internal/models"
	pkgerrors "github.com/honeynil/AdaPayAcquirer/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	ProductionURL = "https://api.adapay.finance"
	SandboxURL    = "https://api-testnet.adapay.finance"

	apiKeyHeader = "adapay-api-key"
)

type AdaPayClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewAdaPayClient builds a client for the sandbox or production API. A
// non-empty baseURL overrides both.
func NewAdaPayClient(apiKey string, sandbox bool, baseURL string, timeout time.Duration) *AdaPayClient {
	if baseURL == "" {
		baseURL = ProductionURL
		if sandbox {
			baseURL = SandboxURL
		}
	}
	return &AdaPayClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *AdaPayClient) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResponse, error) {
	var resp CreatePaymentResponse
	if err := c.do(ctx, "CreatePayment", http.MethodPost, "/paymentRequest", req, &resp); err != nil {
		return nil, err
	}
	if resp.UUID == "" {
		return nil, fmt.Errorf("%w: empty uuid in create response", pkgerrors.ErrGatewayRequest)
	}
	slog.Info("AdaPay payment request created", "order_id", req.OrderID, "uuid", resp.UUID, "amount", req.Amount)
	return &resp, nil
}

func (c *AdaPayClient) GetPaymentByUUID(ctx context.Context, id string) (*models.PaymentRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q", pkgerrors.ErrInvalidUUID, id)
	}
	var record models.PaymentRecord
	if err := c.do(ctx, "GetPaymentByUUID", http.MethodGet, "/paymentRequest/"+id, nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *AdaPayClient) GetPayments(ctx context.Context) ([]models.PaymentRecord, error) {
	var page struct {
		Data []models.PaymentRecord `json:"data"`
	}
	if err := c.do(ctx, "GetPayments", http.MethodGet, "/paymentRequest", nil, &page); err != nil {
		return nil, err
	}
	return page.Data, nil
}

func (c *AdaPayClient) do(ctx context.Context, op, method, path string, body, out interface{}) (err error) {
	tracer := otel.Tracer("adapay-gateway")
	ctx, span := tracer.Start(ctx, op)
	span.SetAttributes(attribute.String("http.method", method), attribute.String("http.path", path))
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.GatewayCalls.WithLabelValues(op, status).Inc()
		observability.GatewayDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("AdaPay request failed", "operation", op, "error", err)
		return fmt.Errorf("%w: %s: %v", pkgerrors.ErrGatewayRequest, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		slog.Error("AdaPay returned an error", "operation", op, "status", resp.StatusCode, "body", string(msg))
		return fmt.Errorf("%w: %s: status %d", pkgerrors.ErrGatewayRequest, op, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}
