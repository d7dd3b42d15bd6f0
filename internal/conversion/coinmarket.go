package conversion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/honeynil/AdaPayAcquirer/internal/infrastructure/observability"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	CoinMarketURL        = "https://pro-api.coinmarketcap.com"
	CoinMarketSandboxURL = "https://sandbox-api.coinmarketcap.com"

	coinMarketKeyHeader = "X-CMC_PRO_API_KEY"
)

type CoinMarket struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewCoinMarket(apiKey string, sandbox bool, baseURL string, timeout time.Duration) *CoinMarket {
	if baseURL == "" {
		baseURL = CoinMarketURL
		if sandbox {
			baseURL = CoinMarketSandboxURL
		}
	}
	return &CoinMarket{baseURL: baseURL, apiKey: apiKey, httpClient: &http.Client{Timeout: timeout}}
}

type coinMarketResponse struct {
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
	Data struct {
		Symbol      string           `json:"symbol"`
		Amount      decimal.Decimal  `json:"amount"`
		LastUpdated string           `json:"last_updated"`
		Quote       map[string]Quote `json:"quote"`
	} `json:"data"`
}

func (c *CoinMarket) PriceConversion(ctx context.Context, amount decimal.Decimal, amountCurrency, convertCurrency string) (quote *Quote, err error) {
	tracer := otel.Tracer("conversion-provider")
	ctx, span := tracer.Start(ctx, "PriceConversion")
	span.SetAttributes(
		attribute.String("amount", amount.String()),
		attribute.String("amount_currency", amountCurrency),
		attribute.String("convert_currency", convertCurrency),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.GatewayCalls.WithLabelValues("PriceConversion", status).Inc()
		observability.GatewayDuration.WithLabelValues("PriceConversion").Observe(time.Since(start).Seconds())
	}()

	params := url.Values{}
	params.Set("amount", amount.String())
	params.Set("symbol", amountCurrency)
	params.Set("convert", convertCurrency)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/tools/price-conversion?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build conversion request: %w", err)
	}
	req.Header.Set(coinMarketKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("conversion request failed: %w", err)
	}
	defer resp.Body.Close()

	var body coinMarketResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode conversion response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || body.Status.ErrorCode != 0 {
		return nil, fmt.Errorf("conversion provider error %d (status %d): %s", body.Status.ErrorCode, resp.StatusCode, body.Status.ErrorMessage)
	}

	q, ok := body.Data.Quote[convertCurrency]
	if !ok {
		return nil, fmt.Errorf("conversion response has no %s quote", convertCurrency)
	}

	slog.Info("price converted",
		"provider", CoinMarketProvider,
		"amount", amount.String(),
		"amount_currency", amountCurrency,
		"price", q.Price.String(),
		"convert_currency", convertCurrency,
		"last_updated", q.LastUpdated)
	return &q, nil
}
