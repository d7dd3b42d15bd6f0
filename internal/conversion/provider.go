// Package conversion quotes fiat amounts in ADA.
package conversion

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/honeynil/AdaPayAcquirer/pkg/errors"
	"github.com/shopspring/decimal"
)

const CoinMarketProvider = "coinmarket"

// Quote is the converted amount and the time the rate was last refreshed by
// the provider.
type Quote struct {
	Price       decimal.Decimal `json:"price"`
	LastUpdated string          `json:"last_updated"`
}

type Provider interface {
	PriceConversion(ctx context.Context, amount decimal.Decimal, amountCurrency, convertCurrency string) (*Quote, error)
}

// NewProvider returns the provider registered under name.
func NewProvider(name, apiKey string, sandbox bool, timeout time.Duration) (Provider, error) {
	switch name {
	case CoinMarketProvider:
		return NewCoinMarket(apiKey, sandbox, "", timeout), nil
	default:
		return nil, fmt.Errorf("%w: %q", pkgerrors.ErrUnknownConversionProvider, name)
	}
}
