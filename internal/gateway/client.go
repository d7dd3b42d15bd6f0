// Package gateway talks to the AdaPay payment request API.
package gateway

import (
	"context"

	"github.com/honeynil/AdaPayAcquirer/internal/models"
)

// CreatePaymentRequest asks the gateway for a new payment request. Amount is
// in lovelace.
type CreatePaymentRequest struct {
	Amount            int64  `json:"amount"`
	ExpirationMinutes int    `json:"expirationMinutes"`
	ReceiptEmail      string `json:"receiptEmail,omitempty"`
	Description       string `json:"description"`
	Name              string `json:"name"`
	OrderID           string `json:"orderId"`
}

type CreatePaymentResponse struct {
	UUID string `json:"uuid"`
}

type Client interface {
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResponse, error)
	GetPaymentByUUID(ctx context.Context, uuid string) (*models.PaymentRecord, error)
	GetPayments(ctx context.Context) ([]models.PaymentRecord, error)
}
