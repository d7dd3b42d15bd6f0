package models

import "encoding/json"

const (
	EventPaymentRequestUpdate             = "paymentRequestUpdate"
	EventPaymentRequestTransactionsUpdate = "paymentRequestTransactionsUpdate"
)

// WebhookEvent is the envelope of every gateway notification. Data is
// decoded according to Event.
type WebhookEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}
