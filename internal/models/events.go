package models

import "time"

// StateChangeEvent is published whenever a transaction's local state moves.
type StateChangeEvent struct {
	TransactionID int64         `json:"transaction_id"`
	Reference     string        `json:"reference"`
	UUID          string        `json:"adapay_uuid"`
	From          LocalState    `json:"from"`
	To            LocalState    `json:"to"`
	Status        PaymentStatus `json:"adapay_status"`
	OccurredAt    time.Time     `json:"occurred_at"`
}
