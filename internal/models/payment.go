package models

// StatusUpdate is the payload of a paymentRequestUpdate event. Amounts are
// in lovelace.
type StatusUpdate struct {
	OrderID         string        `json:"orderId"`
	Status          PaymentStatus `json:"status"`
	ConfirmedAmount int64         `json:"confirmedAmount"`
	PendingAmount   int64         `json:"pendingAmount"`
	UpdateTime      string        `json:"updateTime"`
	SubStatus       string        `json:"subStatus"`
}

// TransactionUpdate is the payload of a paymentRequestTransactionsUpdate
// event, and one element of a payment record's transaction list.
type TransactionUpdate struct {
	PaymentRequestUUID string `json:"paymentRequestUuid"`
	Hash               string `json:"hash"`
	Amount             int64  `json:"amount"`
	UpdateTime         string `json:"updateTime"`
}

// PaymentRecord is a payment request as returned by the gateway.
type PaymentRecord struct {
	UUID            string              `json:"uuid"`
	OrderID         string              `json:"orderId"`
	Address         string              `json:"address"`
	Amount          int64               `json:"amount"`
	Status          PaymentStatus       `json:"status"`
	SubStatus       string              `json:"subStatus"`
	ConfirmedAmount int64               `json:"confirmedAmount"`
	PendingAmount   int64               `json:"pendingAmount"`
	ExpirationDate  string              `json:"expirationDate"`
	UpdateTime      string              `json:"updateTime"`
	Transactions    []TransactionUpdate `json:"transactions"`
}

// StatusUpdate extracts the status part of the record.
func (p *PaymentRecord) StatusUpdate() StatusUpdate {
	return StatusUpdate{
		OrderID:         p.OrderID,
		Status:          p.Status,
		ConfirmedAmount: p.ConfirmedAmount,
		PendingAmount:   p.PendingAmount,
		UpdateTime:      p.UpdateTime,
		SubStatus:       p.SubStatus,
	}
}
