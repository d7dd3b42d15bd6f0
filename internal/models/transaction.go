package models

import "time"

// Transaction is a single payment attempt tied to one order, extended with
// the fields mirrored from the AdaPay payment request.
type Transaction struct {
	ID           int64      `json:"id"`
	Reference    string     `json:"reference"`
	Amount       float64    `json:"amount"`
	Currency     string     `json:"currency"`
	PartnerEmail string     `json:"partner_email"`
	State        LocalState `json:"state"`
	SaleOrderIDs []int64    `json:"sale_order_ids"`
	CreatedAt    time.Time  `json:"created_at"`

	UUID               string        `json:"adapay_uuid"`
	Address            string        `json:"adapay_address"`
	AdaAmount          float64       `json:"adapay_amount"`
	TotalAmountSent    float64       `json:"adapay_total_amount_sent"`
	TotalAmountLeft    float64       `json:"adapay_total_amount_left"`
	ExpirationMinutes  int           `json:"adapay_expiration_minutes"`
	ExpirationDate     string        `json:"adapay_expiration_date"`
	UpdateTime         string        `json:"adapay_update_time"`
	LastUpdated        string        `json:"adapay_last_updated"`
	Status             PaymentStatus `json:"adapay_status"`
	SubStatus          string        `json:"adapay_substatus"`
	TransactionHistory string        `json:"adapay_transaction_history"`
}

// NewTransaction returns a draft transaction with the AdaPay defaults applied.
func NewTransaction(reference string, amount float64, currency string) *Transaction {
	return &Transaction{
		Reference:          reference,
		Amount:             amount,
		Currency:           currency,
		State:              StateDraft,
		Status:             StatusNew,
		TransactionHistory: EmptyHistory,
	}
}

// LocalState is the host platform's own transaction state.
type LocalState string

const (
	StateDraft   LocalState = "draft"
	StatePending LocalState = "pending"
	StateDone    LocalState = "done"
	StateCancel  LocalState = "cancel"
)

func (s LocalState) Valid() bool {
	switch s {
	case StateDraft, StatePending, StateDone, StateCancel:
		return true
	}
	return false
}

// PaymentStatus is the lifecycle status reported by the gateway. Values
// outside the known set are kept verbatim.
type PaymentStatus string

const (
	StatusNew         PaymentStatus = "new"
	StatusPaymentSent PaymentStatus = "payment-sent"
	StatusPending     PaymentStatus = "pending"
	StatusConfirmed   PaymentStatus = "confirmed"
	StatusExpired     PaymentStatus = "expired"
)

// InProgress reports whether the gateway still considers the payment open.
func (s PaymentStatus) InProgress() bool {
	switch s {
	case StatusNew, StatusPaymentSent, StatusPending:
		return true
	}
	return false
}
