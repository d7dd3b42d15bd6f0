package models

// DisplayData is everything the checkout page needs to render a payment.
type DisplayData struct {
	Reference          string          `json:"reference"`
	UUID               string          `json:"adapay_uuid"`
	Address            string          `json:"adapay_address"`
	Amount             float64         `json:"adapay_amount"`
	TotalAmountSent    float64         `json:"adapay_total_amount_sent"`
	TotalAmountLeft    float64         `json:"adapay_total_amount_left"`
	ExpirationMinutes  int             `json:"adapay_expiration_minutes"`
	ExpirationDate     string          `json:"adapay_expiration_date"`
	UpdateTime         string          `json:"adapay_update_time"`
	LastUpdated        string          `json:"adapay_last_updated"`
	Status             PaymentStatus   `json:"adapay_status"`
	SubStatus          string          `json:"adapay_substatus"`
	TransactionHistory []HistoryRecord `json:"adapay_transaction_history"`
	Title              string          `json:"title"`
	ExpirationSeconds  int             `json:"adapay_expiration_seconds"`
	ReturnURL          string          `json:"return_url"`
}
