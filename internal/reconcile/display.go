package reconcile

import (
	"time"

	"github.com/honeynil/AdaPayAcquirer/internal/models"
)

var titles = map[models.PaymentStatus]string{
	models.StatusNew:         "To complete your payment, please send ADA to the address below.",
	models.StatusPaymentSent: "Your payment was received! You payment is pending for confirmation.",
	models.StatusPending:     "The transaction is in the process of being confirmed.",
	models.StatusConfirmed:   "The transaction is confirmed!",
	models.StatusExpired:     "The payment request is expired. Please back to payment selection.",
}

const fallbackTitle = "The payment request was cancelled. Please back to payment selection."

// Title is the headline shown for a gateway status.
func Title(status models.PaymentStatus) string {
	if t, ok := titles[status]; ok {
		return t
	}
	return fallbackTitle
}

// BuildDisplayData assembles the checkout page payload. It does not modify tx;
// run CheckExpiration first.
func BuildDisplayData(tx *models.Transaction, now time.Time, returnURL string) models.DisplayData {
	data := models.DisplayData{
		Reference:          tx.Reference,
		UUID:               tx.UUID,
		Address:            tx.Address,
		Amount:             tx.AdaAmount,
		TotalAmountSent:    tx.TotalAmountSent,
		TotalAmountLeft:    tx.TotalAmountLeft,
		ExpirationMinutes:  tx.ExpirationMinutes,
		ExpirationDate:     tx.ExpirationDate,
		UpdateTime:         tx.UpdateTime,
		LastUpdated:        tx.LastUpdated,
		Status:             tx.Status,
		SubStatus:          tx.SubStatus,
		TransactionHistory: models.ParseHistory(tx.TransactionHistory).Records(),
		Title:              Title(tx.Status),
		ExpirationSeconds:  ExpirationSeconds(tx, now),
	}
	// the confirmation page is only reachable once the payment is confirmed
	if tx.Status == models.StatusConfirmed {
		data.ReturnURL = returnURL
	}
	return data
}
