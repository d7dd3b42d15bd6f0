package reconcile

import (
	"time"

	"github.com/honeynil/AdaPayAcquirer/internal/models"
)

// ExpiresAt is the moment an unpaid request stops accepting funds.
func ExpiresAt(tx *models.Transaction) time.Time {
	return tx.CreatedAt.Add(time.Duration(tx.ExpirationMinutes) * time.Minute)
}

// CheckExpiration marks a request that is still new as expired once its
// window has passed. It must run before the transaction is read for display.
func CheckExpiration(tx *models.Transaction, now time.Time) bool {
	if tx.Status != models.StatusNew {
		return false
	}
	if !now.After(ExpiresAt(tx)) {
		return false
	}
	tx.Status = models.StatusExpired
	return true
}

// ExpirationSeconds returns the whole seconds left for a new request, or 0.
func ExpirationSeconds(tx *models.Transaction, now time.Time) int {
	if tx.Status != models.StatusNew {
		return 0
	}
	left := ExpiresAt(tx).Sub(now)
	if left <= 0 {
		return 0
	}
	return int(left / time.Second)
}
