package reconcile

import (
	"github.com/honeynil/AdaPayAcquirer/internal/models"
	"github.com/honeynil/AdaPayAcquirer/pkg/ada"
)

// MergeHistory records upd in the transaction's ledger. A record is only
// overwritten when its updateTime differs from the stored one, so replays
// are no-ops. It reports whether the ledger changed and returns the stored
// record.
func MergeHistory(tx *models.Transaction, upd models.TransactionUpdate) (models.HistoryRecord, bool, error) {
	history := models.ParseHistory(tx.TransactionHistory)

	if existing, ok := history[upd.Hash]; ok && existing.UpdateTime == upd.UpdateTime {
		return existing, false, nil
	}

	record := models.HistoryRecord{
		Hash:               upd.Hash,
		Amount:             ada.LovelaceToADA(upd.Amount),
		UpdateTime:         upd.UpdateTime,
		PaymentRequestUUID: upd.PaymentRequestUUID,
	}
	history[upd.Hash] = record

	encoded, err := history.Encode()
	if err != nil {
		return models.HistoryRecord{}, false, err
	}
	tx.TransactionHistory = encoded
	return record, true, nil
}
