package models

import (
	"encoding/json"
	"sort"
)

// EmptyHistory is the stored form of a ledger with no records.
const EmptyHistory = "{}"

// HistoryRecord is one on-chain transaction observed for a payment request.
// Amount is in ADA.
type HistoryRecord struct {
	Hash               string  `json:"hash"`
	Amount             float64 `json:"amount"`
	UpdateTime         string  `json:"updateTime"`
	PaymentRequestUUID string  `json:"paymentRequestUuid,omitempty"`
}

// TransactionHistory maps a transaction hash to its latest record.
type TransactionHistory map[string]HistoryRecord

// ParseHistory decodes the stored ledger. Empty or malformed text yields an
// empty ledger instead of an error.
func ParseHistory(text string) TransactionHistory {
	history := TransactionHistory{}
	if text == "" {
		return history
	}
	if err := json.Unmarshal([]byte(text), &history); err != nil || history == nil {
		return TransactionHistory{}
	}
	return history
}

// Encode returns the stored form of the ledger.
func (h TransactionHistory) Encode() (string, error) {
	if len(h) == 0 {
		return EmptyHistory, nil
	}
	b, err := json.Marshal(h)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Records returns the ledger entries ordered by update time, then hash.
func (h TransactionHistory) Records() []HistoryRecord {
	records := make([]HistoryRecord, 0, len(h))
	for _, r := range h {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].UpdateTime != records[j].UpdateTime {
			return records[i].UpdateTime < records[j].UpdateTime
		}
		return records[i].Hash < records[j].Hash
	})
	return records
}
