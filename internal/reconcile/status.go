// Package reconcile holds the rules that keep a local transaction in step
// with the AdaPay payment request lifecycle. Functions here mutate the
// transaction in memory only; persistence and notifications belong to the
// caller.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/honeynil/AdaPayAcquirer/internal/models"
	"github.com/honeynil/AdaPayAcquirer/pkg/ada"
)

// UnrecognizedStatusPolicy decides what an unrecognised gateway status does
// to the local state.
type UnrecognizedStatusPolicy string

const (
	// PolicyCancel cancels the transaction.
	PolicyCancel UnrecognizedStatusPolicy = "cancel"
	// PolicyIgnore leaves the local state untouched.
	PolicyIgnore UnrecognizedStatusPolicy = "ignore"
)

// ParsePolicy parses a configured policy name. Empty means PolicyCancel.
func ParsePolicy(s string) (UnrecognizedStatusPolicy, error) {
	switch p := UnrecognizedStatusPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyCancel, nil
	case PolicyCancel, PolicyIgnore:
		return p, nil
	default:
		return "", fmt.Errorf("unknown unrecognized status policy %q", s)
	}
}

// Transition describes the local state movement caused by an update.
type Transition struct {
	From    models.LocalState
	To      models.LocalState
	Changed bool
}

// ApplyStatus mirrors the update onto tx and maps the external status to the
// local state. The mirrored fields are written on every call; the state only
// moves when it differs from the target.
func ApplyStatus(tx *models.Transaction, upd models.StatusUpdate, policy UnrecognizedStatusPolicy) Transition {
	tx.TotalAmountSent = ada.LovelaceToADA(upd.ConfirmedAmount)
	tx.TotalAmountLeft = ada.LovelaceToADA(upd.PendingAmount)
	tx.LastUpdated = upd.UpdateTime
	tx.Status = upd.Status
	tx.SubStatus = upd.SubStatus

	tr := Transition{From: tx.State, To: tx.State}
	target, ok := targetState(upd.Status, policy)
	if !ok || tx.State == target {
		return tr
	}
	tx.State = target
	tr.To = target
	tr.Changed = true
	return tr
}

func targetState(status models.PaymentStatus, policy UnrecognizedStatusPolicy) (models.LocalState, bool) {
	switch {
	case status == models.StatusConfirmed:
		return models.StateDone, true
	case status.InProgress():
		return models.StatePending, true
	case policy == PolicyIgnore:
		return "", false
	default:
		return models.StateCancel, true
	}
}
