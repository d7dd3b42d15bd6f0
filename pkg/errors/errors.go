package errors

import (
	"errors"
)

var (
	ErrNilTransaction            = errors.New("transaction is nil")
	ErrInvalidTransactionState   = errors.New("invalid transaction state")
	ErrTransactionNotFound       = errors.New("transaction not found")
	ErrMultipleTransactions      = errors.New("multiple transactions found")
	ErrTransactionExists         = errors.New("transaction already exists")
	ErrTransactionLocked         = errors.New("transaction is locked by another update")
	ErrInvalidAmount             = errors.New("amount must be positive")
	ErrInvalidReference          = errors.New("reference is required")
	ErrInvalidUUID               = errors.New("invalid payment request uuid")
	ErrInvalidWebhookPayload     = errors.New("invalid webhook payload")
	ErrConversionUnavailable     = errors.New("We cannot get the ADA currency rate. Please try again.")
	ErrGatewayUnavailable        = errors.New("We cannot create the AdaPay payment request. Please try again.")
	ErrUnknownConversionProvider = errors.New("unknown conversion provider")
	ErrGatewayRequest            = errors.New("gateway request failed")
	ErrWebhookModeEnabled        = errors.New("synchronisation is disabled in webhook mode")
	ErrInvalidInput              = errors.New("invalid input")
)
