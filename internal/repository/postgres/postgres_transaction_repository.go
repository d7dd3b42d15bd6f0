package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/honeynil/AdaPayAcquirer/internal/models"
	pkgerrors "github.com/honeynil/AdaPayAcquirer/pkg/errors"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
)

const transactionTracer = "transaction-repository"

const transactionColumns = `id, reference, amount, currency, partner_email, state, sale_order_ids, created_at,
	adapay_uuid, adapay_address, adapay_amount, adapay_total_amount_sent, adapay_total_amount_left,
	adapay_expiration_minutes, adapay_expiration_date, adapay_update_time, adapay_last_updated,
	adapay_status, adapay_substatus, adapay_transaction_history`

type PostgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

func (r *PostgresTransactionRepository) Create(ctx context.Context, tx *models.Transaction) (id int64, err error) {
	ctx, finish := instrument(ctx, transactionTracer, "CreateTransaction")
	defer finish(&err)

	if tx == nil {
		err = pkgerrors.ErrNilTransaction
		slog.Error("failed to create transaction", "method", "Create", "error", err)
		return 0, err
	}

	if tx.Reference == "" {
		err = pkgerrors.ErrInvalidReference
		slog.Error("invalid reference", "method", "Create", "error", err)
		return 0, err
	}

	if !tx.State.Valid() {
		err = pkgerrors.ErrInvalidTransactionState
		slog.Error("invalid transaction state", "method", "Create", "state", tx.State, "error", err)
		return 0, err
	}

	if tx.Amount <= 0 {
		err = pkgerrors.ErrInvalidAmount
		slog.Error("amount must be positive", "method", "Create", "amount", tx.Amount, "error", err)
		return 0, err
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", "Create", "error", err)
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `INSERT INTO payment_transactions (reference, amount, currency, partner_email, state, sale_order_ids,
	adapay_uuid, adapay_address, adapay_amount, adapay_total_amount_sent, adapay_total_amount_left,
	adapay_expiration_minutes, adapay_expiration_date, adapay_update_time, adapay_last_updated,
	adapay_status, adapay_substatus, adapay_transaction_history)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	RETURNING id, created_at`
	var createdAt time.Time
	err = dbTx.QueryRowContext(ctx, query,
		tx.Reference, tx.Amount, tx.Currency, tx.PartnerEmail, tx.State, pq.Array(tx.SaleOrderIDs),
		tx.UUID, tx.Address, tx.AdaAmount, tx.TotalAmountSent, tx.TotalAmountLeft,
		tx.ExpirationMinutes, tx.ExpirationDate, tx.UpdateTime, tx.LastUpdated,
		tx.Status, tx.SubStatus, tx.TransactionHistory,
	).Scan(&id, &createdAt)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == "23505" {
			_ = dbTx.Rollback()
			slog.Error("transaction already exists", "method", "Create", "reference", tx.Reference)
			err = pkgerrors.ErrTransactionExists
			return 0, err
		}
		if rbErr := dbTx.Rollback(); rbErr != nil {
			err = fmt.Errorf("rollback failed: %v; original error: %w", rbErr, err)
			slog.Error("rollback failed", "method", "Create", "error", rbErr)
		} else {
			slog.Error("failed to create transaction", "method", "Create", "reference", tx.Reference, "error", err)
		}
		return 0, fmt.Errorf("failed to create transaction: %w", err)
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "method", "Create", "error", err)
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	tx.ID = id
	tx.CreatedAt = createdAt
	slog.Info("transaction created", "method", "Create", "id", tx.ID, "reference", tx.Reference, "uuid", tx.UUID, "state", tx.State)
	return id, nil
}

func (r *PostgresTransactionRepository) GetByReference(ctx context.Context, reference string) (tx *models.Transaction, err error) {
	ctx, finish := instrument(ctx, transactionTracer, "GetTransactionByReference", attribute.String("reference", reference))
	defer finish(&err)

	return r.findOne(ctx, "GetByReference", `SELECT `+transactionColumns+` FROM payment_transactions WHERE reference = $1 LIMIT 2`, reference)
}

func (r *PostgresTransactionRepository) GetByUUID(ctx context.Context, uuid string) (tx *models.Transaction, err error) {
	ctx, finish := instrument(ctx, transactionTracer, "GetTransactionByUUID", attribute.String("uuid", uuid))
	defer finish(&err)

	return r.findOne(ctx, "GetByUUID", `SELECT `+transactionColumns+` FROM payment_transactions WHERE adapay_uuid = $1 LIMIT 2`, uuid)
}

// findOne expects exactly one row: zero rows and more than one row are both
// lookup failures.
func (r *PostgresTransactionRepository) findOne(ctx context.Context, method, query string, arg string) (*models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		slog.Error("failed to query transaction", "method", method, "value", arg, "error", err)
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}
	defer rows.Close()

	var found []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			slog.Error("failed to scan transaction", "method", method, "value", arg, "error", err)
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		found = append(found, tx)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate transactions", "method", method, "value", arg, "error", err)
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}

	switch len(found) {
	case 0:
		slog.Error("transaction not found", "method", method, "value", arg)
		return nil, pkgerrors.ErrTransactionNotFound
	case 1:
		slog.Info("transaction retrieved", "method", method, "id", found[0].ID, "reference", found[0].Reference)
		return found[0], nil
	default:
		slog.Error("multiple transactions found", "method", method, "value", arg)
		return nil, pkgerrors.ErrMultipleTransactions
	}
}

func scanTransaction(rows *sql.Rows) (*models.Transaction, error) {
	var tx models.Transaction
	err := rows.Scan(
		&tx.ID, &tx.Reference, &tx.Amount, &tx.Currency, &tx.PartnerEmail, &tx.State, pq.Array(&tx.SaleOrderIDs), &tx.CreatedAt,
		&tx.UUID, &tx.Address, &tx.AdaAmount, &tx.TotalAmountSent, &tx.TotalAmountLeft,
		&tx.ExpirationMinutes, &tx.ExpirationDate, &tx.UpdateTime, &tx.LastUpdated,
		&tx.Status, &tx.SubStatus, &tx.TransactionHistory,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *PostgresTransactionRepository) Update(ctx context.Context, tx *models.Transaction) (err error) {
	if tx == nil {
		return pkgerrors.ErrNilTransaction
	}
	ctx, finish := instrument(ctx, transactionTracer, "UpdateTransaction",
		attribute.Int64("transaction_id", tx.ID),
		attribute.String("state", string(tx.State)),
		attribute.String("adapay_status", string(tx.Status)),
	)
	defer finish(&err)

	if !tx.State.Valid() {
		err = pkgerrors.ErrInvalidTransactionState
		slog.Error("invalid transaction state", "method", "Update", "state", tx.State, "error", err)
		return err
	}

	query := `UPDATE payment_transactions SET state = $2, adapay_uuid = $3, adapay_address = $4, adapay_amount = $5,
	adapay_total_amount_sent = $6, adapay_total_amount_left = $7, adapay_expiration_minutes = $8,
	adapay_expiration_date = $9, adapay_update_time = $10, adapay_last_updated = $11, adapay_status = $12,
	adapay_substatus = $13, adapay_transaction_history = $14, updated_at = NOW()
	WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query,
		tx.ID, tx.State, tx.UUID, tx.Address, tx.AdaAmount,
		tx.TotalAmountSent, tx.TotalAmountLeft, tx.ExpirationMinutes,
		tx.ExpirationDate, tx.UpdateTime, tx.LastUpdated, tx.Status,
		tx.SubStatus, tx.TransactionHistory,
	)
	if err != nil {
		slog.Error("failed to update transaction", "method", "Update", "id", tx.ID, "error", err)
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if n == 0 {
		err = pkgerrors.ErrTransactionNotFound
		slog.Error("transaction not found", "method", "Update", "id", tx.ID)
		return err
	}

	slog.Info("transaction updated", "method", "Update", "id", tx.ID, "reference", tx.Reference, "state", tx.State, "adapay_status", tx.Status)
	return nil
}
