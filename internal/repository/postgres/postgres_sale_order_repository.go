package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
)

type PostgresSaleOrderRepository struct {
	db *sql.DB
}

func NewPostgresSaleOrderRepository(db *sql.DB) *PostgresSaleOrderRepository {
	return &PostgresSaleOrderRepository{db: db}
}

func (r *PostgresSaleOrderRepository) PostMessage(ctx context.Context, saleOrderID int64, body string) (err error) {
	ctx, finish := instrument(ctx, "sale-order-repository", "PostSaleOrderMessage", attribute.Int64("sale_order_id", saleOrderID))
	defer finish(&err)

	query := `INSERT INTO sale_order_messages (sale_order_id, body) VALUES ($1, $2)`
	if _, err = r.db.ExecContext(ctx, query, saleOrderID, body); err != nil {
		slog.Error("failed to post sale order message", "method", "PostMessage", "sale_order_id", saleOrderID, "error", err)
		return fmt.Errorf("failed to post sale order message: %w", err)
	}
	return nil
}
