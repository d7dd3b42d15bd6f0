package repository

import "context"

// SaleOrderRepository posts audit notes on the host platform's sales orders.
type SaleOrderRepository interface {
	PostMessage(ctx context.Context, saleOrderID int64, body string) error
}
