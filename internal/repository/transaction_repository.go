package repository

import (
	"context"

	"github.com/honeynil/AdaPayAcquirer/internal/models"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) (int64, error)
	GetByReference(ctx context.Context, reference string) (*models.Transaction, error)
	GetByUUID(ctx context.Context, uuid string) (*models.Transaction, error)
	Update(ctx context.Context, tx *models.Transaction) error
}
