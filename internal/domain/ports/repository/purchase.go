package repository

import (
	"context"

	"content-paygate/internal/domain/model"
)

// PurchaseRepository persists purchases. The storage layer enforces a unique
// constraint on TransactionSignature; Create must return
// domain.ErrAlreadyExists on that conflict so callers can recover the
// winner's row instead of erroring.
type PurchaseRepository interface {
	Create(ctx context.Context, tx Tx, purchase *model.Purchase) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Purchase, error)
	FindByTransactionSignature(ctx context.Context, tx Tx, signature string) (*model.Purchase, error)
	ListByWallet(ctx context.Context, tx Tx, payerAddress string, offset, limit int) ([]*model.Purchase, error)
}
