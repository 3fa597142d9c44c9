package repository

import (
	"context"

	"content-paygate/internal/domain/model"
)

// CatalogRepository reads merchants and contents. The payment core never
// mutates catalog data except the best-effort purchase counter.
type CatalogRepository interface {
	FindMerchantByID(ctx context.Context, tx Tx, id string) (*model.Merchant, error)
	FindContentByID(ctx context.Context, tx Tx, id string) (*model.Content, error)

	// IncrementPurchaseCount bumps the content's counter. Best effort: a
	// miss is not a correctness failure for the purchase itself.
	IncrementPurchaseCount(ctx context.Context, tx Tx, contentID string) error
}
