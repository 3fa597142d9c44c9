package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"content-paygate/internal/domain"
	"content-paygate/internal/domain/model"
	"content-paygate/internal/domain/ports/repository"
)

var _ repository.CatalogRepository = (*CatalogRepo)(nil)

type CatalogRepo struct {
	pool *pgxpool.Pool
}

func NewCatalogRepo(pool *pgxpool.Pool) *CatalogRepo {
	return &CatalogRepo{pool: pool}
}

func (r *CatalogRepo) FindMerchantByID(ctx context.Context, tx repository.Tx, id string) (*model.Merchant, error) {
	sql := `SELECT id, name, payout_address, status, created_at FROM merchants WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, sql, id)
	if err != nil {
		return nil, err
	}
	var m model.Merchant
	var status string
	if err := row.Scan(&m.ID, &m.Name, &m.PayoutAddress, &status, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	m.Status = model.MerchantStatus(status)
	return &m, nil
}

func (r *CatalogRepo) FindContentByID(ctx context.Context, tx repository.Tx, id string) (*model.Content, error) {
	sql := `
		SELECT id, merchant_id, title, price, currency, chain, access_duration_secs,
		       purchase_count, created_at
		FROM contents WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, sql, id)
	if err != nil {
		return nil, err
	}
	var c model.Content
	var chain string
	if err := row.Scan(&c.ID, &c.MerchantID, &c.Title, &c.Price, &c.Currency, &chain,
		&c.AccessDurationSecs, &c.PurchaseCount, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	c.Chain = model.Chain(chain)
	return &c, nil
}

func (r *CatalogRepo) IncrementPurchaseCount(ctx context.Context, tx repository.Tx, contentID string) error {
	sql := `UPDATE contents SET purchase_count = purchase_count + 1 WHERE id = $1;`
	if _, err := execSQL(ctx, r.pool, tx, sql, contentID); err != nil {
		return fmt.Errorf("%w: increment purchase count: %v", domain.ErrOperationFailed, err)
	}
	return nil
}
