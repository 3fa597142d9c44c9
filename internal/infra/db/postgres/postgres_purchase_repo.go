package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"content-paygate/internal/domain"
	"content-paygate/internal/domain/model"
	"content-paygate/internal/domain/ports/repository"
)

var _ repository.PurchaseRepository = (*PurchaseRepo)(nil)

// uniqueViolation is the Postgres error code for a unique constraint hit.
const uniqueViolation = "23505"

type PurchaseRepo struct {
	pool *pgxpool.Pool
}

func NewPurchaseRepo(pool *pgxpool.Pool) *PurchaseRepo {
	return &PurchaseRepo{pool: pool}
}

const purchaseColumns = `id, payment_intent_id, merchant_id, content_id, payer_address, amount,
       currency, chain, transaction_signature, access_token, expires_at, confirmed_at, created_at`

// Create inserts the purchase. The unique index on transaction_signature is
// the exactly-once guard; a conflict surfaces as domain.ErrAlreadyExists so
// the caller can return the winner's row.
func (r *PurchaseRepo) Create(ctx context.Context, tx repository.Tx, purchase *model.Purchase) error {
	sql := `
		INSERT INTO purchases (id, payment_intent_id, merchant_id, content_id, payer_address,
		                       amount, currency, chain, transaction_signature, access_token,
		                       expires_at, confirmed_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13);`
	_, err := execSQL(ctx, r.pool, tx, sql,
		purchase.ID, purchase.PaymentIntentID, purchase.MerchantID, purchase.ContentID,
		purchase.PayerAddress, purchase.Amount, purchase.Currency, string(purchase.Chain),
		purchase.TransactionSignature, purchase.AccessToken, purchase.ExpiresAt,
		purchase.ConfirmedAt, purchase.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: purchase for this transaction already exists", domain.ErrAlreadyExists)
		}
		return fmt.Errorf("%w: create purchase: %v", domain.ErrOperationFailed, err)
	}
	return nil
}

func (r *PurchaseRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Purchase, error) {
	sql := `SELECT ` + purchaseColumns + ` FROM purchases WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, sql, id)
	if err != nil {
		return nil, err
	}
	return scanPurchase(row)
}

func (r *PurchaseRepo) FindByTransactionSignature(ctx context.Context, tx repository.Tx, signature string) (*model.Purchase, error) {
	sql := `SELECT ` + purchaseColumns + ` FROM purchases WHERE transaction_signature = $1;`
	row, err := pickRow(ctx, r.pool, tx, sql, signature)
	if err != nil {
		return nil, err
	}
	return scanPurchase(row)
}

func (r *PurchaseRepo) ListByWallet(ctx context.Context, tx repository.Tx, payerAddress string, offset, limit int) ([]*model.Purchase, error) {
	sql := `
		SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE payer_address = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, sql, payerAddress, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list purchases: %v", domain.ErrOperationFailed, err)
	}
	defer rows.Close()

	var out []*model.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list purchases: %v", domain.ErrOperationFailed, err)
	}
	return out, nil
}

func scanPurchase(row pgx.Row) (*model.Purchase, error) {
	var p model.Purchase
	var chain string
	err := row.Scan(
		&p.ID, &p.PaymentIntentID, &p.MerchantID, &p.ContentID, &p.PayerAddress,
		&p.Amount, &p.Currency, &chain, &p.TransactionSignature, &p.AccessToken,
		&p.ExpiresAt, &p.ConfirmedAt, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	p.Chain = model.Chain(chain)
	return &p, nil
}
