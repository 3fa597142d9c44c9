package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"content-paygate/internal/domain"
	"content-paygate/internal/domain/model"
	"content-paygate/internal/domain/ports/repository"
)

var _ repository.PaymentIntentRepository = (*PaymentIntentRepo)(nil)

type PaymentIntentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentIntentRepo(pool *pgxpool.Pool) *PaymentIntentRepo {
	return &PaymentIntentRepo{pool: pool}
}

const paymentIntentColumns = `id, merchant_id, content_id, amount, currency, chain, nonce, memo,
       recipient_address, expires_at, status, payer_address, transaction_signature,
       confirmed_at, created_at, updated_at`

func (r *PaymentIntentRepo) Save(ctx context.Context, tx repository.Tx, intent *model.PaymentIntent) error {
	sql := `
		INSERT INTO payment_intents (id, merchant_id, content_id, amount, currency, chain, nonce, memo,
		                             recipient_address, expires_at, status, payer_address,
		                             transaction_signature, confirmed_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			payer_address = EXCLUDED.payer_address,
			transaction_signature = EXCLUDED.transaction_signature,
			confirmed_at = EXCLUDED.confirmed_at,
			updated_at = EXCLUDED.updated_at;`
	_, err := execSQL(ctx, r.pool, tx, sql,
		intent.ID, intent.MerchantID, intent.ContentID, intent.Amount, intent.Currency,
		string(intent.Chain), intent.Nonce, intent.Memo, intent.RecipientAddress,
		intent.ExpiresAt, string(intent.Status), intent.PayerAddress,
		intent.TransactionSignature, intent.ConfirmedAt, intent.CreatedAt, intent.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: save payment intent: %v", domain.ErrOperationFailed, err)
	}
	return nil
}

func (r *PaymentIntentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentIntent, error) {
	sql := `SELECT ` + paymentIntentColumns + ` FROM payment_intents WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, sql, id)
	if err != nil {
		return nil, err
	}
	return scanPaymentIntent(row)
}

func (r *PaymentIntentRepo) MarkConfirmed(ctx context.Context, tx repository.Tx, id, signature, payerAddress string, confirmedAt time.Time) (bool, error) {
	sql := `
		UPDATE payment_intents
		SET status = 'confirmed', transaction_signature = $2, payer_address = $3,
		    confirmed_at = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'pending';`
	tag, err := execSQL(ctx, r.pool, tx, sql, id, signature, payerAddress, confirmedAt)
	if err != nil {
		return false, fmt.Errorf("%w: confirm payment intent: %v", domain.ErrOperationFailed, err)
	}
	return tag.RowsAffected() >= 1, nil
}

func (r *PaymentIntentRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.PaymentIntentStatus) (bool, error) {
	sql := `
		UPDATE payment_intents
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending';`
	tag, err := execSQL(ctx, r.pool, tx, sql, id, string(status))
	if err != nil {
		return false, fmt.Errorf("%w: update payment intent status: %v", domain.ErrOperationFailed, err)
	}
	return tag.RowsAffected() >= 1, nil
}

func (r *PaymentIntentRepo) ListPendingExpired(ctx context.Context, tx repository.Tx, asOf time.Time, limit int) ([]*model.PaymentIntent, error) {
	sql := `
		SELECT ` + paymentIntentColumns + `
		FROM payment_intents
		WHERE status = 'pending' AND expires_at < $1
		ORDER BY expires_at ASC
		LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, sql, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list expired intents: %v", domain.ErrOperationFailed, err)
	}
	defer rows.Close()

	var out []*model.PaymentIntent
	for rows.Next() {
		intent, err := scanPaymentIntent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, intent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list expired intents: %v", domain.ErrOperationFailed, err)
	}
	return out, nil
}

func scanPaymentIntent(row pgx.Row) (*model.PaymentIntent, error) {
	var intent model.PaymentIntent
	var chain, status string
	err := row.Scan(
		&intent.ID, &intent.MerchantID, &intent.ContentID, &intent.Amount, &intent.Currency,
		&chain, &intent.Nonce, &intent.Memo, &intent.RecipientAddress, &intent.ExpiresAt,
		&status, &intent.PayerAddress, &intent.TransactionSignature, &intent.ConfirmedAt,
		&intent.CreatedAt, &intent.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	intent.Chain = model.Chain(chain)
	intent.Status = model.PaymentIntentStatus(status)
	return &intent, nil
}
