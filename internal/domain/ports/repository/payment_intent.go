package repository

import (
	"context"
	"time"

	"content-paygate/internal/domain/model"
)

// PaymentIntentRepository persists payment intents. All status transitions
// out of pending go through the conditional methods below; a blind status
// overwrite is deliberately not part of this interface.
type PaymentIntentRepository interface {
	Save(ctx context.Context, tx Tx, intent *model.PaymentIntent) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.PaymentIntent, error)

	// MarkConfirmed transitions pending -> confirmed, recording the payer,
	// signature and confirmation time. Returns false when the intent was no
	// longer pending (a concurrent verification won the transition).
	MarkConfirmed(ctx context.Context, tx Tx, id, signature, payerAddress string, confirmedAt time.Time) (bool, error)

	// UpdateStatusIfPending transitions pending -> failed|expired. Returns
	// false when the intent already left pending.
	UpdateStatusIfPending(ctx context.Context, tx Tx, id string, status model.PaymentIntentStatus) (bool, error)

	// ListPendingExpired returns pending intents whose expiry passed before
	// asOf, oldest first, for the expiry worker.
	ListPendingExpired(ctx context.Context, tx Tx, asOf time.Time, limit int) ([]*model.PaymentIntent, error)
}
