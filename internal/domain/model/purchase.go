package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"content-paygate/internal/domain"
)

// Purchase is the durable record of a verified payment. TransactionSignature
// is globally unique across purchases; it is the idempotency key that makes
// settlement exactly-once.
type Purchase struct {
	ID                   string // UUID
	PaymentIntentID      string // 1:1 with the confirmed intent
	MerchantID           string
	ContentID            string
	PayerAddress         string
	Amount               int64
	Currency             string
	Chain                Chain
	TransactionSignature string
	AccessToken          string     // stored so replayed verifications return the identical token
	ExpiresAt            *time.Time // nil means perpetual access
	ConfirmedAt          time.Time
	CreatedAt            time.Time
}

// NewPurchase materializes a purchase from a confirmed intent.
func NewPurchase(intent *PaymentIntent, signature, payerAddress, accessToken string, expiresAt *time.Time, now time.Time) (*Purchase, error) {
	if intent == nil {
		return nil, fmt.Errorf("%w: intent is required", domain.ErrInvalidArgument)
	}
	if intent.Status != PaymentIntentStatusConfirmed {
		return nil, fmt.Errorf("%w: intent %s is %s", domain.ErrIntentNotPending, intent.ID, intent.Status)
	}
	if signature == "" || payerAddress == "" {
		return nil, fmt.Errorf("%w: signature and payer address are required", domain.ErrInvalidArgument)
	}
	return &Purchase{
		ID:                   uuid.NewString(),
		PaymentIntentID:      intent.ID,
		MerchantID:           intent.MerchantID,
		ContentID:            intent.ContentID,
		PayerAddress:         payerAddress,
		Amount:               intent.Amount,
		Currency:             intent.Currency,
		Chain:                intent.Chain,
		TransactionSignature: signature,
		AccessToken:          accessToken,
		ExpiresAt:            expiresAt,
		ConfirmedAt:          now,
		CreatedAt:            now,
	}, nil
}
