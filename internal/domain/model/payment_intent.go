package model

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/oklog/ulid/v2"

	"content-paygate/internal/domain"
)

type PaymentIntentStatus string

const (
	PaymentIntentStatusPending   PaymentIntentStatus = "pending"   // awaiting an on-chain transaction
	PaymentIntentStatusConfirmed PaymentIntentStatus = "confirmed" // verified on-chain; terminal
	PaymentIntentStatusFailed    PaymentIntentStatus = "failed"    // verification rejected; terminal
	PaymentIntentStatusExpired   PaymentIntentStatus = "expired"   // expiry passed before settlement; terminal
)

// PaymentIntent records an expected future on-chain payment. It transitions
// at most once out of pending and is never deleted (audit trail).
type PaymentIntent struct {
	ID               string // ULID
	MerchantID       string
	ContentID        string
	Amount           int64 // smallest on-chain unit (lamports / wei)
	Currency         string
	Chain            Chain
	Nonce            string // random reference value, base58
	Memo             string // embedded in the on-chain transaction where the chain supports it
	RecipientAddress string // merchant payout address snapshotted at creation
	ExpiresAt        time.Time
	Status           PaymentIntentStatus

	// Populated only on the transition to confirmed.
	PayerAddress         *string
	TransactionSignature *string
	ConfirmedAt          *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPaymentIntent builds a pending intent with a fresh ID, nonce and memo.
// recipientAddress is a snapshot: a merchant changing payout address later
// cannot invalidate an in-flight intent.
func NewPaymentIntent(merchantID, contentID string, amount int64, currency string, chain Chain, recipientAddress string, ttl time.Duration) (*PaymentIntent, error) {
	if merchantID == "" || contentID == "" {
		return nil, fmt.Errorf("%w: merchant and content IDs are required", domain.ErrInvalidArgument)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidArgument)
	}
	if !chain.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedChain, chain)
	}
	if !chain.ValidAddress(recipientAddress) {
		return nil, fmt.Errorf("%w: recipient address %q is not valid for chain %s", domain.ErrInvalidArgument, recipientAddress, chain)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive", domain.ErrInvalidArgument)
	}

	nonce, err := newNonce()
	if err != nil {
		return nil, err
	}

	id := ulid.Make().String()
	now := time.Now().UTC()
	return &PaymentIntent{
		ID:               id,
		MerchantID:       merchantID,
		ContentID:        contentID,
		Amount:           amount,
		Currency:         currency,
		Chain:            chain,
		Nonce:            nonce,
		Memo:             fmt.Sprintf("PAY:%s:%s:%s", merchantID, contentID, id),
		RecipientAddress: recipientAddress,
		ExpiresAt:        now.Add(ttl),
		Status:           PaymentIntentStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Expired reports whether the intent's expiry has passed at the given time.
func (p *PaymentIntent) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// newNonce returns 32 random bytes in base58, shaped like a Solana public
// key so wallets can use it as a Solana Pay reference account.
func newNonce() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return solana.PublicKeyFromBytes(b[:]).String(), nil
}
