package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"content-paygate/internal/domain"
	"content-paygate/internal/domain/model"
	"content-paygate/internal/domain/ports/adapter"
	"content-paygate/internal/domain/ports/repository"
	"content-paygate/internal/infra/logging"
	"content-paygate/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// VerifierRegistry resolves the verifier for a chain; fails closed for
// unregistered chains.
type VerifierRegistry interface {
	Get(chain model.Chain) (adapter.ChainVerifier, error)
}

// PaymentURLBuilder encodes a chain-appropriate payment request for an intent.
type PaymentURLBuilder func(intent *model.PaymentIntent, label string) string

// VerificationOutcome is what a successful verify-payment call returns.
type VerificationOutcome struct {
	Status      string `json:"status"`
	PurchaseID  string `json:"purchaseId"`
	AccessToken string `json:"accessToken"`
}

type PaymentUseCase interface {
	// CreatePaymentRequest opens a pending intent for the given content and
	// returns it with a chain-appropriate payment URL.
	CreatePaymentRequest(ctx context.Context, merchantID, contentID string, overridePrice *int64, overrideChain model.Chain) (*model.PaymentIntent, string, error)
	// VerifyPayment checks the submitted transaction against the intent and,
	// on success, settles it into a purchase + access token. Idempotent on
	// transaction signature.
	VerifyPayment(ctx context.Context, intentID, txSignature string) (*VerificationOutcome, error)
	// PaymentStatus looks up the purchase settled by a transaction signature.
	PaymentStatus(ctx context.Context, txSignature string) (*model.Purchase, error)
	// ExpirePending transitions pending intents past their expiry to expired.
	ExpirePending(ctx context.Context, limit int) (int, error)
}

type paymentUC struct {
	intents   repository.PaymentIntentRepository
	purchases repository.PurchaseRepository
	catalog   repository.CatalogRepository
	registry  VerifierRegistry
	settle    PurchaseUseCase
	buildURL  PaymentURLBuilder
	intentTTL time.Duration
	dev       bool
	log       *zerolog.Logger
}

func NewPaymentUseCase(
	intents repository.PaymentIntentRepository,
	purchases repository.PurchaseRepository,
	catalog repository.CatalogRepository,
	registry VerifierRegistry,
	settle PurchaseUseCase,
	buildURL PaymentURLBuilder,
	intentTTL time.Duration,
	dev bool,
	logger *zerolog.Logger,
) *paymentUC {
	l := logger.With().Str("component", "PaymentUC").Logger()
	if intentTTL <= 0 {
		intentTTL = 15 * time.Minute
	}
	return &paymentUC{
		intents:   intents,
		purchases: purchases,
		catalog:   catalog,
		registry:  registry,
		settle:    settle,
		buildURL:  buildURL,
		intentTTL: intentTTL,
		dev:       dev,
		log:       &l,
	}
}

func (u *paymentUC) CreatePaymentRequest(ctx context.Context, merchantID, contentID string, overridePrice *int64, overrideChain model.Chain) (*model.PaymentIntent, string, error) {
	content, err := u.catalog.FindContentByID(ctx, nil, contentID)
	if err != nil {
		return nil, "", err
	}
	if content.MerchantID != merchantID {
		return nil, "", domain.ErrNotFound
	}
	merchant, err := u.catalog.FindMerchantByID(ctx, nil, content.MerchantID)
	if err != nil {
		return nil, "", err
	}
	if merchant.Status != model.MerchantStatusActive {
		return nil, "", fmt.Errorf("%w: merchant is not active", domain.ErrNotFound)
	}
	if merchant.PayoutAddress == "" {
		return nil, "", domain.ErrNoPayoutAddress
	}

	amount := content.Price
	if overridePrice != nil {
		amount = *overridePrice
	}
	chain := content.Chain
	currency := content.Currency
	if overrideChain != "" && overrideChain != content.Chain {
		chain = overrideChain
		currency = chain.NativeCurrency()
	}
	if !chain.Valid() {
		return nil, "", fmt.Errorf("%w: %q", domain.ErrUnsupportedChain, chain)
	}
	if !chain.ValidAddress(merchant.PayoutAddress) {
		return nil, "", fmt.Errorf("%w: merchant payout address is not valid for chain %s", domain.ErrInvalidArgument, chain)
	}

	intent, err := model.NewPaymentIntent(merchant.ID, content.ID, amount, currency, chain, merchant.PayoutAddress, u.intentTTL)
	if err != nil {
		return nil, "", err
	}
	if err := u.intents.Save(ctx, nil, intent); err != nil {
		return nil, "", err
	}
	metrics.PaymentIntentsCreated.WithLabelValues(string(chain)).Inc()
	u.log.Info().
		Str("intent_id", intent.ID).
		Str("chain", string(chain)).
		Int64("amount", amount).
		Msg("payment intent created")

	return intent, u.buildURL(intent, content.Title), nil
}

func (u *paymentUC) VerifyPayment(ctx context.Context, intentID, txSignature string) (*VerificationOutcome, error) {
	start := time.Now()
	outcome, reason, err := u.verifyPayment(ctx, intentID, txSignature)
	result := "ok"
	if err != nil {
		result = "fail"
	}
	metrics.PaymentVerifyRequests.WithLabelValues(result, reason).Inc()
	metrics.PaymentVerifyDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	return outcome, err
}

// verifyPayment runs the verification flow in its contractual order:
// idempotency check, intent load, expiry check, chain verification, status
// transition, materialization. The returned reason is a bounded metric label.
func (u *paymentUC) verifyPayment(ctx context.Context, intentID, txSignature string) (*VerificationOutcome, string, error) {
	// A purchase already settled for this signature is the answer, whatever
	// intent the caller named. Primary guard against client retries.
	if existing, err := u.purchases.FindByTransactionSignature(ctx, nil, txSignature); err == nil {
		return &VerificationOutcome{Status: "confirmed", PurchaseID: existing.ID, AccessToken: existing.AccessToken}, "", nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, "internal", err
	}

	intent, err := u.intents.FindByID(ctx, nil, intentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "not_found", err
		}
		return nil, "internal", err
	}

	if intent.Status != model.PaymentIntentStatusPending {
		// Confirmed by this very signature but not yet settled (crash or
		// lost race between confirm and materialize): finish the job.
		if intent.Status == model.PaymentIntentStatusConfirmed &&
			intent.TransactionSignature != nil && *intent.TransactionSignature == txSignature &&
			intent.PayerAddress != nil {
			return u.settleConfirmed(ctx, intent, txSignature, *intent.PayerAddress)
		}
		return nil, "not_pending", fmt.Errorf("%w: intent is %s", domain.ErrAlreadyProcessed, intent.Status)
	}

	now := time.Now().UTC()
	if intent.Expired(now) {
		if ok, uerr := u.intents.UpdateStatusIfPending(ctx, nil, intent.ID, model.PaymentIntentStatusExpired); uerr == nil && ok {
			metrics.PaymentIntentsExpired.Inc()
		}
		return nil, "expired", domain.ErrIntentExpired
	}

	verifier, err := u.registry.Get(intent.Chain)
	if err != nil {
		return nil, "unsupported_chain", err
	}

	res := verifier.Verify(ctx, txSignature, intent.RecipientAddress, intent.Amount, intent.Memo)
	if !res.Valid || res.PayerAddress == "" {
		reason := res.Err
		if reason == "" {
			reason = "could not determine payer address"
		}
		u.log.Warn().
			Str("intent_id", intent.ID).
			Str("chain", string(intent.Chain)).
			Str("signature", logging.Redact(txSignature, u.dev)).
			Str("error", reason).
			Msg("transaction verification failed")
		if _, uerr := u.intents.UpdateStatusIfPending(ctx, nil, intent.ID, model.PaymentIntentStatusFailed); uerr != nil {
			u.log.Error().Err(uerr).Str("intent_id", intent.ID).Msg("failed to mark intent failed")
		}
		return nil, "invalid_tx", fmt.Errorf("%w: %s", domain.ErrVerificationFailed, reason)
	}

	moved, err := u.intents.MarkConfirmed(ctx, nil, intent.ID, txSignature, res.PayerAddress, now)
	if err != nil {
		return nil, "internal", err
	}
	if !moved {
		// Lost the transition race. Same signature confirmed elsewhere means
		// we can still settle idempotently; anything else is a conflict and
		// must not overwrite the original confirmation.
		cur, ferr := u.intents.FindByID(ctx, nil, intent.ID)
		if ferr != nil {
			return nil, "internal", ferr
		}
		if cur.Status == model.PaymentIntentStatusConfirmed &&
			cur.TransactionSignature != nil && *cur.TransactionSignature == txSignature &&
			cur.PayerAddress != nil {
			return u.settleConfirmed(ctx, cur, txSignature, *cur.PayerAddress)
		}
		return nil, "conflict", fmt.Errorf("%w: intent is %s", domain.ErrAlreadyProcessed, cur.Status)
	}

	intent.Status = model.PaymentIntentStatusConfirmed
	intent.TransactionSignature = &txSignature
	intent.PayerAddress = &res.PayerAddress
	intent.ConfirmedAt = &now

	u.log.Info().
		Str("intent_id", intent.ID).
		Str("chain", string(intent.Chain)).
		Str("payer", logging.Redact(res.PayerAddress, u.dev)).
		Msg("payment intent confirmed")

	return u.settleConfirmed(ctx, intent, txSignature, res.PayerAddress)
}

func (u *paymentUC) settleConfirmed(ctx context.Context, intent *model.PaymentIntent, txSignature, payerAddress string) (*VerificationOutcome, string, error) {
	purchase, accessToken, err := u.settle.Materialize(ctx, intent, txSignature, payerAddress)
	if err != nil {
		return nil, "internal", err
	}
	return &VerificationOutcome{Status: "confirmed", PurchaseID: purchase.ID, AccessToken: accessToken}, "", nil
}

func (u *paymentUC) PaymentStatus(ctx context.Context, txSignature string) (*model.Purchase, error) {
	return u.purchases.FindByTransactionSignature(ctx, nil, txSignature)
}

func (u *paymentUC) ExpirePending(ctx context.Context, limit int) (int, error) {
	intents, err := u.intents.ListPendingExpired(ctx, nil, time.Now().UTC(), limit)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	n := 0
	for _, it := range intents {
		ok, uerr := u.intents.UpdateStatusIfPending(ctx, nil, it.ID, model.PaymentIntentStatusExpired)
		if uerr != nil {
			u.log.Error().Err(uerr).Str("intent_id", it.ID).Msg("failed to expire intent")
			continue
		}
		if ok {
			n++
			metrics.PaymentIntentsExpired.Inc()
		}
	}
	return n, nil
}
