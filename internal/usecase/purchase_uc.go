package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"content-paygate/internal/domain"
	"content-paygate/internal/domain/model"
	"content-paygate/internal/domain/ports/adapter"
	"content-paygate/internal/domain/ports/repository"
	"content-paygate/internal/infra/metrics"
)

// Compile-time check
var _ PurchaseUseCase = (*purchaseUC)(nil)

type PurchaseUseCase interface {
	// Materialize turns a confirmed intent plus a verified transaction into
	// exactly one purchase and one access token. Calling it twice with the
	// same signature returns the original purchase and token.
	Materialize(ctx context.Context, intent *model.PaymentIntent, signature, payerAddress string) (*model.Purchase, string, error)
}

type purchaseUC struct {
	purchases repository.PurchaseRepository
	catalog   repository.CatalogRepository
	issuer    adapter.AccessTokenIssuer
	log       *zerolog.Logger
}

func NewPurchaseUseCase(purchases repository.PurchaseRepository, catalog repository.CatalogRepository, issuer adapter.AccessTokenIssuer, logger *zerolog.Logger) *purchaseUC {
	l := logger.With().Str("component", "PurchaseUC").Logger()
	return &purchaseUC{purchases: purchases, catalog: catalog, issuer: issuer, log: &l}
}

func (u *purchaseUC) Materialize(ctx context.Context, intent *model.PaymentIntent, signature, payerAddress string) (*model.Purchase, string, error) {
	// Cheap pre-check; the real guard is the unique constraint below.
	existing, err := u.purchases.FindByTransactionSignature(ctx, nil, signature)
	if err == nil {
		return existing, existing.AccessToken, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, "", err
	}

	content, err := u.catalog.FindContentByID(ctx, nil, intent.ContentID)
	if err != nil {
		return nil, "", err
	}

	now := time.Now().UTC()
	var expiresAt *time.Time
	var duration time.Duration
	if content.AccessDurationSecs != nil {
		duration = time.Duration(*content.AccessDurationSecs) * time.Second
		t := now.Add(duration)
		expiresAt = &t
	}

	purchase, err := model.NewPurchase(intent, signature, payerAddress, "", expiresAt, now)
	if err != nil {
		return nil, "", err
	}
	accessToken, err := u.issuer.Issue(intent.MerchantID, intent.ContentID, payerAddress, purchase.ID, duration)
	if err != nil {
		return nil, "", err
	}
	purchase.AccessToken = accessToken

	if err := u.purchases.Create(ctx, nil, purchase); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// A concurrent verification for the same signature won the
			// insert. Return the winner's row; the race is not an error.
			metrics.PurchaseConflictsRecovered.Inc()
			winner, ferr := u.purchases.FindByTransactionSignature(ctx, nil, signature)
			if ferr != nil {
				return nil, "", ferr
			}
			return winner, winner.AccessToken, nil
		}
		return nil, "", err
	}
	metrics.PurchasesCreated.WithLabelValues(string(intent.Chain)).Inc()

	if err := u.catalog.IncrementPurchaseCount(ctx, nil, intent.ContentID); err != nil {
		// Best effort; a counter miss does not invalidate the purchase.
		u.log.Warn().Err(err).Str("content_id", intent.ContentID).Msg("purchase counter increment failed")
	}

	return purchase, accessToken, nil
}
