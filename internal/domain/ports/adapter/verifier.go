package adapter

import (
	"context"

	"content-paygate/internal/domain/model"
)

// VerificationResult is the outcome of inspecting one on-chain transaction.
// Verification failure is data, not an exception: Err carries a sanitized
// message safe to translate into a 4xx response.
type VerificationResult struct {
	Valid            bool
	PayerAddress     string
	RecipientAddress string
	Amount           int64 // amount observed on-chain, smallest unit
	Memo             string
	Err              string
}

// Invalid builds a failed result with the given message.
func Invalid(msg string) VerificationResult {
	return VerificationResult{Valid: false, Err: msg}
}

// ChainVerifier checks a submitted transaction against a payment intent's
// expectations. Implementations never panic and never return Go errors past
// this boundary; RPC failures become VerificationResult.Err.
//
// expectedMemo may be empty. EVM implementations accept it but ignore it:
// native transfers carry no memo field, and inventing a synthetic memo
// requirement there would reject every legitimate payment.
type ChainVerifier interface {
	Chain() model.Chain
	Verify(ctx context.Context, signature, expectedRecipient string, expectedAmount int64, expectedMemo string) VerificationResult
}
