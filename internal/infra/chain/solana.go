package chain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"content-paygate/internal/domain/model"
	"content-paygate/internal/domain/ports/adapter"
	"content-paygate/internal/infra/metrics"
)

var maxSupportedTxVersion uint64 = 0

// SPL Memo program (v2).
var memoProgramID = solana.MustPublicKeyFromBase58("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")

// solanaRPC is the slice of the Solana RPC client the verifier needs.
// *rpc.Client satisfies it; tests substitute a fake.
type solanaRPC interface {
	GetTransaction(ctx context.Context, signature solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error)
}

var _ adapter.ChainVerifier = (*SolanaVerifier)(nil)

// SolanaVerifier checks native SOL transfers at confirmed commitment. The
// received amount is measured as the recipient account's balance delta, and
// the memo is read from the Memo-program instruction when present.
type SolanaVerifier struct {
	client  solanaRPC
	timeout time.Duration
	log     *zerolog.Logger
}

func NewSolanaVerifier(rpcURL string, timeout time.Duration, logger *zerolog.Logger) *SolanaVerifier {
	l := logger.With().Str("component", "SolanaVerifier").Logger()
	return &SolanaVerifier{client: rpc.New(rpcURL), timeout: timeout, log: &l}
}

// newSolanaVerifierWithClient is used by tests to inject a fake RPC client.
func newSolanaVerifierWithClient(client solanaRPC, timeout time.Duration, logger *zerolog.Logger) *SolanaVerifier {
	l := logger.With().Str("component", "SolanaVerifier").Logger()
	return &SolanaVerifier{client: client, timeout: timeout, log: &l}
}

func (v *SolanaVerifier) Chain() model.Chain { return model.ChainSolana }

func (v *SolanaVerifier) Verify(ctx context.Context, signature, expectedRecipient string, expectedAmount int64, expectedMemo string) adapter.VerificationResult {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return adapter.Invalid("malformed transaction signature")
	}
	if _, err := solana.PublicKeyFromBase58(expectedRecipient); err != nil {
		return adapter.Invalid("invalid recipient address")
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	start := time.Now()
	out, err := v.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxSupportedTxVersion,
	})
	metrics.ChainRPCDuration.WithLabelValues(string(model.ChainSolana)).Observe(time.Since(start).Seconds())
	if err != nil {
		v.log.Warn().Err(err).Str("signature", signature).Msg("getTransaction failed")
		return adapter.Invalid("transaction not found")
	}
	if out == nil || out.Meta == nil {
		return adapter.Invalid("transaction not found")
	}
	tx, err := out.Transaction.GetTransaction()
	if err != nil || tx == nil {
		v.log.Warn().Err(err).Str("signature", signature).Msg("failed to decode transaction")
		return adapter.Invalid("transaction could not be decoded")
	}

	return matchSolanaTransaction(tx, out.Meta, expectedRecipient, expectedAmount, expectedMemo)
}

// matchSolanaTransaction applies the intent-matching rules to an already
// fetched transaction.
func matchSolanaTransaction(tx *solana.Transaction, meta *rpc.TransactionMeta, expectedRecipient string, expectedAmount int64, expectedMemo string) adapter.VerificationResult {
	if meta.Err != nil {
		return adapter.Invalid("transaction failed")
	}

	recipientIndex := -1
	for i, key := range tx.Message.AccountKeys {
		if key.String() == expectedRecipient {
			recipientIndex = i
			break
		}
	}
	if recipientIndex == -1 {
		return adapter.Invalid("recipient address not found in transaction")
	}
	if recipientIndex >= len(meta.PreBalances) || recipientIndex >= len(meta.PostBalances) {
		return adapter.Invalid("transaction balance data is incomplete")
	}

	received := int64(meta.PostBalances[recipientIndex]) - int64(meta.PreBalances[recipientIndex])
	if !meetsAmount(received, expectedAmount) {
		return adapter.Invalid(fmt.Sprintf("amount mismatch: expected %d, received %d", expectedAmount, received))
	}

	if len(tx.Message.AccountKeys) == 0 {
		return adapter.Invalid("transaction has no signer")
	}
	// First account key is the fee payer / first signer.
	payer := tx.Message.AccountKeys[0].String()

	memo := extractMemo(tx)
	if expectedMemo != "" && memo != "" && !strings.Contains(memo, expectedMemo) {
		return adapter.Invalid("memo mismatch")
	}

	return adapter.VerificationResult{
		Valid:            true,
		PayerAddress:     payer,
		RecipientAddress: expectedRecipient,
		Amount:           received,
		Memo:             memo,
	}
}

// extractMemo returns the decoded Memo-program payload, or "" when the
// transaction carries no memo instruction.
func extractMemo(tx *solana.Transaction) string {
	for _, ix := range tx.Message.Instructions {
		if int(ix.ProgramIDIndex) >= len(tx.Message.AccountKeys) {
			continue
		}
		if !tx.Message.AccountKeys[ix.ProgramIDIndex].Equals(memoProgramID) {
			continue
		}
		if len(ix.Data) > 0 {
			return strings.TrimSpace(strings.Trim(string(ix.Data), "\x00"))
		}
	}
	return ""
}
