package chain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"content-paygate/internal/domain"
	"content-paygate/internal/domain/model"
	"content-paygate/internal/domain/ports/adapter"
	"content-paygate/internal/infra/metrics"
)

var txHashRe = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// evmRPC is the slice of the Ethereum client the verifier needs.
// *ethclient.Client satisfies it; tests substitute a fake.
type evmRPC interface {
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

var _ adapter.ChainVerifier = (*EVMVerifier)(nil)

// EVMVerifier checks native transfers on one EVM chain by matching the
// transaction's `to` and `value`. One parameterized implementation covers
// Ethereum, Polygon, Base, Arbitrum, Optimism, BNB and Avalanche.
//
// expectedMemo is accepted and ignored: native EVM transfers carry no memo
// field, so intent matching on these chains rests on recipient+amount alone.
type EVMVerifier struct {
	chain   model.Chain
	chainID *big.Int
	client  evmRPC
	timeout time.Duration
	log     *zerolog.Logger
}

func NewEVMVerifier(chain model.Chain, rpcURL string, timeout time.Duration, logger *zerolog.Logger) (*EVMVerifier, error) {
	if !chain.IsEVM() {
		return nil, fmt.Errorf("%w: %q is not an EVM chain", domain.ErrUnsupportedChain, chain)
	}
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s rpc: %w", chain, err)
	}
	return newEVMVerifierWithClient(chain, client, timeout, logger), nil
}

func newEVMVerifierWithClient(chain model.Chain, client evmRPC, timeout time.Duration, logger *zerolog.Logger) *EVMVerifier {
	l := logger.With().Str("component", "EVMVerifier").Str("chain", string(chain)).Logger()
	return &EVMVerifier{
		chain:   chain,
		chainID: big.NewInt(chain.EVMChainID()),
		client:  client,
		timeout: timeout,
		log:     &l,
	}
}

func (v *EVMVerifier) Chain() model.Chain { return v.chain }

func (v *EVMVerifier) Verify(ctx context.Context, signature, expectedRecipient string, expectedAmount int64, _ string) adapter.VerificationResult {
	if !txHashRe.MatchString(signature) {
		return adapter.Invalid("malformed transaction hash")
	}
	if !common.IsHexAddress(expectedRecipient) {
		return adapter.Invalid("invalid recipient address")
	}
	hash := common.HexToHash(signature)

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	start := time.Now()
	tx, pending, err := v.client.TransactionByHash(ctx, hash)
	metrics.ChainRPCDuration.WithLabelValues(string(v.chain)).Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return adapter.Invalid("transaction not found")
		}
		v.log.Warn().Err(err).Str("hash", signature).Msg("transaction lookup failed")
		return adapter.Invalid("transaction lookup failed")
	}
	if tx == nil {
		return adapter.Invalid("transaction not found")
	}
	if pending {
		return adapter.Invalid("transaction not yet confirmed")
	}

	receipt, err := v.client.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return adapter.Invalid("transaction not yet confirmed")
		}
		v.log.Warn().Err(err).Str("hash", signature).Msg("receipt lookup failed")
		return adapter.Invalid("transaction lookup failed")
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return adapter.Invalid("transaction failed")
	}

	to := tx.To()
	if to == nil {
		// Contract creation; cannot be a payment to the merchant.
		return adapter.Invalid("transaction has no recipient")
	}
	normalizedRecipient := strings.ToLower(expectedRecipient)
	txTo := strings.ToLower(to.Hex())
	if txTo != normalizedRecipient {
		return adapter.Invalid(fmt.Sprintf("recipient mismatch: expected %s, got %s", normalizedRecipient, txTo))
	}

	value := tx.Value()
	if !meetsAmountBig(value, expectedAmount) {
		return adapter.Invalid(fmt.Sprintf("amount mismatch: expected %d, received %s", expectedAmount, value.String()))
	}

	from, err := types.Sender(types.LatestSignerForChainID(v.chainID), tx)
	if err != nil {
		v.log.Warn().Err(err).Str("hash", signature).Msg("sender recovery failed")
		return adapter.Invalid("could not determine payer address")
	}

	// Clamped for observed values beyond int64; the tolerance check above
	// already ran on the full big value.
	observed := int64(math.MaxInt64)
	if value.IsInt64() {
		observed = value.Int64()
	}

	return adapter.VerificationResult{
		Valid:            true,
		PayerAddress:     strings.ToLower(from.Hex()),
		RecipientAddress: txTo,
		Amount:           observed,
	}
}
