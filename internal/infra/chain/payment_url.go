package chain

import (
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"content-paygate/internal/domain/model"
)

const lamportsPerSOLExp = 9

// BuildPaymentURL encodes a payment request for the intent's chain.
//
// Solana gets a Solana Pay URL (amount in decimal SOL, nonce as reference).
// EVM chains get an EIP-681-style URI carrying recipient, chain id and wei
// value; EVM wallets do not standardize a richer request encoding.
func BuildPaymentURL(intent *model.PaymentIntent, label string) string {
	if intent.Chain == model.ChainSolana {
		amount := decimal.NewFromInt(intent.Amount).Shift(-lamportsPerSOLExp)
		q := url.Values{}
		q.Set("amount", amount.String())
		q.Set("reference", intent.Nonce)
		if label != "" {
			q.Set("label", label)
		}
		q.Set("memo", intent.Memo)
		return fmt.Sprintf("solana:%s?%s", intent.RecipientAddress, q.Encode())
	}
	return fmt.Sprintf("ethereum:%s@%d/transfer?value=%d", intent.RecipientAddress, intent.Chain.EVMChainID(), intent.Amount)
}
