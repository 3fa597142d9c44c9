package adapter

import "time"

// AccessClaims are the exact claims carried by an access token.
type AccessClaims struct {
	MerchantID    string
	ContentID     string
	WalletAddress string
	PurchaseID    string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

// AccessTokenIssuer mints and verifies signed capability tokens binding
// merchant+content+wallet+purchase. duration <= 0 selects the issuer's
// default expiry.
type AccessTokenIssuer interface {
	Issue(merchantID, contentID, walletAddress, purchaseID string, duration time.Duration) (string, error)
	Verify(token string) (*AccessClaims, error)
}
