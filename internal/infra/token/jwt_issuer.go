package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"content-paygate/internal/domain"
	"content-paygate/internal/domain/ports/adapter"
)

var _ adapter.AccessTokenIssuer = (*JWTIssuer)(nil)

type accessClaims struct {
	MerchantID    string `json:"merchantId"`
	ContentID     string `json:"contentId"`
	WalletAddress string `json:"walletAddress"`
	PurchaseID    string `json:"purchaseId"`
	Type          string `json:"type"`
	jwt.RegisteredClaims
}

// JWTIssuer mints HS256 access tokens. A token issued with duration D is
// valid strictly before iat+D and rejected once now >= iat+D (jwt/v5 treats
// the exp instant itself as expired).
type JWTIssuer struct {
	secret     []byte
	defaultTTL time.Duration
}

func NewJWTIssuer(secret string, defaultTTL time.Duration) (*JWTIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: jwt secret is required", domain.ErrInvalidArgument)
	}
	if defaultTTL <= 0 {
		defaultTTL = 24 * time.Hour
	}
	return &JWTIssuer{secret: []byte(secret), defaultTTL: defaultTTL}, nil
}

func (i *JWTIssuer) Issue(merchantID, contentID, walletAddress, purchaseID string, duration time.Duration) (string, error) {
	if duration <= 0 {
		duration = i.defaultTTL
	}
	now := time.Now()
	claims := accessClaims{
		MerchantID:    merchantID,
		ContentID:     contentID,
		WalletAddress: walletAddress,
		PurchaseID:    purchaseID,
		Type:          "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

func (i *JWTIssuer) Verify(token string) (*adapter.AccessClaims, error) {
	var claims accessClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", domain.ErrInvalidArgument)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	if !parsed.Valid || claims.Type != "access" {
		return nil, fmt.Errorf("%w: not an access token", domain.ErrInvalidArgument)
	}
	out := &adapter.AccessClaims{
		MerchantID:    claims.MerchantID,
		ContentID:     claims.ContentID,
		WalletAddress: claims.WalletAddress,
		PurchaseID:    claims.PurchaseID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
