package model

import "time"

type MerchantStatus string

const (
	MerchantStatusActive    MerchantStatus = "active"
	MerchantStatusSuspended MerchantStatus = "suspended"
)

// Merchant is read-only reference data for the payment core: it supplies the
// payout address snapshotted into intents. Account management lives elsewhere.
type Merchant struct {
	ID            string
	Name          string
	PayoutAddress string
	Status        MerchantStatus
	CreatedAt     time.Time
}

// Content is the purchasable item. Price is in the smallest on-chain unit of
// its configured chain. AccessDurationSecs nil grants perpetual access.
type Content struct {
	ID                 string
	MerchantID         string
	Title              string
	Price              int64
	Currency           string
	Chain              Chain
	AccessDurationSecs *int64
	PurchaseCount      int64
	CreatedAt          time.Time
}
