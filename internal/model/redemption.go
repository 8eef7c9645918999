package model

import (
	"time"

	"github.com/google/uuid"
)

type Redemption struct {
	RedemptionID   uuid.UUID
	HuntID         uuid.UUID
	UserTelegramID int64
	CouponCode     string
	MerchantID     string
	RedeemedAt     time.Time
}

type RedemptionResult struct {
	Redemption         *Redemption
	AlreadyRedeemed    bool
	HuntName           string
	DiscountPercentage int
}
