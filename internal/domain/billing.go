package domain

import "time"

// PricingPlan describes a premium subscription offer. Price is in minor units.
type PricingPlan struct {
	ID           string
	Name         string
	Price        int64
	Currency     string
	DurationDays int
	Features     []string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Coupon grants a percentage discount on a plan.
type Coupon struct {
	ID              string
	Code            string
	DiscountPercent int
	UsageLimit      int
	UsedCount       int
	ExpiresAt       *time.Time
	Active          bool
	CreatedAt       time.Time
}

// Usable reports whether the coupon can still be redeemed at now.
func (c *Coupon) Usable(now time.Time) bool {
	if c == nil || !c.Active {
		return false
	}
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return false
	}
	return c.UsageLimit == 0 || c.UsedCount < c.UsageLimit
}

// ApplyDiscount returns amount reduced by the coupon percentage, rounded down.
func (c *Coupon) ApplyDiscount(amount int64) int64 {
	if c == nil || c.DiscountPercent <= 0 {
		return amount
	}
	percent := c.DiscountPercent
	if percent > 100 {
		percent = 100
	}
	return amount - amount*int64(percent)/100
}

// TransactionStatus tracks a payment attempt.
type TransactionStatus string

const (
	TransactionCreated TransactionStatus = "created"
	TransactionPaid    TransactionStatus = "paid"
	TransactionFailed  TransactionStatus = "failed"
)

// Transaction is one purchase attempt for a plan.
type Transaction struct {
	ID               string
	UserID           string
	PlanID           string
	CouponCode       *string
	Amount           int64
	Currency         string
	GatewayOrderID   string
	GatewayPaymentID *string
	Status           TransactionStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// MonthlyCount is one month bucket of an aggregate.
type MonthlyCount struct {
	Month time.Time
	Count int64
	Total int64
}
