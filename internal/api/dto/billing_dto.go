package dto

import (
	"time"

	"github.com/pixelvault/marketplace/internal/domain"
)

// PlanRequest payload for creating or replacing a plan.
type PlanRequest struct {
	Name         string   `json:"name"`
	Price        int64    `json:"price"`
	Currency     string   `json:"currency"`
	DurationDays int      `json:"durationDays"`
	Features     []string `json:"features"`
	Active       *bool    `json:"active"`
}

// PlanResponse is the public view of a plan.
type PlanResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Price        int64     `json:"price"`
	Currency     string    `json:"currency"`
	DurationDays int       `json:"durationDays"`
	Features     []string  `json:"features"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewPlanResponse maps a plan.
func NewPlanResponse(p *domain.PricingPlan) PlanResponse {
	features := p.Features
	if features == nil {
		features = []string{}
	}
	return PlanResponse{
		ID:           p.ID,
		Name:         p.Name,
		Price:        p.Price,
		Currency:     p.Currency,
		DurationDays: p.DurationDays,
		Features:     features,
		Active:       p.Active,
		CreatedAt:    p.CreatedAt,
	}
}

// NewPlanResponses maps plans.
func NewPlanResponses(plans []domain.PricingPlan) []PlanResponse {
	out := make([]PlanResponse, 0, len(plans))
	for i := range plans {
		out = append(out, NewPlanResponse(&plans[i]))
	}
	return out
}

// CouponRequest payload for new coupons.
type CouponRequest struct {
	Code            string     `json:"code"`
	DiscountPercent int        `json:"discountPercent"`
	UsageLimit      int        `json:"usageLimit"`
	ExpiresAt       *time.Time `json:"expiresAt"`
}

// CouponResponse is the admin view of a coupon.
type CouponResponse struct {
	ID              string     `json:"id"`
	Code            string     `json:"code"`
	DiscountPercent int        `json:"discountPercent"`
	UsageLimit      int        `json:"usageLimit"`
	UsedCount       int        `json:"usedCount"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	Active          bool       `json:"active"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// NewCouponResponse maps a coupon.
func NewCouponResponse(c *domain.Coupon) CouponResponse {
	return CouponResponse{
		ID:              c.ID,
		Code:            c.Code,
		DiscountPercent: c.DiscountPercent,
		UsageLimit:      c.UsageLimit,
		UsedCount:       c.UsedCount,
		ExpiresAt:       c.ExpiresAt,
		Active:          c.Active,
		CreatedAt:       c.CreatedAt,
	}
}

// NewCouponResponses maps coupons.
func NewCouponResponses(coupons []domain.Coupon) []CouponResponse {
	out := make([]CouponResponse, 0, len(coupons))
	for i := range coupons {
		out = append(out, NewCouponResponse(&coupons[i]))
	}
	return out
}

// ApplyCouponRequest payload for coupon previews.
type ApplyCouponRequest struct {
	Code   string `json:"code"`
	PlanID string `json:"planId"`
}

// CreateOrderRequest payload for checkout.
type CreateOrderRequest struct {
	PlanID     string `json:"planId"`
	CouponCode string `json:"couponCode"`
}

// VerifyPaymentRequest payload posted after checkout.
type VerifyPaymentRequest struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
}

// TransactionResponse is the view of a purchase attempt.
type TransactionResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	PlanID     string    `json:"planId"`
	CouponCode *string   `json:"couponCode,omitempty"`
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	OrderID    string    `json:"orderId"`
	PaymentID  *string   `json:"paymentId,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewTransactionResponse maps a transaction.
func NewTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:         t.ID,
		UserID:     t.UserID,
		PlanID:     t.PlanID,
		CouponCode: t.CouponCode,
		Amount:     t.Amount,
		Currency:   t.Currency,
		OrderID:    t.GatewayOrderID,
		PaymentID:  t.GatewayPaymentID,
		Status:     string(t.Status),
		CreatedAt:  t.CreatedAt,
	}
}

// NewTransactionResponses maps transactions.
func NewTransactionResponses(txns []domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txns))
	for i := range txns {
		out = append(out, NewTransactionResponse(&txns[i]))
	}
	return out
}
