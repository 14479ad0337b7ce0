package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pixelvault/marketplace/internal/domain"
	"github.com/pixelvault/marketplace/internal/events"
	"github.com/pixelvault/marketplace/internal/payment"
	"github.com/pixelvault/marketplace/internal/repository"
	apperrors "github.com/pixelvault/marketplace/pkg/util/errorutil"
)

// BillingService covers plans, coupons and premium purchases.
type BillingService struct {
	plans        repository.PlanRepository
	coupons      repository.CouponRepository
	transactions repository.TransactionRepository
	users        repository.UserRepository
	gateway      payment.Gateway
	dispatcher   events.Dispatcher
	currency     string
	now          func() time.Time
}

// BillingDependencies bundles collaborators for the billing service.
type BillingDependencies struct {
	PlanRepo        repository.PlanRepository
	CouponRepo      repository.CouponRepository
	TransactionRepo repository.TransactionRepository
	UserRepo        repository.UserRepository
	Gateway         payment.Gateway
	Dispatcher      events.Dispatcher
	Currency        string
}

// PlanInput describes a pricing plan.
type PlanInput struct {
	Name         string
	Price        int64
	Currency     string
	DurationDays int
	Features     []string
	Active       bool
}

// CouponInput describes a new coupon.
type CouponInput struct {
	Code            string
	DiscountPercent int
	UsageLimit      int
	ExpiresAt       *time.Time
}

// Quote is the price of a plan after an optional coupon.
type Quote struct {
	Plan            *domain.PricingPlan
	CouponCode      string
	DiscountPercent int
	OriginalAmount  int64
	FinalAmount     int64
}

// OrderResult is returned to the checkout widget.
type OrderResult struct {
	Transaction *domain.Transaction
	KeyID       string
}

// PaymentConfirmation describes the checkout callback.
type PaymentConfirmation struct {
	OrderID   string
	PaymentID string
	Signature string
}

// NewBillingService constructs the service.
func NewBillingService(deps BillingDependencies) *BillingService {
	currency := deps.Currency
	if currency == "" {
		currency = "INR"
	}
	return &BillingService{
		plans:        deps.PlanRepo,
		coupons:      deps.CouponRepo,
		transactions: deps.TransactionRepo,
		users:        deps.UserRepo,
		gateway:      deps.Gateway,
		dispatcher:   deps.Dispatcher,
		currency:     currency,
		now:          time.Now,
	}
}

// ListPlans returns plans; activeOnly hides retired ones.
func (s *BillingService) ListPlans(ctx context.Context, activeOnly bool) ([]domain.PricingPlan, error) {
	return s.plans.List(ctx, activeOnly)
}

// CreatePlan validates and stores a plan.
func (s *BillingService) CreatePlan(ctx context.Context, input PlanInput) (*domain.PricingPlan, error) {
	plan := &domain.PricingPlan{}
	if err := s.applyPlanInput(plan, input); err != nil {
		return nil, err
	}
	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// UpdatePlan replaces a plan's fields.
func (s *BillingService) UpdatePlan(ctx context.Context, id string, input PlanInput) (*domain.PricingPlan, error) {
	plan, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyPlanInput(plan, input); err != nil {
		return nil, err
	}
	if err := s.plans.Update(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// DeletePlan removes a plan.
func (s *BillingService) DeletePlan(ctx context.Context, id string) error {
	return s.plans.Delete(ctx, id)
}

func (s *BillingService) applyPlanInput(plan *domain.PricingPlan, input PlanInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return apperrors.NewValidationError("name is required", nil)
	}
	if input.Price <= 0 {
		return apperrors.NewValidationError("price must be positive", nil)
	}
	if input.DurationDays <= 0 {
		return apperrors.NewValidationError("durationDays must be positive", nil)
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = s.currency
	}
	plan.Name = name
	plan.Price = input.Price
	plan.Currency = currency
	plan.DurationDays = input.DurationDays
	plan.Features = input.Features
	plan.Active = input.Active
	return nil
}

// ListCoupons returns every coupon.
func (s *BillingService) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	return s.coupons.List(ctx)
}

// CreateCoupon validates and stores a coupon. Codes are upper-cased.
func (s *BillingService) CreateCoupon(ctx context.Context, input CouponInput) (*domain.Coupon, error) {
	code := normalizeCouponCode(input.Code)
	if code == "" {
		return nil, apperrors.NewValidationError("code is required", nil)
	}
	if input.DiscountPercent < 1 || input.DiscountPercent > 100 {
		return nil, apperrors.NewValidationError("discountPercent must be between 1 and 100", nil)
	}
	if input.UsageLimit < 0 {
		return nil, apperrors.NewValidationError("usageLimit cannot be negative", nil)
	}
	if input.ExpiresAt != nil && !input.ExpiresAt.After(s.now()) {
		return nil, apperrors.NewValidationError("expiresAt must be in the future", nil)
	}
	coupon := &domain.Coupon{
		Code:            code,
		DiscountPercent: input.DiscountPercent,
		UsageLimit:      input.UsageLimit,
		ExpiresAt:       input.ExpiresAt,
		Active:          true,
	}
	if err := s.coupons.Create(ctx, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// DeleteCoupon removes a coupon.
func (s *BillingService) DeleteCoupon(ctx context.Context, id string) error {
	return s.coupons.Delete(ctx, id)
}

// Quote prices an active plan with an optional coupon.
func (s *BillingService) Quote(ctx context.Context, planID, couponCode string) (*Quote, error) {
	if strings.TrimSpace(planID) == "" {
		return nil, apperrors.NewValidationError("planId is required", nil)
	}
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("plan", map[string]any{"id": planID})
		}
		return nil, err
	}
	if !plan.Active {
		return nil, apperrors.NewValidationError("plan is not available", nil)
	}

	quote := &Quote{Plan: plan, OriginalAmount: plan.Price, FinalAmount: plan.Price}
	code := normalizeCouponCode(couponCode)
	if code == "" {
		return quote, nil
	}
	coupon, err := s.coupons.GetByCode(ctx, code)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewValidationError("coupon is not valid", nil)
		}
		return nil, err
	}
	if !coupon.Usable(s.now()) {
		return nil, apperrors.NewValidationError("coupon is not valid", nil)
	}
	quote.CouponCode = coupon.Code
	quote.DiscountPercent = coupon.DiscountPercent
	quote.FinalAmount = coupon.ApplyDiscount(plan.Price)
	return quote, nil
}

// ApplyCoupon previews a coupon against a plan. A code is required.
func (s *BillingService) ApplyCoupon(ctx context.Context, couponCode, planID string) (*Quote, error) {
	if normalizeCouponCode(couponCode) == "" {
		return nil, apperrors.NewValidationError("code is required", nil)
	}
	return s.Quote(ctx, planID, couponCode)
}

// CreateOrder opens a gateway order for the quoted amount and records a created transaction.
func (s *BillingService) CreateOrder(ctx context.Context, userID, planID, couponCode string) (*OrderResult, error) {
	quote, err := s.Quote(ctx, planID, couponCode)
	if err != nil {
		return nil, err
	}
	if quote.FinalAmount <= 0 {
		return nil, apperrors.NewValidationError("order amount must be positive", nil)
	}

	receipt := uuid.NewString()
	order, err := s.gateway.CreateOrder(ctx, payment.OrderRequest{
		Amount:   quote.FinalAmount,
		Currency: quote.Plan.Currency,
		Receipt:  receipt,
		Notes:    map[string]string{"user_id": userID, "plan_id": quote.Plan.ID},
	})
	if err != nil {
		return nil, apperrors.NewUpstreamError("payment gateway unavailable", err)
	}

	txn := &domain.Transaction{
		UserID:         userID,
		PlanID:         quote.Plan.ID,
		Amount:         quote.FinalAmount,
		Currency:       quote.Plan.Currency,
		GatewayOrderID: order.ID,
		Status:         domain.TransactionCreated,
	}
	if quote.CouponCode != "" {
		code := quote.CouponCode
		txn.CouponCode = &code
	}
	if err := s.transactions.Create(ctx, txn); err != nil {
		return nil, err
	}
	return &OrderResult{Transaction: txn, KeyID: s.gateway.KeyID()}, nil
}

// VerifyPayment checks the checkout signature. A valid signature marks the transaction paid,
// extends premium and consumes the coupon; a mismatch marks it failed.
func (s *BillingService) VerifyPayment(ctx context.Context, userID string, confirm PaymentConfirmation) (*domain.Transaction, error) {
	missing := missingFields(map[string]string{
		"orderId":   confirm.OrderID,
		"paymentId": confirm.PaymentID,
		"signature": confirm.Signature,
	})
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("missing required fields", map[string]any{"fields": missing})
	}
	txn, err := s.transactions.GetByOrderID(ctx, confirm.OrderID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("transaction", map[string]any{"orderId": confirm.OrderID})
		}
		return nil, err
	}
	if txn.UserID != userID {
		return nil, apperrors.NewNotFound("transaction", map[string]any{"orderId": confirm.OrderID})
	}
	if txn.Status == domain.TransactionPaid {
		return txn, nil
	}

	paymentID := confirm.PaymentID
	if !s.gateway.VerifySignature(txn.GatewayOrderID, paymentID, confirm.Signature) {
		if err := s.transactions.SetStatus(ctx, txn.ID, domain.TransactionFailed, &paymentID); err != nil {
			if errors.Is(err, repository.ErrTransactionSettled) {
				return nil, apperrors.NewValidationError("payment signature mismatch", nil)
			}
			return nil, err
		}
		publish(ctx, s.dispatcher, events.New(events.EventPaymentFailed, userID, events.PaymentFailedPayload{
			UserID:  userID,
			OrderID: txn.GatewayOrderID,
			Reason:  "signature mismatch",
		}))
		return nil, apperrors.NewValidationError("payment signature mismatch", nil)
	}

	plan, err := s.plans.GetByID(ctx, txn.PlanID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Only the request that moves the transaction to paid grants premium.
	if err := s.transactions.SetStatus(ctx, txn.ID, domain.TransactionPaid, &paymentID); err != nil {
		if errors.Is(err, repository.ErrTransactionSettled) {
			return s.transactions.GetByOrderID(ctx, txn.GatewayOrderID)
		}
		return nil, err
	}
	txn.Status = domain.TransactionPaid
	txn.GatewayPaymentID = &paymentID

	now := s.now()
	start := now
	if user.HasActivePremium(now) && user.PremiumExpiresAt != nil {
		start = *user.PremiumExpiresAt
	}
	until := start.Add(time.Duration(plan.DurationDays) * 24 * time.Hour)
	if err := s.users.ActivatePremium(ctx, userID, until); err != nil {
		return nil, err
	}

	if txn.CouponCode != nil {
		// The payment is already captured, so an exhausted coupon does not undo it.
		if err := s.coupons.Redeem(ctx, *txn.CouponCode, now); err != nil && !apperrors.IsNotFound(err) {
			return nil, err
		}
	}

	publish(ctx, s.dispatcher, events.New(events.EventSubscriptionActivated, userID, events.SubscriptionActivatedPayload{
		UserID:        userID,
		PlanID:        plan.ID,
		TransactionID: txn.ID,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		ExpiresAt:     until,
	}))
	return txn, nil
}

// History lists the caller's transactions.
func (s *BillingService) History(ctx context.Context, userID string) ([]domain.Transaction, error) {
	return s.transactions.ListByUser(ctx, userID)
}

// ListTransactions returns a page of all transactions.
func (s *BillingService) ListTransactions(ctx context.Context, limit, offset int) ([]domain.Transaction, int64, error) {
	return s.transactions.List(ctx, limit, offset)
}

func normalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
