package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pixelvault/marketplace/internal/api/dto"
	"github.com/pixelvault/marketplace/internal/service"
	"github.com/pixelvault/marketplace/pkg/pagination"
)

// BillingHandler exposes plans, coupons and checkout.
type BillingHandler struct {
	billing *service.BillingService
}

// NewBillingHandler constructs handler.
func NewBillingHandler(billing *service.BillingService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

// ListPlans handles GET /plans and returns only active plans.
func (h *BillingHandler) ListPlans(c *fiber.Ctx) error {
	return h.listPlans(c, true)
}

// ListAllPlans handles GET /admin/plans.
func (h *BillingHandler) ListAllPlans(c *fiber.Ctx) error {
	return h.listPlans(c, false)
}

func (h *BillingHandler) listPlans(c *fiber.Ctx, activeOnly bool) error {
	plans, err := h.billing.ListPlans(c.UserContext(), activeOnly)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "plans": dto.NewPlanResponses(plans)})
}

// CreatePlan handles POST /admin/plans.
func (h *BillingHandler) CreatePlan(c *fiber.Ctx) error {
	var req dto.PlanRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	plan, err := h.billing.CreatePlan(c.UserContext(), planInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "plan": dto.NewPlanResponse(plan)})
}

// UpdatePlan handles PUT /admin/plans/:id.
func (h *BillingHandler) UpdatePlan(c *fiber.Ctx) error {
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.PlanRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	plan, err := h.billing.UpdatePlan(c.UserContext(), id, planInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "plan": dto.NewPlanResponse(plan)})
}

// DeletePlan handles DELETE /admin/plans/:id.
func (h *BillingHandler) DeletePlan(c *fiber.Ctx) error {
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.billing.DeletePlan(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func planInput(req dto.PlanRequest) service.PlanInput {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return service.PlanInput{
		Name:         req.Name,
		Price:        req.Price,
		Currency:     req.Currency,
		DurationDays: req.DurationDays,
		Features:     req.Features,
		Active:       active,
	}
}

// ListCoupons handles GET /admin/coupons.
func (h *BillingHandler) ListCoupons(c *fiber.Ctx) error {
	coupons, err := h.billing.ListCoupons(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "coupons": dto.NewCouponResponses(coupons)})
}

// CreateCoupon handles POST /admin/coupons.
func (h *BillingHandler) CreateCoupon(c *fiber.Ctx) error {
	var req dto.CouponRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	coupon, err := h.billing.CreateCoupon(c.UserContext(), service.CouponInput{
		Code:            req.Code,
		DiscountPercent: req.DiscountPercent,
		UsageLimit:      req.UsageLimit,
		ExpiresAt:       req.ExpiresAt,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "coupon": dto.NewCouponResponse(coupon)})
}

// DeleteCoupon handles DELETE /admin/coupons/:id.
func (h *BillingHandler) DeleteCoupon(c *fiber.Ctx) error {
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.billing.DeleteCoupon(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// ApplyCoupon handles POST /coupons/apply and previews the discounted price.
func (h *BillingHandler) ApplyCoupon(c *fiber.Ctx) error {
	var req dto.ApplyCouponRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	quote, err := h.billing.ApplyCoupon(c.UserContext(), req.Code, req.PlanID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":         true,
		"code":            quote.CouponCode,
		"discountPercent": quote.DiscountPercent,
		"originalAmount":  quote.OriginalAmount,
		"finalAmount":     quote.FinalAmount,
		"plan":            dto.NewPlanResponse(quote.Plan),
	})
}

// CreateOrder handles POST /payments/order.
func (h *BillingHandler) CreateOrder(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	var req dto.CreateOrderRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.billing.CreateOrder(c.UserContext(), identity.ID, req.PlanID, req.CouponCode)
	if err != nil {
		return err
	}
	txn := result.Transaction
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":  true,
		"orderId":  txn.GatewayOrderID,
		"amount":   txn.Amount,
		"currency": txn.Currency,
		"keyId":    result.KeyID,
	})
}

// VerifyPayment handles POST /payments/verify.
func (h *BillingHandler) VerifyPayment(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	var req dto.VerifyPaymentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	txn, err := h.billing.VerifyPayment(c.UserContext(), identity.ID, service.PaymentConfirmation{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "transaction": dto.NewTransactionResponse(txn)})
}

// History handles GET /payments/history for the caller.
func (h *BillingHandler) History(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	txns, err := h.billing.History(c.UserContext(), identity.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "transactions": dto.NewTransactionResponses(txns)})
}

// ListTransactions handles GET /admin/transactions.
func (h *BillingHandler) ListTransactions(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	txns, total, err := h.billing.ListTransactions(c.UserContext(), params.Limit, params.Offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":      true,
		"transactions": dto.NewTransactionResponses(txns),
		"pagination":   pagination.GetMeta(params, total),
	})
}
