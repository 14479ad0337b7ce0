package http

import (
	"context"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/pixelvault/marketplace/internal/domain"
	"github.com/pixelvault/marketplace/internal/payment"
	"github.com/pixelvault/marketplace/internal/repository"
)

const gatewaySecret = "gw-secret"

type stubImages struct {
	repository.ImageRepository

	mu        sync.Mutex
	byID      map[string]*domain.Image
	downloads map[string]int
}

func (s *stubImages) GetByID(_ context.Context, id string) (*domain.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if img, ok := s.byID[id]; ok {
		copied := *img
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *stubImages) IncrementDownloads(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.downloads == nil {
		s.downloads = map[string]int{}
	}
	s.downloads[id]++
	return nil
}

type stubTransactions struct {
	repository.TransactionRepository

	mu      sync.Mutex
	byOrder map[string]*domain.Transaction
}

func (s *stubTransactions) GetByOrderID(_ context.Context, orderID string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if txn, ok := s.byOrder[orderID]; ok {
		copied := *txn
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *stubTransactions) SetStatus(_ context.Context, id string, status domain.TransactionStatus, paymentID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, txn := range s.byOrder {
		if txn.ID != id {
			continue
		}
		if txn.Status == domain.TransactionPaid {
			return repository.ErrTransactionSettled
		}
		txn.Status = status
		txn.GatewayPaymentID = paymentID
		return nil
	}
	return pgx.ErrNoRows
}

type stubGateway struct {
	secret string
}

func (g stubGateway) CreateOrder(context.Context, payment.OrderRequest) (*payment.Order, error) {
	return nil, payment.ErrNotConfigured
}

func (g stubGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return payment.Sign(g.secret, orderID, paymentID) == signature
}

func (g stubGateway) KeyID() string { return "key_test" }

type stubSettings struct {
	current *domain.Settings
}

func (s *stubSettings) Get(context.Context) (*domain.Settings, error) {
	if s.current == nil {
		return nil, pgx.ErrNoRows
	}
	copied := *s.current
	return &copied, nil
}

func (s *stubSettings) Update(_ context.Context, settings *domain.Settings) error {
	settings.UpdatedAt = time.Now()
	copied := *settings
	s.current = &copied
	return nil
}

func TestDownloadPremiumImageRequiresSubscription(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)
	srv := newTestServer(t,
		&domain.User{ID: "u1", Role: domain.RoleUser},
		&domain.User{ID: "p1", Role: domain.RoleUser, IsPremium: true, PremiumExpiresAt: &future},
	)
	srv.images.byID["img-1"] = &domain.Image{ID: "img-1", FileKey: "images/img-1.psd", IsPremium: true}
	srv.images.byID["img-2"] = &domain.Image{ID: "img-2", FileKey: "images/img-2.png"}

	resp, body := srv.do(t, httptest.NewRequest(fiber.MethodPost, "/images/img-1/download", nil))
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", resp.StatusCode)
	}

	resp, body = srv.do(t, srv.bearer(t, httptest.NewRequest(fiber.MethodPost, "/images/img-1/download", nil), "u1", domain.RoleUser))
	if resp.StatusCode != fiber.StatusForbidden || body["code"] != "FORBIDDEN" {
		t.Fatalf("expected 403 for premium image, got %d %v", resp.StatusCode, body)
	}
	if srv.images.downloads["img-1"] != 0 {
		t.Fatal("rejected download must not be counted")
	}

	resp, body = srv.do(t, srv.bearer(t, httptest.NewRequest(fiber.MethodPost, "/images/img-2/download", nil), "u1", domain.RoleUser))
	if resp.StatusCode != fiber.StatusOK || body["url"] != "/uploads/images/img-2.png" {
		t.Fatalf("expected free download url, got %d %v", resp.StatusCode, body)
	}

	resp, _ = srv.do(t, srv.bearer(t, httptest.NewRequest(fiber.MethodPost, "/images/img-1/download", nil), "p1", domain.RoleUser))
	if resp.StatusCode != fiber.StatusOK || srv.images.downloads["img-1"] != 1 {
		t.Fatalf("expected premium download for subscriber, got %d", resp.StatusCode)
	}

	resp, body = srv.do(t, srv.bearer(t, httptest.NewRequest(fiber.MethodPost, "/images/missing/download", nil), "u1", domain.RoleUser))
	if resp.StatusCode != fiber.StatusNotFound || body["code"] != "NOT_FOUND" {
		t.Fatalf("expected 404 for unknown image, got %d %v", resp.StatusCode, body)
	}
}

func TestVerifyPaymentSignatureMismatchMarksFailed(t *testing.T) {
	srv := newTestServer(t, &domain.User{ID: "u1", Role: domain.RoleUser})
	srv.txns.byOrder["order_1"] = &domain.Transaction{
		ID: "txn-1", UserID: "u1", PlanID: "monthly", GatewayOrderID: "order_1", Status: domain.TransactionCreated,
	}

	req := jsonRequest(fiber.MethodPost, "/payments/verify", `{"orderId":"order_1","paymentId":"pay_1","signature":"forged"}`)
	resp, body := srv.do(t, srv.bearer(t, req, "u1", domain.RoleUser))
	if resp.StatusCode != fiber.StatusBadRequest || body["code"] != "VALIDATION_FAILED" {
		t.Fatalf("expected 400, got %d %v", resp.StatusCode, body)
	}
	if srv.txns.byOrder["order_1"].Status != domain.TransactionFailed {
		t.Fatalf("expected failed transaction, got %s", srv.txns.byOrder["order_1"].Status)
	}

	req = jsonRequest(fiber.MethodPost, "/payments/verify", `{"orderId":"order_1","paymentId":"pay_1","signature":"forged"}`)
	resp, _ = srv.do(t, srv.bearer(t, req, "u2", domain.RoleUser))
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for another user's order, got %d", resp.StatusCode)
	}
}

func TestSettingsReadAndAdminUpdate(t *testing.T) {
	srv := newTestServer(t, &domain.User{ID: "a1", Role: domain.RoleAdmin})

	resp, body := srv.do(t, httptest.NewRequest(fiber.MethodGet, "/settings", nil))
	if resp.StatusCode != fiber.StatusOK || body["success"] != true {
		t.Fatalf("expected default settings, got %d %v", resp.StatusCode, body)
	}

	resp, _ = srv.do(t, jsonRequest(fiber.MethodPut, "/admin/settings", `{"siteName":"PixelVault"}`))
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous update, got %d", resp.StatusCode)
	}

	req := jsonRequest(fiber.MethodPut, "/admin/settings", `{"siteName":""}`)
	resp, _ = srv.do(t, srv.bearer(t, req, "a1", domain.RoleAdmin))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 without site name, got %d", resp.StatusCode)
	}

	req = jsonRequest(fiber.MethodPut, "/admin/settings", `{"siteName":"PixelVault","supportEmail":"help@example.com"}`)
	resp, body = srv.do(t, srv.bearer(t, req, "a1", domain.RoleAdmin))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d %v", resp.StatusCode, body)
	}
	_, body = srv.do(t, httptest.NewRequest(fiber.MethodGet, "/settings", nil))
	settings, _ := body["settings"].(map[string]any)
	if settings["siteName"] != "PixelVault" {
		t.Fatalf("expected saved settings, got %v", body)
	}
}

func TestAdminCannotDemoteOrDeleteSelf(t *testing.T) {
	srv := newTestServer(t,
		&domain.User{ID: "a1", Role: domain.RoleAdmin},
		&domain.User{ID: "u1", Role: domain.RoleUser},
	)

	req := jsonRequest(fiber.MethodPatch, "/admin/users/a1/role", `{"role":"user"}`)
	resp, _ := srv.do(t, srv.bearer(t, req, "a1", domain.RoleAdmin))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for self demotion, got %d", resp.StatusCode)
	}

	resp, _ = srv.do(t, srv.bearer(t, httptest.NewRequest(fiber.MethodDelete, "/admin/users/a1", nil), "a1", domain.RoleAdmin))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for self deletion, got %d", resp.StatusCode)
	}

	req = jsonRequest(fiber.MethodPatch, "/admin/users/u1/role", `{"role":"admin"}`)
	resp, body := srv.do(t, srv.bearer(t, req, "a1", domain.RoleAdmin))
	user, _ := body["user"].(map[string]any)
	if resp.StatusCode != fiber.StatusOK || user["role"] != "admin" {
		t.Fatalf("expected promotion, got %d %v", resp.StatusCode, body)
	}

	resp, _ = srv.do(t, srv.bearer(t, httptest.NewRequest(fiber.MethodDelete, "/admin/users/u1", nil), "a1", domain.RoleAdmin))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected delete, got %d", resp.StatusCode)
	}
	if _, ok := srv.users.byID["u1"]; ok {
		t.Fatal("expected u1 removed")
	}
}

func TestRateLimitedSignupUsesEnvelope(t *testing.T) {
	app := fiber.New()
	RegisterMiddlewares(app, MiddlewareConfig{})
	app.Post("/signup", AuthRateLimiter(1), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })

	first, _ := app.Test(httptest.NewRequest(fiber.MethodPost, "/signup", strings.NewReader("")), -1)
	second, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/signup", strings.NewReader("")), -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if first.StatusCode != fiber.StatusCreated || second.StatusCode != stdhttp.StatusTooManyRequests {
		t.Fatalf("expected 201 then 429, got %d then %d", first.StatusCode, second.StatusCode)
	}
}
