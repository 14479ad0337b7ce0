package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pixelvault/marketplace/internal/domain"
	"github.com/pixelvault/marketplace/internal/payment"
	"github.com/pixelvault/marketplace/internal/repository"
)

type memUsers struct {
	mu      sync.Mutex
	seq     int
	byID    map[string]*domain.User
	creates int
	updates int
}

func newMemUsers(users ...*domain.User) *memUsers {
	m := &memUsers{byID: map[string]*domain.User{}}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.creates++
	user.ID = fmt.Sprintf("user-%d", m.seq)
	user.CreatedAt = time.Now()
	copied := *user
	m.byID[user.ID] = &copied
	return nil
}

func (m *memUsers) Update(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.updates++
	copied := *user
	m.byID[user.ID] = &copied
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memUsers) List(_ context.Context, limit, offset int) ([]domain.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.byID {
		out = append(out, *u)
	}
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *memUsers) UpdateRole(_ context.Context, id string, role domain.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.Role = role
	return nil
}

func (m *memUsers) ActivatePremium(_ context.Context, id string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.IsPremium = true
	u.PremiumExpiresAt = &until
	return nil
}

func (m *memUsers) ExpirePremium(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.byID {
		if u.IsPremium && u.PremiumExpiresAt != nil && !u.PremiumExpiresAt.After(now) {
			u.IsPremium = false
			n++
		}
	}
	return n, nil
}

func (m *memUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.byID, id)
	return nil
}

func (m *memUsers) Counts(_ context.Context) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var premium int64
	for _, u := range m.byID {
		if u.IsPremium {
			premium++
		}
	}
	return int64(len(m.byID)), premium, nil
}

func (m *memUsers) MonthlySignups(_ context.Context, since time.Time) ([]domain.MonthlyCount, error) {
	return []domain.MonthlyCount{{Month: since, Count: int64(len(m.byID))}}, nil
}

type memCategories struct {
	byID map[string]*domain.Category
}

func (m *memCategories) Create(_ context.Context, c *domain.Category) error {
	c.ID = "cat-" + c.Slug
	m.byID[c.ID] = c
	return nil
}

func (m *memCategories) GetByID(_ context.Context, id string) (*domain.Category, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return c, nil
}

func (m *memCategories) List(_ context.Context) ([]domain.Category, error) {
	var out []domain.Category
	for _, c := range m.byID {
		out = append(out, *c)
	}
	return out, nil
}

func (m *memCategories) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.byID, id)
	return nil
}

type memImages struct {
	byID        map[string]*domain.Image
	relatedArgs []string
	failCreate  error
}

func (m *memImages) Create(_ context.Context, image *domain.Image) error {
	if m.failCreate != nil {
		return m.failCreate
	}
	image.ID = "img-" + image.Slug
	copied := *image
	m.byID[image.ID] = &copied
	return nil
}

func (m *memImages) Update(_ context.Context, image *domain.Image) error {
	copied := *image
	m.byID[image.ID] = &copied
	return nil
}

func (m *memImages) GetByID(_ context.Context, id string) (*domain.Image, error) {
	image, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *image
	return &copied, nil
}

func (m *memImages) GetBySlug(_ context.Context, slug string) (*domain.Image, error) {
	for _, image := range m.byID {
		if image.Slug == slug {
			copied := *image
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memImages) List(_ context.Context, filter repository.ImageFilter) ([]domain.Image, int64, error) {
	var out []domain.Image
	for _, image := range m.byID {
		if filter.CategoryID != nil && image.CategoryID != *filter.CategoryID {
			continue
		}
		out = append(out, *image)
	}
	return out, int64(len(out)), nil
}

func (m *memImages) Related(_ context.Context, categoryID, excludeID string, limit int) ([]domain.Image, error) {
	m.relatedArgs = []string{categoryID, excludeID, fmt.Sprint(limit)}
	var out []domain.Image
	for _, image := range m.byID {
		if image.CategoryID == categoryID && image.ID != excludeID && len(out) < limit {
			out = append(out, *image)
		}
	}
	return out, nil
}

func (m *memImages) IncrementDownloads(_ context.Context, id string) error {
	image, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	image.Downloads++
	return nil
}

func (m *memImages) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.byID, id)
	return nil
}

func (m *memImages) Count(_ context.Context) (int64, error) {
	return int64(len(m.byID)), nil
}

type memPlans struct {
	byID map[string]*domain.PricingPlan
}

func (m *memPlans) Create(_ context.Context, plan *domain.PricingPlan) error {
	plan.ID = fmt.Sprintf("plan-%d", len(m.byID)+1)
	copied := *plan
	m.byID[plan.ID] = &copied
	return nil
}

func (m *memPlans) Update(_ context.Context, plan *domain.PricingPlan) error {
	copied := *plan
	m.byID[plan.ID] = &copied
	return nil
}

func (m *memPlans) GetByID(_ context.Context, id string) (*domain.PricingPlan, error) {
	plan, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *plan
	return &copied, nil
}

func (m *memPlans) List(_ context.Context, activeOnly bool) ([]domain.PricingPlan, error) {
	var out []domain.PricingPlan
	for _, plan := range m.byID {
		if activeOnly && !plan.Active {
			continue
		}
		out = append(out, *plan)
	}
	return out, nil
}

func (m *memPlans) Delete(_ context.Context, id string) error {
	delete(m.byID, id)
	return nil
}

type memCoupons struct {
	byCode  map[string]*domain.Coupon
	redeems int
}

func (m *memCoupons) Create(_ context.Context, coupon *domain.Coupon) error {
	coupon.ID = "coupon-" + coupon.Code
	m.byCode[coupon.Code] = coupon
	return nil
}

func (m *memCoupons) GetByCode(_ context.Context, code string) (*domain.Coupon, error) {
	coupon, ok := m.byCode[code]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *coupon
	return &copied, nil
}

func (m *memCoupons) List(_ context.Context) ([]domain.Coupon, error) {
	var out []domain.Coupon
	for _, coupon := range m.byCode {
		out = append(out, *coupon)
	}
	return out, nil
}

func (m *memCoupons) Delete(_ context.Context, id string) error {
	for code, coupon := range m.byCode {
		if coupon.ID == id {
			delete(m.byCode, code)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memCoupons) Redeem(_ context.Context, code string, now time.Time) error {
	coupon, ok := m.byCode[code]
	if !ok || !coupon.Usable(now) {
		return pgx.ErrNoRows
	}
	coupon.UsedCount++
	m.redeems++
	return nil
}

type memTransactions struct {
	byID map[string]*domain.Transaction
	// staleReads, keyed by order id, is returned by GetByOrderID instead of the current row.
	staleReads map[string]domain.Transaction
}

func (m *memTransactions) Create(_ context.Context, txn *domain.Transaction) error {
	txn.ID = fmt.Sprintf("txn-%d", len(m.byID)+1)
	copied := *txn
	m.byID[txn.ID] = &copied
	return nil
}

func (m *memTransactions) GetByOrderID(_ context.Context, orderID string) (*domain.Transaction, error) {
	if snapshot, ok := m.staleReads[orderID]; ok {
		return &snapshot, nil
	}
	for _, txn := range m.byID {
		if txn.GatewayOrderID == orderID {
			copied := *txn
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memTransactions) SetStatus(_ context.Context, id string, status domain.TransactionStatus, paymentID *string) error {
	txn, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if txn.Status == domain.TransactionPaid {
		return repository.ErrTransactionSettled
	}
	txn.Status = status
	txn.GatewayPaymentID = paymentID
	return nil
}

func (m *memTransactions) ListByUser(_ context.Context, userID string) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, txn := range m.byID {
		if txn.UserID == userID {
			out = append(out, *txn)
		}
	}
	return out, nil
}

func (m *memTransactions) List(_ context.Context, limit, offset int) ([]domain.Transaction, int64, error) {
	var out []domain.Transaction
	for _, txn := range m.byID {
		out = append(out, *txn)
	}
	return out, int64(len(out)), nil
}

func (m *memTransactions) Revenue(_ context.Context) (int64, error) {
	var total int64
	for _, txn := range m.byID {
		if txn.Status == domain.TransactionPaid {
			total += txn.Amount
		}
	}
	return total, nil
}

func (m *memTransactions) MonthlyPaid(_ context.Context, since time.Time) ([]domain.MonthlyCount, error) {
	return nil, nil
}

type memSessions struct {
	created []*domain.Session
	deleted []string
	err     error
}

func (m *memSessions) Create(_ context.Context, userID string, role domain.Role) (*domain.Session, error) {
	if m.err != nil {
		return nil, m.err
	}
	sess := &domain.Session{ID: fmt.Sprintf("sess-%d", len(m.created)+1), UserID: userID, Role: string(role)}
	m.created = append(m.created, sess)
	return sess, nil
}

func (m *memSessions) Delete(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

type fakeGateway struct {
	secret string
	orders []payment.OrderRequest
	err    error
}

func (g *fakeGateway) CreateOrder(_ context.Context, req payment.OrderRequest) (*payment.Order, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.orders = append(g.orders, req)
	return &payment.Order{
		ID:       fmt.Sprintf("order_%d", len(g.orders)),
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
	}, nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return payment.Sign(g.secret, orderID, paymentID) == signature
}

func (g *fakeGateway) KeyID() string { return "key_test" }

type memFiles struct {
	saved   map[string][]byte
	deleted []string
}

func newMemFiles() *memFiles {
	return &memFiles{saved: map[string][]byte{}}
}

func (f *memFiles) Save(_ context.Context, key string, r io.Reader) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	f.saved[key] = buf.Bytes()
	return nil
}

func (f *memFiles) Delete(_ context.Context, key string) error {
	delete(f.saved, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *memFiles) URL(key string) string {
	return "/uploads/" + key
}

type memSettings struct {
	current *domain.Settings
	writes  int
}

func (m *memSettings) Get(_ context.Context) (*domain.Settings, error) {
	if m.current == nil {
		return nil, pgx.ErrNoRows
	}
	copied := *m.current
	return &copied, nil
}

func (m *memSettings) Update(_ context.Context, s *domain.Settings) error {
	s.UpdatedAt = time.Now()
	copied := *s
	m.current = &copied
	m.writes++
	return nil
}
