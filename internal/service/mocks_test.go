package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"zen-storefront/internal/domain"
	"zen-storefront/internal/notification"
	"zen-storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mock repositories for testing

type mockUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Email]; exists {
		return domain.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, exists := m.users[strings.ToLower(email)]
	if !exists {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

type mockRefreshTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{tokens: make(map[string]*domain.RefreshToken)}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

func (m *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

type mockProductRepository struct {
	mu       sync.Mutex
	products map[uuid.UUID]*domain.Product
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[uuid.UUID]*domain.Product)}
}

func (m *mockProductRepository) add(name string, price string, stock int) *domain.Product {
	p := &domain.Product{
		ID:     uuid.New(),
		Name:   name,
		Slug:   domain.Slugify(name),
		Price:  decimal.RequireFromString(price),
		Stock:  stock,
		Status: domain.ProductStatusActive,
		Images: []string{"https://cdn.zen.store/" + domain.Slugify(name) + ".jpg"},
	}
	m.mu.Lock()
	m.products[p.ID] = p
	m.mu.Unlock()
	return p
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.Slug == product.Slug {
			return domain.ErrDuplicateSlug
		}
	}
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[product.ID]; !ok {
		return domain.ErrProductNotFound
	}
	for _, p := range m.products {
		if p.ID != product.ID && p.Slug == product.Slug {
			return domain.ErrDuplicateSlug
		}
	}
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepository) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Product{}
	for _, p := range m.products {
		if filter.Status == "" || p.Status == filter.Status {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (m *mockProductRepository) ListLowStock(ctx context.Context, defaultThreshold int) ([]domain.LowStockItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []domain.LowStockItem{}
	for _, p := range m.products {
		if p.Status != domain.ProductStatusActive {
			continue
		}
		threshold := defaultThreshold
		if p.LowStockThreshold != nil {
			threshold = *p.LowStockThreshold
		}
		if p.Stock <= threshold {
			items = append(items, domain.LowStockItem{ProductID: p.ID, Name: p.Name, Stock: p.Stock, Threshold: threshold})
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Stock < items[j].Stock })
	return items, nil
}

// mockCouponRepository keeps one coupon per normalized code.
type mockCouponRepository struct {
	mu      sync.Mutex
	coupons map[string]*domain.Coupon
}

func newMockCouponRepository() *mockCouponRepository {
	return &mockCouponRepository{coupons: make(map[string]*domain.Coupon)}
}

func (m *mockCouponRepository) Create(ctx context.Context, coupon *domain.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	code := domain.NormalizeCouponCode(coupon.Code)
	if existing, ok := m.coupons[code]; ok && existing.IsActive {
		return domain.ErrDuplicateCode
	}
	m.coupons[code] = coupon
	return nil
}

func (m *mockCouponRepository) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[domain.NormalizeCouponCode(code)]
	if !ok {
		return nil, domain.ErrCouponNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCouponRepository) List(ctx context.Context) ([]*domain.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Coupon{}
	for _, c := range m.coupons {
		out = append(out, c)
	}
	return out, nil
}

func (m *mockCouponRepository) Deactivate(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[domain.NormalizeCouponCode(code)]
	if !ok || !c.IsActive {
		return domain.ErrCouponNotFound
	}
	c.IsActive = false
	return nil
}

func (m *mockCouponRepository) Redeem(ctx context.Context, code string, now time.Time) (*domain.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[domain.NormalizeCouponCode(code)]
	if !ok {
		return nil, domain.ErrCouponNotFound
	}
	check := c.Check(c.MinOrderAmount, now)
	switch check.Reason {
	case "":
	case domain.ReasonUsageLimit:
		return nil, domain.ErrCouponExhausted
	default:
		return nil, domain.ValidationError("%s", check.Reason)
	}
	c.UsedCount++
	cp := *c
	return &cp, nil
}

// mockOrderRepository applies the checkout side effects against the product
// and coupon mocks under one lock.
type mockOrderRepository struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*domain.Order
	products  *mockProductRepository
	coupons   *mockCouponRepository
	seq       int
	createErr error
}

func newMockOrderRepository(products *mockProductRepository, coupons *mockCouponRepository) *mockOrderRepository {
	return &mockOrderRepository{
		orders:   make(map[uuid.UUID]*domain.Order),
		products: products,
		coupons:  coupons,
	}
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order, numberPrefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}

	m.products.mu.Lock()
	need := make(map[uuid.UUID]int)
	for _, it := range order.Items {
		need[it.ProductID] += it.Quantity
	}
	for id, qty := range need {
		p, ok := m.products.products[id]
		if !ok {
			m.products.mu.Unlock()
			return domain.ErrProductNotFound
		}
		if p.Stock < qty {
			m.products.mu.Unlock()
			return fmt.Errorf("%w for product %s", domain.ErrInsufficientStock, id)
		}
	}
	m.products.mu.Unlock()

	if !order.Total.Equal(domain.OrderTotal(order.Subtotal, order.ShippingCost, order.Discount)) {
		return domain.ValidationError("total must equal subtotal + shipping - discount")
	}

	if order.CouponCode != "" {
		if _, err := m.coupons.Redeem(ctx, order.CouponCode, order.CreatedAt); err != nil {
			return err
		}
	}

	m.products.mu.Lock()
	for id, qty := range need {
		m.products.products[id].Stock -= qty
	}
	m.products.mu.Unlock()

	m.seq++
	order.OrderNumber = fmt.Sprintf("%s%06d", numberPrefix, m.seq)
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.OrderNumber == strings.ToUpper(strings.TrimSpace(orderNumber)) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (m *mockOrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]*domain.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Order{}
	for _, o := range m.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.CustomerID != nil && (o.CustomerID == nil || *o.CustomerID != *filter.CustomerID) {
			continue
		}
		out = append(out, o)
	}
	return out, len(out), nil
}

func (m *mockOrderRepository) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Order{}
	for _, o := range m.orders {
		if !o.CreatedAt.Before(from) && o.CreatedAt.Before(to) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, trackingNumber *string, at time.Time) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if o.Status != from {
		return nil, fmt.Errorf("%w: order is %s, expected %s", domain.ErrInvalidTransition, o.Status, from)
	}
	o.Status = to
	if trackingNumber != nil {
		o.TrackingNumber = *trackingNumber
	}
	o.UpdatedAt = at
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepository) UpdateDetails(ctx context.Context, id uuid.UUID, patch repository.OrderPatch) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if patch.ExpectedStatus != "" && o.Status != patch.ExpectedStatus {
		return nil, fmt.Errorf("%w: order is %s, expected %s", domain.ErrInvalidTransition, o.Status, patch.ExpectedStatus)
	}
	if patch.ExpectedPaymentStatus != "" && o.PaymentStatus != patch.ExpectedPaymentStatus {
		return nil, domain.ErrInvalidTransition
	}
	if patch.Status != nil {
		o.Status = *patch.Status
	}
	if patch.PaymentStatus != nil {
		o.PaymentStatus = *patch.PaymentStatus
	}
	if patch.PaymentScreenshot != nil {
		o.PaymentScreenshot = *patch.PaymentScreenshot
	}
	if patch.TrackingNumber != nil {
		o.TrackingNumber = *patch.TrackingNumber
	}
	if patch.Notes != nil {
		o.Notes = *patch.Notes
	}
	o.UpdatedAt = patch.UpdatedAt
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepository) Summary(ctx context.Context) (map[domain.OrderStatus]int, decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[domain.OrderStatus]int)
	revenue := decimal.Zero
	for _, o := range m.orders {
		counts[o.Status]++
		if o.Status != domain.OrderStatusCancelled {
			revenue = revenue.Add(o.Total)
		}
	}
	return counts, revenue, nil
}

type mockReviewRepository struct {
	mu       sync.Mutex
	reviews  map[uuid.UUID]*domain.Review
	products *mockProductRepository
}

func newMockReviewRepository(products *mockProductRepository) *mockReviewRepository {
	return &mockReviewRepository{reviews: make(map[uuid.UUID]*domain.Review), products: products}
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) (domain.RatingSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.products.FindByID(ctx, review.ProductID); err != nil {
		return domain.RatingSummary{}, err
	}
	sum, count := 0, 0
	for _, r := range m.reviews {
		if r.ProductID != review.ProductID {
			continue
		}
		if r.UserID == review.UserID {
			return domain.RatingSummary{}, domain.ErrDuplicateReview
		}
		sum += r.Rating
		count++
	}
	m.reviews[review.ID] = review
	sum += review.Rating
	count++
	avg, _ := decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(int64(count))).Round(1).Float64()
	return domain.RatingSummary{AverageRating: avg, ReviewCount: count}, nil
}

func (m *mockReviewRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Review{}
	for _, r := range m.reviews {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockReviewRepository) IncrementHelpful(ctx context.Context, id uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok {
		return 0, domain.ErrReviewNotFound
	}
	r.HelpfulCount++
	return r.HelpfulCount, nil
}

type mockWishlistRepository struct {
	mu    sync.Mutex
	items map[uuid.UUID][]*domain.WishlistItem
}

func newMockWishlistRepository() *mockWishlistRepository {
	return &mockWishlistRepository{items: make(map[uuid.UUID][]*domain.WishlistItem)}
}

func (m *mockWishlistRepository) Add(ctx context.Context, item *domain.WishlistItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items[item.UserID] {
		if it.ProductID == item.ProductID {
			return nil
		}
	}
	m.items[item.UserID] = append(m.items[item.UserID], item)
	return nil
}

func (m *mockWishlistRepository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.items[userID]
	for i, it := range list {
		if it.ProductID == productID {
			m.items[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return domain.ErrWishlistNotFound
}

func (m *mockWishlistRepository) List(ctx context.Context, userID uuid.UUID) ([]*domain.WishlistItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.WishlistItem{}, m.items[userID]...), nil
}

type mockAlertRepository struct {
	mu     sync.Mutex
	alerts []*domain.StockAlert
}

func (m *mockAlertRepository) Create(ctx context.Context, alert *domain.StockAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, alert)
	return nil
}

func (m *mockAlertRepository) List(ctx context.Context, limit int) ([]*domain.StockAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alerts, nil
}

// recordingDispatcher captures events and optionally fails.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []notification.Event
	err    error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, event notification.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return d.err
}

func (d *recordingDispatcher) types() []notification.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]notification.EventType, len(d.events))
	for i, e := range d.events {
		out[i] = e.Type
	}
	return out
}

var errProviderDown = errors.New("email provider unavailable")
