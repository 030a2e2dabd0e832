package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"zen-storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderFilter narrows an order listing.
type OrderFilter struct {
	Status     domain.OrderStatus
	CustomerID *uuid.UUID
	Page       int
	PageSize   int
}

// OrderPatch holds the admin editable order fields. Nil fields are left
// untouched. When ExpectedStatus or ExpectedPaymentStatus is set the write
// only succeeds if the stored value still equals it; otherwise nothing is
// written.
type OrderPatch struct {
	Status                *domain.OrderStatus
	ExpectedStatus        domain.OrderStatus
	PaymentStatus         *domain.PaymentStatus
	ExpectedPaymentStatus domain.PaymentStatus
	PaymentScreenshot     *string
	TrackingNumber        *string
	Notes                 *string
	UpdatedAt             time.Time
}

// OrderRepository is the storage contract of the order ledger. Create is the
// only way an order comes into existence and applies every side effect of a
// checkout in one transaction.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order, numberPrefix string) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*domain.Order, int, error)
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, trackingNumber *string, at time.Time) (*domain.Order, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, patch OrderPatch) (*domain.Order, error)
	Summary(ctx context.Context) (map[domain.OrderStatus]int, decimal.Decimal, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, order_number, customer_id, contact_name, contact_email, contact_phone, items,
	subtotal, shipping_cost, discount, total, coupon_code, status, payment_method, payment_status,
	payment_screenshot, shipping_address, tracking_number, notes, created_at, updated_at`

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o          domain.Order
		customerID uuid.NullUUID
		items      []byte
		address    []byte
		couponCode sql.NullString
	)

	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&customerID,
		&o.Contact.Name,
		&o.Contact.Email,
		&o.Contact.Phone,
		&items,
		&o.Subtotal,
		&o.ShippingCost,
		&o.Discount,
		&o.Total,
		&couponCode,
		&o.Status,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.PaymentScreenshot,
		&address,
		&o.TrackingNumber,
		&o.Notes,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if customerID.Valid {
		o.CustomerID = &customerID.UUID
	}
	o.CouponCode = couponCode.String
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("failed to decode order items: %w", err)
	}
	if err := json.Unmarshal(address, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("failed to decode shipping address: %w", err)
	}
	return &o, nil
}

// Create persists a checkout atomically: stock for every product is
// decremented with a guard, the coupon is redeemed, an order number is
// allocated, the order row is written and the customer's lifetime stats are
// bumped. Any failure rolls back all of it.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order, numberPrefix string) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}
	address, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to encode shipping address: %w", err)
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := decrementStock(ctx, tx, order.Items); err != nil {
			return err
		}

		couponCode := sql.NullString{}
		if order.CouponCode != "" {
			if _, err := redeemCoupon(ctx, tx, order.CouponCode, order.CreatedAt); err != nil {
				return err
			}
			couponCode = sql.NullString{String: domain.NormalizeCouponCode(order.CouponCode), Valid: true}
		}

		var seq int64
		if err := tx.QueryRowContext(ctx, `SELECT nextval('order_number_seq')`).Scan(&seq); err != nil {
			return fmt.Errorf("failed to allocate order number: %w", err)
		}
		order.OrderNumber = fmt.Sprintf("%s%06d", numberPrefix, seq)

		var customerID uuid.NullUUID
		if order.CustomerID != nil {
			customerID = uuid.NullUUID{UUID: *order.CustomerID, Valid: true}
		}

		insert := `
			INSERT INTO orders (` + orderColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		`
		_, err := tx.ExecContext(ctx, insert,
			order.ID,
			order.OrderNumber,
			customerID,
			order.Contact.Name,
			order.Contact.Email,
			order.Contact.Phone,
			string(items),
			order.Subtotal,
			order.ShippingCost,
			order.Discount,
			order.Total,
			couponCode,
			order.Status,
			order.PaymentMethod,
			order.PaymentStatus,
			order.PaymentScreenshot,
			string(address),
			order.TrackingNumber,
			order.Notes,
			order.CreatedAt,
			order.UpdatedAt,
		)
		if err != nil {
			if isCheckViolation(err, "chk_orders_total") {
				return domain.ValidationError("total must equal subtotal + shipping - discount")
			}
			return fmt.Errorf("failed to create order: %w", err)
		}

		if order.CustomerID != nil {
			_, err := tx.ExecContext(ctx,
				`UPDATE users SET order_count = order_count + 1, total_spent = total_spent + $2 WHERE id = $1`,
				*order.CustomerID, order.Total,
			)
			if err != nil {
				return fmt.Errorf("failed to update customer stats: %w", err)
			}
		}

		return nil
	})
}

// decrementStock takes stock for each product in id order so concurrent
// checkouts touching the same products lock rows in the same order.
func decrementStock(ctx context.Context, tx DBTX, items []domain.LineItem) error {
	quantities := make(map[uuid.UUID]int)
	for _, item := range items {
		quantities[item.ProductID] += item.Quantity
	}

	ids := make([]uuid.UUID, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		qty := quantities[id]
		result, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`,
			id, qty,
		)
		if err != nil {
			return fmt.Errorf("failed to update stock for product %s: %w", id, err)
		}

		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if n == 1 {
			continue
		}

		var stock int
		err = tx.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1`, id).Scan(&stock)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("failed to read stock for product %s: %w", id, err)
		}
		return fmt.Errorf("%w for product %s: requested %d, available %d", domain.ErrInsufficientStock, id, qty, stock)
	}
	return nil
}

// FindByID retrieves an order by its internal id
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.findOne(ctx, `id = $1`, id)
}

// FindByOrderNumber retrieves an order by its customer facing number
func (r *orderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return r.findOne(ctx, `order_number = $1`, strings.ToUpper(strings.TrimSpace(orderNumber)))
}

func (r *orderRepository) findOne(ctx context.Context, where string, arg any) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return order, nil
}

// List retrieves orders newest first with optional status/customer filtering
func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]*domain.Order, int, error) {
	page, pageSize := normalizePage(filter.Page, filter.PageSize)

	var (
		conditions []string
		args       []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM orders %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderColumns, whereClause, len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	orders, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListCreatedBetween returns orders created in [from, to), oldest first
func (r *orderRepository) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at ASC`
	return r.query(ctx, query, from, to)
}

func (r *orderRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus moves an order from one status to another with a
// compare-and-swap on the current status. If another request changed the
// status first the write is rejected as an invalid transition.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, trackingNumber *string, at time.Time) (*domain.Order, error) {
	var tracking sql.NullString
	if trackingNumber != nil {
		tracking = sql.NullString{String: *trackingNumber, Valid: true}
	}

	query := `
		UPDATE orders
		SET status = $3, tracking_number = COALESCE($4, tracking_number), updated_at = $5
		WHERE id = $1 AND status = $2
		RETURNING ` + orderColumns

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id, from, to, tracking, at))
	if err == nil {
		return order, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: order is %s, expected %s", domain.ErrInvalidTransition, current.Status, from)
}

// UpdateDetails applies an admin patch in a single statement, status
// included; updated_at is always refreshed.
func (r *orderRepository) UpdateDetails(ctx context.Context, id uuid.UUID, patch OrderPatch) (*domain.Order, error) {
	var (
		status          sql.NullString
		expectedStatus  sql.NullString
		paymentStatus   sql.NullString
		expectedPayment sql.NullString
	)
	if patch.Status != nil {
		status = sql.NullString{String: string(*patch.Status), Valid: true}
	}
	if patch.ExpectedStatus != "" {
		expectedStatus = sql.NullString{String: string(patch.ExpectedStatus), Valid: true}
	}
	if patch.PaymentStatus != nil {
		paymentStatus = sql.NullString{String: string(*patch.PaymentStatus), Valid: true}
	}
	if patch.ExpectedPaymentStatus != "" {
		expectedPayment = sql.NullString{String: string(patch.ExpectedPaymentStatus), Valid: true}
	}

	query := `
		UPDATE orders
		SET payment_status = COALESCE($2, payment_status),
		    payment_screenshot = COALESCE($3, payment_screenshot),
		    tracking_number = COALESCE($4, tracking_number),
		    notes = COALESCE($5, notes),
		    updated_at = $6,
		    status = COALESCE($8, status)
		WHERE id = $1
		  AND ($7::text IS NULL OR payment_status = $7::text)
		  AND ($9::text IS NULL OR status = $9::text)
		RETURNING ` + orderColumns

	order, err := scanOrder(r.db.QueryRowContext(ctx, query,
		id,
		paymentStatus,
		nullString(patch.PaymentScreenshot),
		nullString(patch.TrackingNumber),
		nullString(patch.Notes),
		patch.UpdatedAt,
		expectedPayment,
		status,
		expectedStatus,
	))
	if err == nil {
		return order, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.ExpectedStatus != "" && current.Status != patch.ExpectedStatus {
		return nil, fmt.Errorf("%w: order is %s, expected %s", domain.ErrInvalidTransition, current.Status, patch.ExpectedStatus)
	}
	return nil, fmt.Errorf("%w: payment status is %s, expected %s", domain.ErrInvalidTransition, current.PaymentStatus, patch.ExpectedPaymentStatus)
}

// Summary counts orders per status and sums revenue of non-cancelled orders
func (r *orderRepository) Summary(ctx context.Context) (map[domain.OrderStatus]int, decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(total), 0)
		FROM orders
		GROUP BY status
	`)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to summarize orders: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.OrderStatus]int)
	revenue := decimal.Zero
	for rows.Next() {
		var (
			status domain.OrderStatus
			count  int
			sum    decimal.Decimal
		)
		if err := rows.Scan(&status, &count, &sum); err != nil {
			return nil, decimal.Zero, fmt.Errorf("failed to scan order summary: %w", err)
		}
		counts[status] = count
		if status != domain.OrderStatusCancelled {
			revenue = revenue.Add(sum)
		}
	}

	if err = rows.Err(); err != nil {
		return nil, decimal.Zero, fmt.Errorf("error iterating order summary: %w", err)
	}
	return counts, revenue, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
