package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"zen-storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// ProductFilter narrows a catalog listing.
type ProductFilter struct {
	Status    domain.ProductStatus // empty means any status
	Query     string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder SortOrder
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error)
	ListLowStock(ctx context.Context, defaultThreshold int) ([]domain.LowStockItem, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, name, slug, description, price, compare_at_price, stock, status, images,
	low_stock_threshold, average_rating, review_count, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p         domain.Product
		compareAt decimal.NullDecimal
		images    []byte
		threshold sql.NullInt64
	)

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Price,
		&compareAt,
		&p.Stock,
		&p.Status,
		&images,
		&threshold,
		&p.AverageRating,
		&p.ReviewCount,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if compareAt.Valid {
		p.CompareAtPrice = &compareAt.Decimal
	}
	if threshold.Valid {
		t := int(threshold.Int64)
		p.LowStockThreshold = &t
	}
	if err := json.Unmarshal(images, &p.Images); err != nil {
		return nil, fmt.Errorf("failed to decode product images: %w", err)
	}
	return &p, nil
}

func productArgs(p *domain.Product) (images string, compareAt decimal.NullDecimal, threshold sql.NullInt64, err error) {
	if p.Images == nil {
		p.Images = []string{}
	}
	b, err := json.Marshal(p.Images)
	if err != nil {
		return "", compareAt, threshold, fmt.Errorf("failed to encode product images: %w", err)
	}
	if p.CompareAtPrice != nil {
		compareAt = decimal.NewNullDecimal(*p.CompareAtPrice)
	}
	if p.LowStockThreshold != nil {
		threshold = sql.NullInt64{Int64: int64(*p.LowStockThreshold), Valid: true}
	}
	return string(b), compareAt, threshold, nil
}

// Create inserts a new product
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	images, compareAt, threshold, err := productArgs(product)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO products (id, name, slug, description, price, compare_at_price, stock, status, images,
			low_stock_threshold, average_rating, review_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, 0, $11, $12)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Slug,
		product.Description,
		product.Price,
		compareAt,
		product.Stock,
		product.Status,
		images,
		threshold,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "products_slug_key") {
			return domain.ErrDuplicateSlug
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update writes the editable product fields. The rating aggregate is owned by
// the review repository and is never written here.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	images, compareAt, threshold, err := productArgs(product)
	if err != nil {
		return err
	}

	query := `
		UPDATE products
		SET name = $2, slug = $3, description = $4, price = $5, compare_at_price = $6,
		    stock = $7, status = $8, images = $9, low_stock_threshold = $10, updated_at = $11
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Slug,
		product.Description,
		product.Price,
		compareAt,
		product.Stock,
		product.Status,
		images,
		threshold,
		product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "products_slug_key") {
			return domain.ErrDuplicateSlug
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	return rowsAffected(result, domain.ErrProductNotFound)
}

// Delete removes a product from the catalog
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return rowsAffected(result, domain.ErrProductNotFound)
}

// FindByID retrieves a product by ID
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// FindBySlug retrieves a product by its URL slug
func (r *productRepository) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE slug = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by slug: %w", err)
	}

	return product, nil
}

// List retrieves products with optional status and text filtering, pagination, and sorting
func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error) {
	// Validate sort field to prevent SQL injection
	validSortFields := map[string]bool{
		"name":           true,
		"price":          true,
		"created_at":     true,
		"stock":          true,
		"average_rating": true,
	}

	sortBy := filter.SortBy
	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := filter.SortOrder
	if sortOrder != SortOrderAsc && sortOrder != SortOrderDesc {
		sortOrder = SortOrderDesc
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)

	var (
		conditions []string
		args       []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products %s", whereClause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, productColumns, whereClause, sortBy, sortOrder, len(args)+1, len(args)+2)

	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	return products, total, nil
}

// ListLowStock returns active products at or below their threshold. A
// product's own threshold wins over defaultThreshold.
func (r *productRepository) ListLowStock(ctx context.Context, defaultThreshold int) ([]domain.LowStockItem, error) {
	query := `
		SELECT id, name, stock, COALESCE(low_stock_threshold, $1) AS threshold
		FROM products
		WHERE status = 'active' AND stock <= COALESCE(low_stock_threshold, $1)
		ORDER BY stock ASC, name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, defaultThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}
	defer rows.Close()

	items := []domain.LowStockItem{}
	for rows.Next() {
		var item domain.LowStockItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Stock, &item.Threshold); err != nil {
			return nil, fmt.Errorf("failed to scan low stock product: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating low stock products: %w", err)
	}

	return items, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
