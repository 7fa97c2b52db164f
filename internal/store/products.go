package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"marketplace/internal/database/postgresql"
)

// Product is one row of the products table.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       float64
	Category    string
	ImageURL    *string
	CreatedAt   time.Time
}

// ProductFields are the mutable columns, used by both insert and update.
// Update is a full replacement: every field is written in one statement.
type ProductFields struct {
	Name        string
	Description string
	Price       float64
	Category    string
	ImageURL    *string
}

// Sort options recognised by the list query. Anything else falls back to newest.
const (
	SortNewest    = "newest"
	SortPriceLow  = "price_low"
	SortPriceHigh = "price_high"
)

// ListOptions configure the list query. Zero values mean "no filter",
// "newest first" and "no limit".
type ListOptions struct {
	Category string
	Sort     string
	Limit    int
}

const productColumns = "id, name, description, price, category, image_url, created_at"

const schemaDDL = `
CREATE TABLE IF NOT EXISTS products (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL,
	price NUMERIC(10,2) NOT NULL,
	category TEXT NOT NULL,
	image_url TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// ProductStore owns the products table: schema, reads and single-statement writes.
type ProductStore struct {
	db     postgresql.DBPool
	logger *slog.Logger
	ready  atomic.Bool
}

func NewProductStore(db postgresql.DBPool, logger *slog.Logger) *ProductStore {
	return &ProductStore{db: db, logger: logger}
}

// EnsureSchema creates the products table if it is missing. Safe to call on
// every start. A failure leaves the store not ready but does not stop the
// process; /health reports the degraded state instead.
func (s *ProductStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaDDL); err != nil {
		s.ready.Store(false)
		s.logger.Error("Schema initialization failed, serving degraded", "error", err)
		return fmt.Errorf("ensure products schema: %w", err)
	}
	s.ready.Store(true)
	return nil
}

// Ready reports whether schema initialization has succeeded.
func (s *ProductStore) Ready() bool {
	return s.ready.Load()
}

// Ping probes the underlying connection, for the health endpoint.
func (s *ProductStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// buildListQuery translates ListOptions into SQL plus bound arguments.
// Every user-supplied value travels as a parameter; the ORDER BY fragments are
// fixed strings chosen by a whitelist switch, never caller text.
func buildListQuery(opts ListOptions) (string, []any) {
	var sb strings.Builder
	var args []any

	sb.WriteString("SELECT " + productColumns + " FROM products")

	if opts.Category != "" {
		args = append(args, opts.Category)
		fmt.Fprintf(&sb, " WHERE category = $%d", len(args))
	}

	switch opts.Sort {
	case SortPriceLow:
		sb.WriteString(" ORDER BY price ASC, id ASC")
	case SortPriceHigh:
		sb.WriteString(" ORDER BY price DESC, id ASC")
	default:
		// created_at ties (bulk inserts share a clock reading) resolve by id,
		// which matches insertion order.
		sb.WriteString(" ORDER BY created_at DESC, id DESC")
	}

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	return sb.String(), args
}

// List returns products under the requested filter and order. An empty result
// is a nil-free empty slice, not an error.
func (s *ProductStore) List(ctx context.Context, opts ListOptions) ([]Product, error) {
	sql, args := buildListQuery(opts)

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.ImageURL, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	return products, nil
}

// Get fetches one product. Returns pgx.ErrNoRows (wrapped) when absent.
func (s *ProductStore) Get(ctx context.Context, id int64) (Product, error) {
	row := s.db.QueryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1", id)

	var p Product
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.ImageURL, &p.CreatedAt); err != nil {
		return Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

// Insert creates a row and returns it fully populated, including the
// store-assigned id and created_at.
func (s *ProductStore) Insert(ctx context.Context, f ProductFields) (Product, error) {
	row := s.db.QueryRow(ctx,
		`INSERT INTO products (name, description, price, category, image_url)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+productColumns,
		f.Name, f.Description, f.Price, f.Category, f.ImageURL)

	var p Product
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.ImageURL, &p.CreatedAt); err != nil {
		return Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

// Update replaces all mutable fields in one statement.
// Returns pgx.ErrNoRows (wrapped) when the id does not exist.
func (s *ProductStore) Update(ctx context.Context, id int64, f ProductFields) (Product, error) {
	row := s.db.QueryRow(ctx,
		`UPDATE products
		 SET name = $1, description = $2, price = $3, category = $4, image_url = $5
		 WHERE id = $6
		 RETURNING `+productColumns,
		f.Name, f.Description, f.Price, f.Category, f.ImageURL, id)

	var p Product
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.ImageURL, &p.CreatedAt); err != nil {
		return Product{}, fmt.Errorf("update product %d: %w", id, err)
	}
	return p, nil
}

// Delete removes the row and returns its prior state so the caller can
// confirm what was deleted. Returns pgx.ErrNoRows (wrapped) when absent.
func (s *ProductStore) Delete(ctx context.Context, id int64) (Product, error) {
	row := s.db.QueryRow(ctx,
		"DELETE FROM products WHERE id = $1 RETURNING "+productColumns, id)

	var p Product
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.ImageURL, &p.CreatedAt); err != nil {
		return Product{}, fmt.Errorf("delete product %d: %w", id, err)
	}
	return p, nil
}
