package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kahawahub/kahawa/backend/internal/entity"
	"github.com/kahawahub/kahawa/backend/internal/repository"
)

const productColumns = `id, name, description, category, price, size_prices, stock, low_stock_threshold, in_stock, active, image_url, created_at, updated_at`

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new ProductRepository backed by Postgres.
func NewProductRepository(db *sql.DB) repository.ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) FindAll(ctx context.Context) ([]entity.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE active ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1", id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %s: %w", id, entity.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *productRepository) Seed(ctx context.Context, products []entity.Product) error {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil // already seeded
	}

	for _, p := range products {
		sizePrices, err := json.Marshal(p.SizePrices)
		if err != nil {
			return fmt.Errorf("failed to marshal size prices for %s: %w", p.ID, err)
		}
		p.RecomputeInStock()
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO products (id, name, description, category, price, size_prices, stock, low_stock_threshold, in_stock, active, image_url)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			p.ID, p.Name, p.Description, p.Category, p.Price, sizePrices, p.Stock, p.LowStockThreshold, p.InStock, p.Active, p.ImageURL,
		)
		if err != nil {
			return fmt.Errorf("failed to seed product %s: %w", p.ID, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*entity.Product, error) {
	var p entity.Product
	var sizePrices []byte
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Price, &sizePrices,
		&p.Stock, &p.LowStockThreshold, &p.InStock, &p.Active, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}
	if len(sizePrices) > 0 {
		if err := json.Unmarshal(sizePrices, &p.SizePrices); err != nil {
			return nil, fmt.Errorf("failed to unmarshal size prices for %s: %w", p.ID, err)
		}
	}
	return &p, nil
}
