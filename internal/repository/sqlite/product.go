package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sakif/energy-advisor/internal/apperror"
	"github.com/sakif/energy-advisor/internal/model"
	"github.com/sakif/energy-advisor/internal/repository"
)

var _ repository.ProductRepository = (*DB)(nil)

// UpsertProduct seeds a catalog entry. An existing slug is left untouched so
// restarting the server never rewrites edited copy.
func (db *DB) UpsertProduct(ctx context.Context, p *model.Product) error {
	benefits, err := json.Marshal(p.Benefits)
	if err != nil {
		return fmt.Errorf("sqlite: encoding benefits for %s: %w", p.Slug, err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO products (slug, name, short_desc, long_desc, benefits, typical_saving_pct)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(slug) DO NOTHING`,
		p.Slug, p.Name, p.ShortDesc, p.LongDesc, string(benefits), p.TypicalSavingPct,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting product %s: %w", p.Slug, err)
	}
	return nil
}

func (db *DB) GetProduct(ctx context.Context, slug string) (*model.Product, error) {
	var (
		p        model.Product
		benefits string
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT slug, name, short_desc, long_desc, benefits, typical_saving_pct
		 FROM products WHERE slug = ?`,
		slug,
	).Scan(&p.Slug, &p.Name, &p.ShortDesc, &p.LongDesc, &benefits, &p.TypicalSavingPct)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("product", slug)
		}
		return nil, fmt.Errorf("sqlite: getting product %s: %w", slug, err)
	}

	if err := json.Unmarshal([]byte(benefits), &p.Benefits); err != nil {
		return nil, fmt.Errorf("sqlite: decoding benefits for %s: %w", slug, err)
	}
	return &p, nil
}

func (db *DB) ListProducts(ctx context.Context) ([]model.ProductSummary, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT slug, name, short_desc FROM products ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing products: %w", err)
	}
	defer rows.Close()

	var products []model.ProductSummary
	for rows.Next() {
		var p model.ProductSummary
		if err := rows.Scan(&p.Slug, &p.Name, &p.ShortDesc); err != nil {
			return nil, fmt.Errorf("sqlite: scanning product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating products: %w", err)
	}
	return products, nil
}
