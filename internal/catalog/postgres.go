package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// pgQuerier is the subset of pgxpool.Pool the repository needs; pgxmock
// satisfies it in tests.
type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresAccessor reads tenant catalogs from the relational database.
type PostgresAccessor struct {
	db pgQuerier
}

// NewPostgresAccessor initializes a catalog accessor backed by pgx.
func NewPostgresAccessor(db pgQuerier) *PostgresAccessor {
	if db == nil {
		panic("catalog: db connection required")
	}
	return &PostgresAccessor{db: db}
}

var _ Accessor = (*PostgresAccessor)(nil)

// ListActiveProducts returns every active product of the tenant.
func (r *PostgresAccessor) ListActiveProducts(ctx context.Context, tenantID string) ([]Product, error) {
	query := `
		SELECT id, name, sku, price_cents, stock, category
		FROM products
		WHERE tenant_id = $1 AND active = TRUE
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("catalog: select failed: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.PriceCents, &p.Stock, &p.Category); err != nil {
			return nil, fmt.Errorf("catalog: scan failed: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: rows failed: %w", err)
	}
	return out, nil
}
