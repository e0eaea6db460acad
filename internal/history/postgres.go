package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// pgQuerier is the subset of pgxpool.Pool the store needs; pgxmock
// satisfies it in tests.
type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresOrders reads a customer's order record from the relational
// database.
type PostgresOrders struct {
	db pgQuerier
}

// NewPostgresOrders initializes an order source backed by pgx.
func NewPostgresOrders(db pgQuerier) *PostgresOrders {
	if db == nil {
		panic("history: db connection required")
	}
	return &PostgresOrders{db: db}
}

var _ OrderSource = (*PostgresOrders)(nil)

// CustomerOrderSummary aggregates orders and message counts for the
// conversation's customer.
func (r *PostgresOrders) CustomerOrderSummary(ctx context.Context, tenantID, conversationID string) (OrderSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT status, total_cents
		FROM orders
		WHERE tenant_id = $1 AND conversation_id = $2
		ORDER BY created_at DESC
	`, tenantID, conversationID)
	if err != nil {
		return OrderSummary{}, fmt.Errorf("history: order select failed: %w", err)
	}
	defer rows.Close()

	var summary OrderSummary
	for rows.Next() {
		var rec OrderRecord
		if err := rows.Scan(&rec.Status, &rec.TotalCents); err != nil {
			return OrderSummary{}, fmt.Errorf("history: order scan failed: %w", err)
		}
		summary.Orders = append(summary.Orders, rec)
	}
	if err := rows.Err(); err != nil {
		return OrderSummary{}, fmt.Errorf("history: order rows failed: %w", err)
	}

	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM messages
		WHERE tenant_id = $1 AND conversation_id = $2
	`, tenantID, conversationID).Scan(&summary.MessageCount)
	if err != nil {
		return OrderSummary{}, fmt.Errorf("history: message count failed: %w", err)
	}

	return summary, nil
}
