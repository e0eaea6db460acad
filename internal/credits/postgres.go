package credits

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// pgQuerier is the subset of pgxpool.Pool the ledger needs; pgxmock
// satisfies it in tests.
type pgQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresLedger stores credit balances in the relational database.
type PostgresLedger struct {
	db pgQuerier
}

// NewPostgresLedger initializes a ledger backed by pgx.
func NewPostgresLedger(db pgQuerier) *PostgresLedger {
	if db == nil {
		panic("credits: db connection required")
	}
	return &PostgresLedger{db: db}
}

var _ Ledger = (*PostgresLedger)(nil)

// HasBalance reports whether the tenant can afford at least one unit of the
// action.
func (l *PostgresLedger) HasBalance(ctx context.Context, tenantID, action string) (bool, error) {
	var balance int64
	err := l.db.QueryRow(ctx,
		`SELECT balance FROM credit_accounts WHERE tenant_id = $1`, tenantID,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("credits: balance lookup failed: %w", err)
	}
	return balance >= 1, nil
}

// Deduct atomically charges the tenant for the usage and records the action.
// The balance never goes negative; a short balance yields OK=false.
func (l *PostgresLedger) Deduct(ctx context.Context, tenantID, action string, usage Usage) (Deduction, error) {
	cost := Cost(usage.Tokens)

	var remaining int64
	err := l.db.QueryRow(ctx, `
		UPDATE credit_accounts
		SET balance = balance - $2, updated_at = NOW()
		WHERE tenant_id = $1 AND balance >= $2
		RETURNING balance
	`, tenantID, cost).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return Deduction{OK: false}, nil
	}
	if err != nil {
		return Deduction{}, fmt.Errorf("credits: deduction failed: %w", err)
	}

	return Deduction{OK: true, Deducted: cost, Remaining: remaining}, nil
}
