// Package credits meters billable AI actions against tenant balances.
package credits

import "context"

// Usage describes what a deduction pays for.
type Usage struct {
	Tokens   int
	Model    string
	Provider string
}

// Deduction is the outcome of a balance deduction.
type Deduction struct {
	OK        bool
	Deducted  int64
	Remaining int64
}

// Ledger gates and records billable actions. HasBalance is checked before a
// provider call; Deduct runs exactly once after a successful generation.
type Ledger interface {
	HasBalance(ctx context.Context, tenantID, action string) (bool, error)
	Deduct(ctx context.Context, tenantID, action string, usage Usage) (Deduction, error)
}

// Cost converts token usage to credits: one credit per started block of a
// thousand tokens, with a floor of one.
func Cost(tokens int) int64 {
	if tokens <= 0 {
		return 1
	}
	cost := int64((tokens + 999) / 1000)
	if cost < 1 {
		cost = 1
	}
	return cost
}

// UnlimitedLedger never blocks and records nothing; used in development and
// by the pipecheck CLI.
type UnlimitedLedger struct{}

func (UnlimitedLedger) HasBalance(context.Context, string, string) (bool, error) {
	return true, nil
}

func (UnlimitedLedger) Deduct(_ context.Context, _, _ string, usage Usage) (Deduction, error) {
	return Deduction{OK: true, Deducted: Cost(usage.Tokens), Remaining: -1}, nil
}
