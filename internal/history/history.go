// Package history exposes read access to prior conversation turns and to
// the customer's order record, the two inputs the analyzer aggregates.
package history

import "context"

// OrderRecord is one prior order of the conversation's customer.
type OrderRecord struct {
	Status     string
	TotalCents int64
}

// OrderSummary aggregates a customer's commercial footprint.
type OrderSummary struct {
	Orders       []OrderRecord
	MessageCount int
}

// TurnSource serves the most recent turns of a conversation, newest last.
type TurnSource interface {
	RecentTurns(ctx context.Context, conversationID string, limit int) ([]string, error)
}

// OrderSource serves the customer order summary for a conversation.
type OrderSource interface {
	CustomerOrderSummary(ctx context.Context, tenantID, conversationID string) (OrderSummary, error)
}

// Store composes the two sources into the accessor the analyzer consumes.
type Store struct {
	turns  TurnSource
	orders OrderSource
}

// NewStore wires a composed history accessor. Either source may be nil when
// the deployment lacks that backend; the matching reads return empty data.
func NewStore(turns TurnSource, orders OrderSource) *Store {
	return &Store{turns: turns, orders: orders}
}

// RecentTurns returns up to limit prior turns, oldest first.
func (s *Store) RecentTurns(ctx context.Context, conversationID string, limit int) ([]string, error) {
	if s == nil || s.turns == nil {
		return nil, nil
	}
	return s.turns.RecentTurns(ctx, conversationID, limit)
}

// CustomerOrderSummary returns the customer's aggregated order record.
func (s *Store) CustomerOrderSummary(ctx context.Context, tenantID, conversationID string) (OrderSummary, error) {
	if s == nil || s.orders == nil {
		return OrderSummary{}, nil
	}
	return s.orders.CustomerOrderSummary(ctx, tenantID, conversationID)
}
