// Package catalog exposes read access to each tenant's active product list.
// Stock figures returned here are a point-in-time snapshot; order placement
// must re-check stock before committing.
package catalog

import (
	"context"
	"sync"
)

// Product is one sellable item of a tenant catalog.
type Product struct {
	ID         string
	Name       string
	SKU        string
	PriceCents int64
	Stock      int
	Category   string
}

// Accessor lists the active products of a tenant.
type Accessor interface {
	ListActiveProducts(ctx context.Context, tenantID string) ([]Product, error)
}

// StaticAccessor serves a fixed in-memory catalog, used in tests and by the
// pipecheck CLI.
type StaticAccessor struct {
	mu       sync.RWMutex
	products map[string][]Product
}

// NewStaticAccessor builds an accessor over tenant keyed product lists.
func NewStaticAccessor(products map[string][]Product) *StaticAccessor {
	if products == nil {
		products = make(map[string][]Product)
	}
	return &StaticAccessor{products: products}
}

// ListActiveProducts returns the configured products for the tenant.
func (s *StaticAccessor) ListActiveProducts(_ context.Context, tenantID string) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := s.products[tenantID]
	out := make([]Product, len(items))
	copy(out, items)
	return out, nil
}

// SetProducts replaces a tenant's product list.
func (s *StaticAccessor) SetProducts(tenantID string, items []Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[tenantID] = items
}
