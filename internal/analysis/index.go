package analysis

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/wambo-ai/wambo/internal/catalog"
)

const defaultIndexTTL = 10 * time.Minute

// tenantIndex is one tenant's inverted product index.
type tenantIndex struct {
	products []catalog.Product
	// tokens maps a normalized name token (len > 2) to product positions.
	tokens map[string][]int
	// skus maps a normalized SKU to a product position.
	skus    map[string]int
	builtAt time.Time
}

// CatalogIndex caches a per-tenant inverted index over catalog product
// names and SKUs. It is invalidated explicitly when the catalog owner
// mutates products, rebuilt lazily on the next lookup, and time-bounded
// even without invalidation.
type CatalogIndex struct {
	source catalog.Accessor
	ttl    time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	tenants map[string]*tenantIndex
}

// NewCatalogIndex builds an index over the given catalog accessor.
func NewCatalogIndex(source catalog.Accessor, ttl time.Duration) *CatalogIndex {
	if source == nil {
		panic("analysis: catalog accessor cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultIndexTTL
	}
	return &CatalogIndex{
		source:  source,
		ttl:     ttl,
		now:     time.Now,
		tenants: make(map[string]*tenantIndex),
	}
}

// Invalidate drops the tenant's cached index. The catalog owner calls this
// on any product create/update/delete.
func (x *CatalogIndex) Invalidate(tenantID string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.tenants, tenantID)
}

// get returns the tenant's index, rebuilding it when absent or expired.
func (x *CatalogIndex) get(ctx context.Context, tenantID string) (*tenantIndex, error) {
	x.mu.RLock()
	idx, ok := x.tenants[tenantID]
	x.mu.RUnlock()
	if ok && x.now().Sub(idx.builtAt) < x.ttl {
		return idx, nil
	}

	products, err := x.source.ListActiveProducts(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	idx = buildTenantIndex(products, x.now())

	x.mu.Lock()
	x.tenants[tenantID] = idx
	x.mu.Unlock()
	return idx, nil
}

func buildTenantIndex(products []catalog.Product, builtAt time.Time) *tenantIndex {
	idx := &tenantIndex{
		products: products,
		tokens:   make(map[string][]int),
		skus:     make(map[string]int),
		builtAt:  builtAt,
	}
	for i, p := range products {
		for _, tok := range Tokenize(p.Name) {
			idx.tokens[tok] = append(idx.tokens[tok], i)
			// Index the singular form too, so a plural catalog name still
			// answers a singular mention.
			if s := singularize(tok); s != tok {
				idx.tokens[s] = append(idx.tokens[s], i)
			}
		}
		if sku := NormalizeText(p.SKU); sku != "" {
			idx.skus[sku] = i
		}
	}
	return idx
}

// candidates returns positions of products sharing at least one token with
// the message.
func (idx *tenantIndex) candidates(messageTokens []string) []int {
	seen := make(map[int]struct{})
	var out []int
	add := func(pos int) {
		if _, dup := seen[pos]; !dup {
			seen[pos] = struct{}{}
			out = append(out, pos)
		}
	}
	for _, tok := range messageTokens {
		for _, key := range []string{tok, singularize(tok)} {
			for _, pos := range idx.tokens[key] {
				add(pos)
			}
			if pos, ok := idx.skus[key]; ok {
				add(pos)
			}
		}
	}
	return out
}

// Tokenize splits normalized text into lowercase tokens, keeping those
// longer than two characters. Digits stay so SKUs survive.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(NormalizeText(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	var out []string
	for _, f := range fields {
		f = strings.Trim(f, "-")
		if len(f) > 2 {
			out = append(out, f)
		}
	}
	return out
}

// singularize trims a plural "s"/"x" so "poulets" indexes with "poulet".
func singularize(token string) string {
	if len(token) > 3 && (strings.HasSuffix(token, "s") || strings.HasSuffix(token, "x")) {
		return token[:len(token)-1]
	}
	return token
}
