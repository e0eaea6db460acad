package analysis

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// QuantityConfig bounds extracted quantities and the pattern cache.
type QuantityConfig struct {
	Min      int
	Max      int
	CacheCap int
}

const (
	defaultMinQuantity = 1
	defaultMaxQuantity = 100
	defaultCacheCap    = 256

	// Character window around the product anchor token inside which
	// quantity expressions are honored.
	windowBefore = 40
	windowAfter  = 15
)

// QuantityExtractor resolves how many units of a product a message asks
// for. Compiled digit patterns are cached per anchor word; the cache is
// bulk-evicted when it outgrows its cap.
type QuantityExtractor struct {
	cfg QuantityConfig

	mu    sync.Mutex
	cache map[string]*regexp.Regexp
}

// NewQuantityExtractor builds an extractor with the given bounds.
func NewQuantityExtractor(cfg QuantityConfig) *QuantityExtractor {
	if cfg.Min <= 0 {
		cfg.Min = defaultMinQuantity
	}
	if cfg.Max < cfg.Min {
		cfg.Max = defaultMaxQuantity
	}
	if cfg.CacheCap <= 0 {
		cfg.CacheCap = defaultCacheCap
	}
	return &QuantityExtractor{
		cfg:   cfg,
		cache: make(map[string]*regexp.Regexp),
	}
}

// Extract returns the requested quantity for the product whose first name
// token is anchor, searching vague phrases, then number words, then digit
// patterns. Values are clamped to [Min, Max]; Min is the default when
// nothing matches.
func (e *QuantityExtractor) Extract(normalized, anchor string) int {
	if anchor == "" {
		return e.cfg.Min
	}
	idx := strings.Index(normalized, anchor)
	if idx < 0 {
		return e.cfg.Min
	}

	start := idx - windowBefore
	if start < 0 {
		start = 0
	}
	end := idx + len(anchor) + windowAfter
	if end > len(normalized) {
		end = len(normalized)
	}
	window := normalized[start:end]

	for _, vq := range vagueQuantities {
		if strings.Contains(window, vq.phrase) {
			return e.clamp(vq.value)
		}
	}

	for _, word := range strings.Fields(window) {
		if v, ok := NumberWordValue(word); ok {
			return e.clamp(v)
		}
	}

	if m := e.digitPattern(anchor).FindStringSubmatch(window); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return e.clamp(v)
		}
	}

	return e.cfg.Min
}

// digitPattern returns the compiled "N <product>" / "N x <product>" pattern
// for the anchor, building and caching it on first use.
func (e *QuantityExtractor) digitPattern(anchor string) *regexp.Regexp {
	e.mu.Lock()
	defer e.mu.Unlock()

	if re, ok := e.cache[anchor]; ok {
		return re
	}
	if len(e.cache) >= e.cfg.CacheCap {
		// Bulk eviction: the cache is tiny per tenant but unbounded
		// catalogs must not grow it forever.
		e.cache = make(map[string]*regexp.Regexp)
	}
	re := regexp.MustCompile(`\b(\d+)\s*(?:x\s*)?` + regexp.QuoteMeta(anchor))
	e.cache[anchor] = re
	return re
}

// CacheSize reports how many compiled patterns are held, for tests.
func (e *QuantityExtractor) CacheSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cache)
}

func (e *QuantityExtractor) clamp(v int) int {
	if v < e.cfg.Min {
		return e.cfg.Min
	}
	if v > e.cfg.Max {
		return e.cfg.Max
	}
	return v
}
