package currency

import (
	"context"
	"time"

	"fintrack/internal/cache"
)

// CachedProvider keeps successful tables per base currency for a TTL.
// Fallback tables are never stored so a recovered service is picked up
// on the next request.
type CachedProvider struct {
	next  Provider
	cache *cache.LRUCache[RateTable]
}

const maxCachedBases = 64

func NewCachedProvider(next Provider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		next:  next,
		cache: cache.NewLRUCache[RateTable](maxCachedBases, ttl),
	}
}

func (p *CachedProvider) FetchRates(ctx context.Context, base string) RateTable {
	if t, ok := p.cache.Get(base); ok {
		return t.clone()
	}
	t := p.next.FetchRates(ctx, base)
	if !t.Fallback {
		p.cache.Set(base, t.clone())
	}
	return t
}

// Cache exposes the underlying store so it can be registered for cleanup.
func (p *CachedProvider) Cache() *cache.LRUCache[RateTable] {
	return p.cache
}
