package stats

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"herbmanager/backend/internal/cache"
	"herbmanager/backend/internal/domain"
)

type Source interface {
	GetStatistics(ctx context.Context, query domain.StatisticsQuery) (*domain.Statistics, error)
}

// Dashboard serves yearly statistics, keeping computed snapshots in a cache
// until the next invoice or ledger write.
type Dashboard struct {
	source   Source
	cache    cache.StatisticsCache
	cacheTTL time.Duration

	// generation is bumped by every Invalidate. A snapshot computed under an
	// older generation is returned but not stored.
	mu         sync.Mutex
	generation uint64
}

func NewDashboard(source Source, cacheStore cache.StatisticsCache, cacheTTL time.Duration) *Dashboard {
	if cacheStore == nil {
		cacheStore = cache.NoopStatisticsCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	return &Dashboard{
		source:   source,
		cache:    cacheStore,
		cacheTTL: cacheTTL,
	}
}

func (d *Dashboard) Get(ctx context.Context, query domain.StatisticsQuery) (*domain.Statistics, error) {
	key := buildCacheKey(query)
	if cached, ok, err := d.cache.Get(ctx, key); err == nil && ok {
		return cached, nil
	} else if err != nil {
		log.Printf("[stats] WARN: cache read failed key=%s: %v", key, err)
	}

	d.mu.Lock()
	started := d.generation
	d.mu.Unlock()

	computed, err := d.source.GetStatistics(ctx, query)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.generation != started {
		return computed, nil
	}
	if err := d.cache.Set(ctx, key, computed, d.cacheTTL); err != nil {
		log.Printf("[stats] WARN: cache write failed key=%s: %v", key, err)
	}
	return computed, nil
}

// Invalidate drops cached snapshots. Failures are logged only; the next
// write or the TTL clears a stale entry.
func (d *Dashboard) Invalidate(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.generation++
	if err := d.cache.Invalidate(ctx); err != nil {
		log.Printf("[stats] WARN: cache invalidation failed: %v", err)
	}
}

func buildCacheKey(query domain.StatisticsQuery) string {
	if query.ProductID == nil {
		return fmt.Sprintf("y%d:all", query.Year)
	}
	return fmt.Sprintf("y%d:p%d", query.Year, *query.ProductID)
}
