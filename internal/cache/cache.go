package cache

import (
	"context"
	"time"

	"herbmanager/backend/internal/domain"
)

// StatisticsCache holds computed dashboard snapshots keyed by query.
// Invalidate drops every snapshot after a write that changes invoice data.
type StatisticsCache interface {
	Get(ctx context.Context, key string) (*domain.Statistics, bool, error)
	Set(ctx context.Context, key string, value *domain.Statistics, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopStatisticsCache struct{}

func (NoopStatisticsCache) Get(_ context.Context, _ string) (*domain.Statistics, bool, error) {
	return nil, false, nil
}

func (NoopStatisticsCache) Set(_ context.Context, _ string, _ *domain.Statistics, _ time.Duration) error {
	return nil
}

func (NoopStatisticsCache) Invalidate(_ context.Context) error {
	return nil
}
