package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herbmanager/backend/internal/domain"
)

type countingSource struct {
	calls int
	err   error
}

func (s *countingSource) GetStatistics(_ context.Context, query domain.StatisticsQuery) (*domain.Statistics, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Statistics{Year: query.Year}, nil
}

// writingSource simulates a write that lands while a snapshot is being
// computed.
type writingSource struct {
	dashboard *Dashboard
	calls     int
}

func (s *writingSource) GetStatistics(ctx context.Context, query domain.StatisticsQuery) (*domain.Statistics, error) {
	s.calls++
	if s.calls == 1 {
		s.dashboard.Invalidate(ctx)
	}
	return &domain.Statistics{Year: query.Year}, nil
}

type mapCache struct {
	entries     map[string]*domain.Statistics
	invalidated int
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]*domain.Statistics)}
}

func (c *mapCache) Get(_ context.Context, key string) (*domain.Statistics, bool, error) {
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value *domain.Statistics, _ time.Duration) error {
	c.entries[key] = value
	return nil
}

func (c *mapCache) Invalidate(_ context.Context) error {
	c.invalidated++
	clear(c.entries)
	return nil
}

func TestDashboardServesFromCacheUntilInvalidated(t *testing.T) {
	source := &countingSource{}
	c := newMapCache()
	d := NewDashboard(source, c, time.Minute)
	ctx := context.Background()

	for range 3 {
		got, err := d.Get(ctx, domain.StatisticsQuery{Year: 2025})
		require.NoError(t, err)
		assert.Equal(t, 2025, got.Year)
	}
	assert.Equal(t, 1, source.calls)

	d.Invalidate(ctx)
	_, err := d.Get(ctx, domain.StatisticsQuery{Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
	assert.Equal(t, 1, c.invalidated)
}

func TestDashboardKeysByProduct(t *testing.T) {
	productID := int64(4)
	assert.Equal(t, "y2024:all", buildCacheKey(domain.StatisticsQuery{Year: 2024}))
	assert.Equal(t, "y2024:p4", buildCacheKey(domain.StatisticsQuery{Year: 2024, ProductID: &productID}))
}

func TestDashboardDoesNotCacheFailures(t *testing.T) {
	source := &countingSource{err: errors.New("boom")}
	c := newMapCache()
	d := NewDashboard(source, c, time.Minute)

	_, err := d.Get(context.Background(), domain.StatisticsQuery{Year: 2025})
	require.Error(t, err)
	assert.Empty(t, c.entries)
}

func TestDashboardSkipsSnapshotOverlappingInvalidate(t *testing.T) {
	source := &writingSource{}
	c := newMapCache()
	d := NewDashboard(source, c, time.Minute)
	source.dashboard = d
	ctx := context.Background()

	got, err := d.Get(ctx, domain.StatisticsQuery{Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, 2025, got.Year)
	assert.Empty(t, c.entries)

	_, err = d.Get(ctx, domain.StatisticsQuery{Year: 2025})
	require.NoError(t, err)
	assert.Contains(t, c.entries, "y2025:all")
	assert.Equal(t, 2, source.calls)
}
