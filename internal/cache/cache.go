package cache

import (
	"context"
	"time"

	"zooops/backend/internal/domain"
)

// RevenueCache holds computed revenue reports for windows that have fully
// elapsed, so repeated report reads skip the aggregate queries.
type RevenueCache interface {
	Get(ctx context.Context, key string) (*domain.RevenueReport, bool, error)
	Set(ctx context.Context, key string, report *domain.RevenueReport, ttl time.Duration) error
}

type NoopRevenueCache struct{}

func (NoopRevenueCache) Get(_ context.Context, _ string) (*domain.RevenueReport, bool, error) {
	return nil, false, nil
}

func (NoopRevenueCache) Set(_ context.Context, _ string, _ *domain.RevenueReport, _ time.Duration) error {
	return nil
}
