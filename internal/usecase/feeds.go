package usecase

import (
	"context"
	"encoding/json"
	"time"

	"bioshield/internal/domain"
)

const (
	marketCacheKey      = "market:conditions"
	utilizationCacheKey = "pool:utilization"

	marketCacheTTL      = 6 * time.Hour
	utilizationCacheTTL = 10 * time.Minute
)

// MarketFeed serves the latest market snapshot from cache and refreshes it
// from the upstream source. Reads tolerate staleness up to the TTL and
// never block on a refresh already in flight elsewhere.
type MarketFeed struct {
	Source MarketDataSource
	Cache  Cache
	Clock  Clock
}

func (f *MarketFeed) Snapshot(ctx context.Context) (domain.MarketSnapshot, error) {
	if f.Cache != nil {
		if raw, ok, err := f.Cache.Get(ctx, marketCacheKey); err == nil && ok {
			var snap domain.MarketSnapshot
			if err := json.Unmarshal(raw, &snap); err == nil {
				return snap, nil
			}
		}
	}
	return f.Refresh(ctx)
}

func (f *MarketFeed) Refresh(ctx context.Context) (domain.MarketSnapshot, error) {
	snap, err := f.Source.Fetch(ctx)
	if err != nil {
		return domain.MarketSnapshot{}, err
	}
	if snap.VolatilityBps100 <= 0 {
		snap.VolatilityBps100 = 100
	}
	snap.FetchedAt = f.now()
	if f.Cache != nil {
		if raw, err := json.Marshal(snap); err == nil {
			_ = f.Cache.Set(ctx, marketCacheKey, raw, marketCacheTTL)
		}
	}
	return snap, nil
}

func (f *MarketFeed) now() time.Time {
	if f.Clock != nil {
		return f.Clock().UTC()
	}
	return time.Now().UTC()
}

// UtilizationFeed derives pool utilization from on-chain pool aggregates.
type UtilizationFeed struct {
	Chain ChainClient
	Cache Cache
	Clock Clock
}

func (f *UtilizationFeed) Snapshot(ctx context.Context) (domain.UtilizationSnapshot, error) {
	if f.Cache != nil {
		if raw, ok, err := f.Cache.Get(ctx, utilizationCacheKey); err == nil && ok {
			var snap domain.UtilizationSnapshot
			if err := json.Unmarshal(raw, &snap); err == nil {
				return snap, nil
			}
		}
	}
	return f.Refresh(ctx)
}

func (f *UtilizationFeed) Refresh(ctx context.Context) (domain.UtilizationSnapshot, error) {
	pool, err := f.Chain.GetPoolData(ctx)
	if err != nil {
		return domain.UtilizationSnapshot{}, err
	}
	snap := domain.UtilizationSnapshot{FetchedAt: f.now()}
	if pool.TotalLiquidity > 0 {
		snap.Percent = pool.TotalCoverage * 100 / pool.TotalLiquidity
	}
	if f.Cache != nil {
		if raw, err := json.Marshal(snap); err == nil {
			_ = f.Cache.Set(ctx, utilizationCacheKey, raw, utilizationCacheTTL)
		}
	}
	return snap, nil
}

func (f *UtilizationFeed) now() time.Time {
	if f.Clock != nil {
		return f.Clock().UTC()
	}
	return time.Now().UTC()
}
