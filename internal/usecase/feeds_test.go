package usecase

import (
	"context"
	"testing"
	"time"

	"bioshield/internal/domain"
)

func TestMarketFeedCachesSnapshot(t *testing.T) {
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	source := &staticMarket{snapshot: domain.MarketSnapshot{VolatilityBps100: 107, SectorSentiment: "bearish"}}
	cache := newMemCache()
	feed := &MarketFeed{Source: source, Cache: cache, Clock: fixedClock(now)}

	snap, err := feed.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.VolatilityBps100 != 107 || snap.FetchedAt != now {
		t.Fatalf("snapshot = %+v", snap)
	}

	if _, err := feed.Snapshot(context.Background()); err != nil {
		t.Fatalf("second snapshot: %v", err)
	}
	if source.fetches != 1 {
		t.Fatalf("fetches = %d, want 1 (second read served from cache)", source.fetches)
	}
}

func TestMarketFeedDefaultsVolatility(t *testing.T) {
	source := &staticMarket{snapshot: domain.MarketSnapshot{VolatilityBps100: 0}}
	feed := &MarketFeed{Source: source}

	snap, err := feed.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if snap.VolatilityBps100 != 100 {
		t.Fatalf("volatility = %d, want neutral 100", snap.VolatilityBps100)
	}
}

func TestUtilizationFeedComputesPercent(t *testing.T) {
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	chain := &fakeChain{pool: PoolData{TotalCoverage: 850, TotalLiquidity: 1_000}}
	feed := &UtilizationFeed{Chain: chain, Cache: newMemCache(), Clock: fixedClock(now)}

	snap, err := feed.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Percent != 85 {
		t.Fatalf("percent = %d, want 85", snap.Percent)
	}
}

func TestUtilizationFeedZeroLiquidity(t *testing.T) {
	chain := &fakeChain{pool: PoolData{TotalCoverage: 100, TotalLiquidity: 0}}
	feed := &UtilizationFeed{Chain: chain}

	snap, err := feed.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if snap.Percent != 0 {
		t.Fatalf("percent = %d, want 0", snap.Percent)
	}
}
