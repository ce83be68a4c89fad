package sweeper

import (
	"context"
	"log"
	"time"

	"bioshield/internal/usecase"
)

// Intervals carries the tick periods for the background loops. Zero
// values fall back to the production defaults.
type Intervals struct {
	Expiry      time.Duration
	Market      time.Duration
	Utilization time.Duration
}

func (i Intervals) withDefaults() Intervals {
	if i.Expiry <= 0 {
		i.Expiry = time.Hour
	}
	if i.Market <= 0 {
		i.Market = 6 * time.Hour
	}
	if i.Utilization <= 0 {
		i.Utilization = 10 * time.Minute
	}
	return i
}

// Run drives the periodic maintenance loops: the hourly coverage expiry
// sweep, the market snapshot refresh, and the pool utilization refresh.
// It blocks until ctx is cancelled.
func Run(ctx context.Context, sweep *usecase.ExpirySweeper, market *usecase.MarketFeed, utilization *usecase.UtilizationFeed, intervals Intervals) {
	intervals = intervals.withDefaults()

	go loop(ctx, intervals.Expiry, func(ctx context.Context) {
		result, err := sweep.Sweep(ctx)
		if err != nil {
			log.Printf("expiry sweep failed: %v", err)
			return
		}
		if result.Expired > 0 || result.Expiring > 0 {
			log.Printf("expiry sweep: expired=%d expiring=%d", result.Expired, result.Expiring)
		}
	})

	go loop(ctx, intervals.Market, func(ctx context.Context) {
		if _, err := market.Refresh(ctx); err != nil {
			log.Printf("market refresh failed: %v", err)
		}
	})

	go loop(ctx, intervals.Utilization, func(ctx context.Context) {
		if _, err := utilization.Refresh(ctx); err != nil {
			log.Printf("utilization refresh failed: %v", err)
		}
	})

	<-ctx.Done()
}

func loop(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	// One pass before the first tick.
	fn(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}
