package domain

import "time"

// MarketSnapshot is an immutable view of sector conditions used by pricing.
// VolatilityBps100 is the volatility index in hundredths, centered at 100
// (107 means 1.07). Kept integer so premium math never touches floats.
type MarketSnapshot struct {
	VolatilityBps100 int64     `json:"volatility_bps100"`
	SectorSentiment  string    `json:"sector_sentiment"`
	Regulatory       string    `json:"regulatory"`
	FetchedAt        time.Time `json:"fetched_at"`
}

// UtilizationSnapshot is the outstanding-coverage / available-liquidity
// ratio as an integer percentage.
type UtilizationSnapshot struct {
	Percent   int64     `json:"percent"`
	FetchedAt time.Time `json:"fetched_at"`
}
