package oracle

import (
	"context"
	"time"

	"bioshield/internal/domain"
	"bioshield/internal/usecase"
)

// MarketSource reads aggregated market conditions from the oracle
// service. Volatility arrives as an index in hundredths (107 == 1.07).
type MarketSource struct {
	client *Client
	clock  func() time.Time
}

func NewMarketSource(client *Client) *MarketSource {
	return &MarketSource{client: client, clock: time.Now}
}

func (s *MarketSource) Fetch(ctx context.Context) (domain.MarketSnapshot, error) {
	var resp struct {
		VolatilityBps100 int64  `json:"volatility_index"`
		SectorSentiment  string `json:"sector_sentiment"`
		Regulatory       string `json:"regulatory_climate"`
	}
	if err := s.client.get(ctx, "/v1/market", &resp); err != nil {
		return domain.MarketSnapshot{}, err
	}
	snap := domain.MarketSnapshot{
		VolatilityBps100: resp.VolatilityBps100,
		SectorSentiment:  resp.SectorSentiment,
		Regulatory:       resp.Regulatory,
		FetchedAt:        s.clock(),
	}
	if snap.VolatilityBps100 <= 0 {
		snap.VolatilityBps100 = 100
	}
	return snap, nil
}

var _ usecase.MarketDataSource = (*MarketSource)(nil)
