package usecase

import (
	"context"
	"log"
	"time"

	"bioshield/internal/domain"
)

const (
	expiryAdvisoryWindow = 24 * time.Hour

	// expiryAdvisoryTTL outlives the advisory window so a coverage is
	// advised once, not on every sweep of its final day.
	expiryAdvisoryTTL = expiryAdvisoryWindow + time.Hour
)

func expiryAdvisoryCacheKey(coverageID string) string {
	return "expiring:" + coverageID
}

// ExpirySweeper terminates coverages whose window has closed and raises an
// advisory for those closing within the next 24 hours. It is invoked by a
// timer but carries no timer state itself.
type ExpirySweeper struct {
	Coverages CoverageRepository
	Cache     Cache
	Events    EventPublisher
	Clock     Clock
}

type SweepResult struct {
	Expired  int
	Expiring int
}

func (s *ExpirySweeper) Sweep(ctx context.Context) (SweepResult, error) {
	now := s.now()

	expired, err := s.Coverages.MarkExpired(ctx, now)
	if err != nil {
		return SweepResult{}, err
	}
	for _, coverage := range expired {
		s.invalidate(ctx, coverageCacheKey(coverage.ID))
		s.invalidate(ctx, ownerCoveragesCacheKey(coverage.OwnerID))
	}

	expiring, err := s.Coverages.ListExpiring(ctx, now, now.Add(expiryAdvisoryWindow))
	if err != nil {
		return SweepResult{}, err
	}
	advised := 0
	for _, coverage := range expiring {
		if s.alreadyAdvised(ctx, coverage.ID) {
			continue
		}
		s.publish(ctx, domain.Event{
			Type:       domain.EventCoverageExpiring,
			CoverageID: coverage.ID,
			OwnerID:    coverage.OwnerID,
			Payload: map[string]any{
				"end_at": coverage.EndAt.UTC().Format(time.RFC3339),
			},
			OccurredAt: now,
		})
		advised++
	}

	return SweepResult{Expired: len(expired), Expiring: advised}, nil
}

// alreadyAdvised marks the coverage on first sight; a cache miss or cache
// error means the advisory goes out.
func (s *ExpirySweeper) alreadyAdvised(ctx context.Context, coverageID string) bool {
	if s.Cache == nil {
		return false
	}
	key := expiryAdvisoryCacheKey(coverageID)
	if _, ok, err := s.Cache.Get(ctx, key); err == nil && ok {
		return true
	}
	if err := s.Cache.Set(ctx, key, []byte("1"), expiryAdvisoryTTL); err != nil {
		log.Printf("cache set %s failed: %v", key, err)
	}
	return false
}

func (s *ExpirySweeper) publish(ctx context.Context, event domain.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, event); err != nil {
		log.Printf("publish %s failed: %v", event.Type, err)
	}
}

func (s *ExpirySweeper) invalidate(ctx context.Context, key string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, key); err != nil {
		log.Printf("cache invalidate %s failed: %v", key, err)
	}
}

func (s *ExpirySweeper) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}
