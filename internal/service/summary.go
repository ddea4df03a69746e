package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"equilo/internal/cache"
	"equilo/internal/core"
	"equilo/internal/metrics"
	"equilo/internal/period"
	"equilo/internal/settle"
	"equilo/internal/storage"
)

// SummaryService resolves reporting windows and computes settlement
// summaries, memoizing results per place, viewer and window.
type SummaryService struct {
	store storage.Store
	cache *cache.LRUCache[core.Summary]
	now   func() time.Time
}

func NewSummaryService(store storage.Store, c *cache.LRUCache[core.Summary]) *SummaryService {
	return &SummaryService{store: store, cache: c, now: time.Now}
}

// Summarize computes the viewer's settlement summary for the window
// selected by kind, weekStart and the optional anchor end date. The
// current and previous windows load concurrently.
func (s *SummaryService) Summarize(ctx context.Context, placeID, viewerID int64, kind period.Kind, weekStart period.WeekStart, anchorEnd *core.Date) (core.Summary, error) {
	if err := s.requireMember(ctx, placeID, viewerID); err != nil {
		return core.Summary{}, err
	}

	today := core.DateOf(s.now())
	r := period.Resolve(kind, weekStart, anchorEnd, today)

	key := s.cacheKey(placeID, viewerID, r)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			metrics.SummaryCacheHits.WithLabelValues("hit").Inc()
			// CanAdvance depends on today, not on the ledger.
			cached.CanAdvance = period.CanAdvance(r, today)
			return cached, nil
		}
		metrics.SummaryCacheHits.WithLabelValues("miss").Inc()
	}

	var current, previous []core.Expense
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.store.ExpensesInRange(gctx, placeID, r)
		return err
	})
	g.Go(func() error {
		var err error
		previous, err = s.store.ExpensesInRange(gctx, placeID, period.Previous(r))
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Summary{}, fmt.Errorf("load expenses: %w", err)
	}

	summary := settle.Summarize(r, current, previous, viewerID)
	summary.CanAdvance = period.CanAdvance(r, today)

	if s.cache != nil {
		s.cache.Set(key, summary)
	}
	return summary, nil
}

// Invalidate drops every cached summary of a place. Called after any
// expense write.
func (s *SummaryService) Invalidate(placeID int64) {
	if s.cache != nil {
		s.cache.DeletePrefix(fmt.Sprintf("place:%d:", placeID))
	}
}

func (s *SummaryService) cacheKey(placeID, viewerID int64, r core.PeriodRange) string {
	return fmt.Sprintf("place:%d:viewer:%d:%s:%s", placeID, viewerID, r.From, r.To)
}

func (s *SummaryService) requireMember(ctx context.Context, placeID, viewerID int64) error {
	if _, err := s.store.GetPlace(ctx, placeID); err != nil {
		return err
	}
	ok, err := s.store.IsMember(ctx, placeID, viewerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}
