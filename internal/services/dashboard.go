package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/prathap-k00/expense-tracker/internal/cache"
	"github.com/prathap-k00/expense-tracker/internal/core"
	"github.com/prathap-k00/expense-tracker/internal/insights"
)

// Overview is everything the dashboard shows for one user and month.
type Overview struct {
	Period    core.Period
	Totals    core.MonthTotals
	Breakdown []core.CategoryAmount
	Trend     []insights.TrendPoint
	Flow      []insights.MonthFlow
	Insights  []insights.Advisory
	Budget    *core.BudgetStatus // nil when no budget is set for the month
}

// ComputeTimeout bounds a shared overview computation once it no longer
// follows the context of the request that started it.
const ComputeTimeout = 30 * time.Second

// DashboardService computes overviews concurrently and caches them per user and month.
type DashboardService struct {
	store   insights.AggregateReader
	engine  *insights.Engine
	cache   cache.Cache[Overview]
	group   singleflight.Group
	months  int
	timeout time.Duration

	// mu guards gens; a user's generation moves on every Invalidate.
	mu   sync.Mutex
	gens map[int64]uint64
}

func NewDashboardService(store insights.AggregateReader, c cache.Cache[Overview], opts ...insights.Option) *DashboardService {
	return &DashboardService{
		store:   store,
		engine:  insights.NewEngine(store, opts...),
		cache:   c,
		months:  insights.DefaultMonths,
		timeout: ComputeTimeout,
		gens:    make(map[int64]uint64),
	}
}

// Engine exposes the insights engine backing the dashboard.
func (s *DashboardService) Engine() *insights.Engine {
	return s.engine
}

func overviewKey(userID int64, p core.Period) string {
	return fmt.Sprintf("%s%s", overviewPrefix(userID), p.Key())
}

func overviewPrefix(userID int64) string {
	return fmt.Sprintf("overview:%d:", userID)
}

// Overview returns the dashboard for the month containing ref.
// Concurrent requests for the same key share one computation; failures are not cached.
// A caller whose ctx ends gets ctx.Err() while the others keep waiting on the result.
func (s *DashboardService) Overview(ctx context.Context, userID int64, ref time.Time) (Overview, error) {
	p := core.PeriodOf(ref)
	key := overviewKey(userID, p)
	if s.cache != nil {
		if ov, ok := s.cache.Get(key); ok {
			return ov, nil
		}
	}

	gen := s.generation(userID)
	ch := s.group.DoChan(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		ov, err := s.compute(cctx, userID, ref)
		if err != nil {
			return Overview{}, err
		}
		s.remember(userID, gen, key, ov)
		return ov, nil
	})

	select {
	case <-ctx.Done():
		return Overview{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Overview{}, res.Err
		}
		return res.Val.(Overview), nil
	}
}

func (s *DashboardService) generation(userID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[userID]
}

// remember caches ov unless the user was invalidated after its computation started.
func (s *DashboardService) remember(userID int64, gen uint64, key string, ov Overview) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[userID] == gen {
		s.cache.Set(key, ov)
	}
}

func (s *DashboardService) compute(ctx context.Context, userID int64, ref time.Time) (Overview, error) {
	ov := Overview{Period: core.PeriodOf(ref)}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		t, err := s.engine.MonthTotals(gctx, userID, ref)
		ov.Totals = t
		return err
	})
	g.Go(func() error {
		b, err := s.engine.CategoryBreakdown(gctx, userID, ref)
		ov.Breakdown = b
		return err
	})
	g.Go(func() error {
		t, err := s.engine.Trend(gctx, userID, ref, s.months)
		ov.Trend = t
		return err
	})
	g.Go(func() error {
		f, err := s.engine.IncomeVsExpense(gctx, userID, ref, s.months)
		ov.Flow = f
		return err
	})
	g.Go(func() error {
		a, err := s.engine.Insights(gctx, userID, ref)
		ov.Insights = a
		return err
	})

	var budget *core.Budget
	g.Go(func() error {
		b, err := s.store.FindBudget(gctx, userID, ov.Period)
		if err != nil {
			return fmt.Errorf("%w: budget for %s: %w", insights.ErrDataUnavailable, ov.Period, err)
		}
		budget = b
		return nil
	})

	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	if budget != nil {
		st := core.NewBudgetStatus(*budget, ov.Totals.Expense)
		ov.Budget = &st
	}
	return ov, nil
}

// Invalidate drops every cached month of the user. Computations already
// running finish for their callers but are no longer cached or shared.
func (s *DashboardService) Invalidate(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[userID]++
	if s.cache != nil {
		s.cache.DeletePrefix(overviewPrefix(userID))
	}
}
