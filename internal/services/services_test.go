package services

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prathap-k00/expense-tracker/internal/cache"
	"github.com/prathap-k00/expense-tracker/internal/core"
	"github.com/prathap-k00/expense-tracker/internal/insights"
	"github.com/prathap-k00/expense-tracker/internal/reports"
	"github.com/prathap-k00/expense-tracker/internal/sheets/memory"
	"github.com/prathap-k00/expense-tracker/internal/storage"
)

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "tracker.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newUser(t *testing.T, repo *storage.SQLiteRepository, email string) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{Name: "Test User", Email: email, PasswordHash: "x"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

type countingInvalidator struct {
	calls map[int64]int
}

func (c *countingInvalidator) Invalidate(userID int64) {
	if c.calls == nil {
		c.calls = map[int64]int{}
	}
	c.calls[userID]++
}

func TestCategoryService(t *testing.T) {
	repo := newTestRepo(t)
	inv := &countingInvalidator{}
	svc := NewCategoryService(repo, inv)
	ctx := context.Background()
	u := newUser(t, repo, "cat@example.com")

	if _, err := svc.Create(ctx, u.ID, core.CategoryInput{Name: "F"}); err == nil {
		t.Fatalf("expected validation error for short name")
	}
	c, err := svc.Create(ctx, u.ID, core.CategoryInput{Name: "  Food "})
	if err != nil || c.Name != "Food" {
		t.Fatalf("Create = %+v, %v", c, err)
	}
	if _, err := svc.Create(ctx, u.ID, core.CategoryInput{Name: "Food"}); !errors.Is(err, core.ErrCategoryExists) {
		t.Fatalf("expected ErrCategoryExists, got %v", err)
	}

	list, err := svc.List(ctx, u.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %v, %v", list, err)
	}

	other := newUser(t, repo, "other@example.com")
	if _, err := svc.Delete(ctx, other.ID, c.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("deleting another user's category: %v", err)
	}
	deleted, err := svc.Delete(ctx, u.ID, c.ID)
	if err != nil || deleted.Name != "Food" {
		t.Fatalf("Delete = %+v, %v", deleted, err)
	}
	if inv.calls[u.ID] != 2 || inv.calls[other.ID] != 0 {
		t.Fatalf("invalidations = %v", inv.calls)
	}
}

func TestExpenseServiceChecksCategoryOwnership(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	owner := newUser(t, repo, "owner@example.com")
	intruder := newUser(t, repo, "intruder@example.com")

	cats := NewCategoryService(repo, nil)
	food, err := cats.Create(ctx, owner.ID, core.CategoryInput{Name: "Food"})
	if err != nil {
		t.Fatalf("Create category: %v", err)
	}

	svc := NewExpenseService(repo, nil)
	in := core.ExpenseInput{Amount: "250.50", CategoryID: itoa(food.ID), Date: "2024-03-05", Description: "Lunch"}

	_, err = svc.Create(ctx, intruder.ID, in)
	var verr core.ValidationErrors
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for foreign category, got %v", err)
	}

	has, err := svc.HasCategories(ctx, intruder.ID)
	if err != nil || has {
		t.Fatalf("HasCategories(intruder) = %v, %v", has, err)
	}

	e, err := svc.Create(ctx, owner.ID, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if e.Amount.Cents != 25050 || e.CategoryName != "Food" {
		t.Fatalf("unexpected expense %+v", e)
	}

	in.Amount = "300"
	updated, err := svc.Update(ctx, owner.ID, e.ID, in)
	if err != nil || updated.Amount.Cents != 30000 {
		t.Fatalf("Update = %+v, %v", updated, err)
	}
	if _, err := svc.Update(ctx, intruder.ID, e.ID, in); err == nil {
		t.Fatalf("intruder update should fail")
	}

	list, page, err := svc.List(ctx, owner.ID, storage.ExpenseFilter{}, 1)
	if err != nil || len(list) != 1 || page.Total != 1 {
		t.Fatalf("List = %v, %+v, %v", list, page, err)
	}

	if err := svc.Delete(ctx, intruder.ID, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("intruder delete: %v", err)
	}
	if err := svc.Delete(ctx, owner.ID, e.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestIncomeAndBudgetServices(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newUser(t, repo, "money@example.com")
	inv := &countingInvalidator{}

	income := NewIncomeService(repo, inv)
	inc, err := income.Create(ctx, u.ID, core.IncomeInput{Amount: "50000", Date: "2024-03-01"})
	if err != nil || inc.Source != core.DefaultIncomeSource {
		t.Fatalf("Create income = %+v, %v", inc, err)
	}
	if _, err := income.Create(ctx, u.ID, core.IncomeInput{Amount: "-1", Date: "2024-03-01"}); err == nil {
		t.Fatalf("negative income should be rejected")
	}
	list, _, err := income.List(ctx, u.ID, 1)
	if err != nil || len(list) != 1 {
		t.Fatalf("List income = %v, %v", list, err)
	}

	budgets := NewBudgetService(repo, inv)
	if _, updated, err := budgets.Set(ctx, u.ID, core.BudgetInput{Amount: "30000", Month: "3", Year: "2024"}); err != nil || updated {
		t.Fatalf("Set = updated %v, %v", updated, err)
	}
	b, updated, err := budgets.Set(ctx, u.ID, core.BudgetInput{Amount: "35000", Month: "3", Year: "2024"})
	if err != nil || !updated || b.Amount.Cents != 3500000 {
		t.Fatalf("Set replace = %+v updated %v, %v", b, updated, err)
	}
	recent, err := budgets.Recent(ctx, u.ID)
	if err != nil || len(recent) != 1 || recent[0].Budget.Amount.Cents != 3500000 {
		t.Fatalf("Recent = %+v, %v", recent, err)
	}
	if inv.calls[u.ID] != 3 {
		t.Fatalf("invalidations = %d, want 3", inv.calls[u.ID])
	}
}

// countingReader counts aggregate reads to observe caching.
type countingReader struct {
	insights.AggregateReader
	sums atomic.Int64
}

func (c *countingReader) SumAmount(ctx context.Context, kind core.EntryKind, userID int64, p core.Period) (core.Money, error) {
	c.sums.Add(1)
	return c.AggregateReader.SumAmount(ctx, kind, userID, p)
}

func seedMonth(t *testing.T, repo *storage.SQLiteRepository, userID int64) {
	t.Helper()
	ctx := context.Background()
	cats := NewCategoryService(repo, nil)
	exp := NewExpenseService(repo, nil)
	inc := NewIncomeService(repo, nil)

	food, err := cats.Create(ctx, userID, core.CategoryInput{Name: "Food"})
	if err != nil {
		t.Fatalf("category: %v", err)
	}
	rent, err := cats.Create(ctx, userID, core.CategoryInput{Name: "Rent"})
	if err != nil {
		t.Fatalf("category: %v", err)
	}
	for _, in := range []core.ExpenseInput{
		{Amount: "1000", CategoryID: itoa(food.ID), Date: "2024-02-10"},
		{Amount: "3000", CategoryID: itoa(food.ID), Date: "2024-03-02", Description: "Groceries"},
		{Amount: "2000", CategoryID: itoa(rent.ID), Date: "2024-03-01", Description: "March rent"},
	} {
		if _, err := exp.Create(ctx, userID, in); err != nil {
			t.Fatalf("expense: %v", err)
		}
	}
	if _, err := inc.Create(ctx, userID, core.IncomeInput{Amount: "10000", Date: "2024-03-01"}); err != nil {
		t.Fatalf("income: %v", err)
	}
}

func TestDashboardOverview(t *testing.T) {
	repo := newTestRepo(t)
	u := newUser(t, repo, "dash@example.com")
	seedMonth(t, repo, u.ID)

	reader := &countingReader{AggregateReader: repo}
	lru := cache.NewLRUCache[Overview](10, time.Minute)
	svc := NewDashboardService(reader, lru)
	ref := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	ov, err := svc.Overview(ctx, u.ID, ref)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if ov.Totals.Income.Cents != 1000000 || ov.Totals.Expense.Cents != 500000 {
		t.Fatalf("totals = %+v", ov.Totals)
	}
	if len(ov.Breakdown) != 2 || ov.Breakdown[0].Name != "Food" {
		t.Fatalf("breakdown = %+v", ov.Breakdown)
	}
	if len(ov.Trend) != insights.DefaultMonths || len(ov.Flow) != insights.DefaultMonths {
		t.Fatalf("trend=%d flow=%d", len(ov.Trend), len(ov.Flow))
	}
	if ov.Budget != nil {
		t.Fatalf("no budget expected, got %+v", ov.Budget)
	}
	// 50% savings, spending up from 1000 to 5000, Food at 60%.
	kinds := map[insights.Kind]bool{}
	for _, a := range ov.Insights {
		kinds[a.Kind] = true
	}
	for _, k := range []insights.Kind{insights.KindSavingsGreat, insights.KindSpendingUp, insights.KindDominantCategory} {
		if !kinds[k] {
			t.Errorf("missing advisory %s in %v", k, insights.Texts(ov.Insights))
		}
	}

	reads := reader.sums.Load()
	if _, err := svc.Overview(ctx, u.ID, ref); err != nil {
		t.Fatalf("cached Overview: %v", err)
	}
	if reader.sums.Load() != reads {
		t.Fatalf("second call should be served from cache")
	}

	budgets := NewBudgetService(repo, svc)
	if _, _, err := budgets.Set(ctx, u.ID, core.BudgetInput{Amount: "4000", Month: "3", Year: "2024"}); err != nil {
		t.Fatalf("Set budget: %v", err)
	}
	if lru.Size() != 0 {
		t.Fatalf("budget write should invalidate the cached overview")
	}
	ov, err = svc.Overview(ctx, u.ID, ref)
	if err != nil {
		t.Fatalf("Overview after invalidation: %v", err)
	}
	if ov.Budget == nil || ov.Budget.Remaining.Cents != -100000 {
		t.Fatalf("budget status = %+v", ov.Budget)
	}
}

func TestDashboardConcurrentCallsShareResult(t *testing.T) {
	repo := newTestRepo(t)
	u := newUser(t, repo, "flight@example.com")
	seedMonth(t, repo, u.ID)

	svc := NewDashboardService(repo, cache.NewLRUCache[Overview](10, time.Minute))
	ref := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ov, err := svc.Overview(context.Background(), u.ID, ref)
			if err == nil && ov.Totals.Expense.Cents != 500000 {
				err = errors.New("wrong totals")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Overview: %v", err)
		}
	}
}

// gatedReader holds FindBudget until release is closed. One overview
// computation looks up the budget twice: for the status and for the advisories.
type gatedReader struct {
	insights.AggregateReader
	entered chan struct{}
	release chan struct{}
	budgets atomic.Int64
}

func newGatedReader(inner insights.AggregateReader) *gatedReader {
	return &gatedReader{
		AggregateReader: inner,
		entered:         make(chan struct{}, 4*budgetLookupsPerOverview),
		release:         make(chan struct{}),
	}
}

func (g *gatedReader) FindBudget(ctx context.Context, userID int64, p core.Period) (*core.Budget, error) {
	g.budgets.Add(1)
	g.entered <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.AggregateReader.FindBudget(ctx, userID, p)
}

const budgetLookupsPerOverview = 2

func waitEntered(t *testing.T, g *gatedReader) {
	t.Helper()
	for range budgetLookupsPerOverview {
		select {
		case <-g.entered:
		case <-time.After(5 * time.Second):
			t.Fatalf("computation never reached the budget lookup")
		}
	}
}

func TestDashboardCancelledCallerDoesNotFailSharedComputation(t *testing.T) {
	repo := newTestRepo(t)
	u := newUser(t, repo, "leader@example.com")
	seedMonth(t, repo, u.ID)

	gate := newGatedReader(repo)
	svc := NewDashboardService(gate, cache.NewLRUCache[Overview](10, time.Minute))
	ref := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)

	ctx, cancel := context.WithCancel(context.Background())
	leader := make(chan error, 1)
	go func() {
		_, err := svc.Overview(ctx, u.ID, ref)
		leader <- err
	}()
	waitEntered(t, gate)

	cancel()
	select {
	case err := <-leader:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("cancelled caller: expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("cancelled caller did not return")
	}

	follower := make(chan error, 1)
	go func() {
		ov, err := svc.Overview(context.Background(), u.ID, ref)
		if err == nil && ov.Totals.Expense.Cents != 500000 {
			err = errors.New("wrong totals")
		}
		follower <- err
	}()
	close(gate.release)

	if err := <-follower; err != nil {
		t.Fatalf("waiting caller: %v", err)
	}
	if n := gate.budgets.Load(); n != budgetLookupsPerOverview {
		t.Fatalf("budget lookups = %d, want one shared computation", n)
	}
}

func TestDashboardInvalidateDuringComputation(t *testing.T) {
	repo := newTestRepo(t)
	u := newUser(t, repo, "race@example.com")
	seedMonth(t, repo, u.ID)

	gate := newGatedReader(repo)
	lru := cache.NewLRUCache[Overview](10, time.Minute)
	svc := NewDashboardService(gate, lru)
	ref := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	type result struct {
		ov  Overview
		err error
	}
	stale := make(chan result, 1)
	go func() {
		ov, err := svc.Overview(ctx, u.ID, ref)
		stale <- result{ov, err}
	}()
	waitEntered(t, gate)

	// The write lands while the first computation is parked on the budget lookup.
	travel, err := NewCategoryService(repo, nil).Create(ctx, u.ID, core.CategoryInput{Name: "Travel"})
	if err != nil {
		t.Fatalf("category: %v", err)
	}
	if _, err := NewExpenseService(repo, nil).Create(ctx, u.ID, core.ExpenseInput{Amount: "4000", CategoryID: itoa(travel.ID), Date: "2024-03-15"}); err != nil {
		t.Fatalf("expense: %v", err)
	}
	svc.Invalidate(u.ID)

	fresh := make(chan result, 1)
	go func() {
		ov, err := svc.Overview(ctx, u.ID, ref)
		fresh <- result{ov, err}
	}()
	waitEntered(t, gate)
	close(gate.release)

	if r := <-stale; r.err != nil {
		t.Fatalf("first Overview: %v", r.err)
	}
	r := <-fresh
	if r.err != nil {
		t.Fatalf("Overview after invalidation: %v", r.err)
	}
	if r.ov.Totals.Expense.Cents != 900000 {
		t.Fatalf("caller after invalidation joined the stale computation: expense = %d", r.ov.Totals.Expense.Cents)
	}

	ov, err := svc.Overview(ctx, u.ID, ref)
	if err != nil {
		t.Fatalf("cached Overview: %v", err)
	}
	if ov.Totals.Expense.Cents != 900000 {
		t.Fatalf("stale overview was cached: expense = %d", ov.Totals.Expense.Cents)
	}
}

type failingReader struct {
	insights.AggregateReader
}

func (failingReader) SumAmount(context.Context, core.EntryKind, int64, core.Period) (core.Money, error) {
	return core.Money{}, errors.New("disk I/O error")
}

func TestDashboardDataUnavailableIsNotCached(t *testing.T) {
	repo := newTestRepo(t)
	u := newUser(t, repo, "down@example.com")
	lru := cache.NewLRUCache[Overview](10, time.Minute)
	svc := NewDashboardService(failingReader{AggregateReader: repo}, lru)

	_, err := svc.Overview(context.Background(), u.ID, time.Now())
	if !errors.Is(err, insights.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
	if lru.Size() != 0 {
		t.Fatalf("failures must not be cached")
	}
}

type recordingPublisher struct {
	err    error
	period core.Period
	userID int64
}

func (p *recordingPublisher) PublishReportExport(_ context.Context, userID int64, period core.Period) error {
	p.userID, p.period = userID, period
	return p.err
}

func TestReportService(t *testing.T) {
	repo := newTestRepo(t)
	u := newUser(t, repo, "report@example.com")
	seedMonth(t, repo, u.ID)
	ctx := context.Background()
	march := core.NewPeriod(2024, 3)

	writer := memory.New()
	pub := &recordingPublisher{}
	svc := NewReportService(repo, pub, writer, reports.Options{CurrencyCode: "INR"})

	r, err := svc.MonthlyReport(ctx, u.ID, march)
	if err != nil {
		t.Fatalf("MonthlyReport: %v", err)
	}
	if len(r.Rows) != 2 || r.Rows[0].Date.String() != "2024-03-01" || r.Owner != "Test User" {
		t.Fatalf("report = %+v", r)
	}
	if r.Income.Cents != 1000000 || r.Expense.Cents != 500000 {
		t.Fatalf("totals = %v / %v", r.Income, r.Expense)
	}

	if b, err := svc.PDF(ctx, u.ID, march); err != nil || len(b) == 0 {
		t.Fatalf("PDF: %d bytes, %v", len(b), err)
	}
	if b, err := svc.Excel(ctx, u.ID, march); err != nil || len(b) == 0 {
		t.Fatalf("Excel: %d bytes, %v", len(b), err)
	}
	if _, err := svc.PDF(ctx, u.ID, core.Period{Year: 2024, Month: 13}); err == nil {
		t.Fatalf("invalid month should fail")
	}

	if err := svc.RequestSheetsExport(ctx, u.ID, march); err != nil {
		t.Fatalf("RequestSheetsExport: %v", err)
	}
	if pub.userID != u.ID || pub.period != march {
		t.Fatalf("published %d %v", pub.userID, pub.period)
	}
	pub.err = errors.New("broker down")
	if err := svc.RequestSheetsExport(ctx, u.ID, march); !errors.Is(err, ErrExportUnavailable) {
		t.Fatalf("expected ErrExportUnavailable, got %v", err)
	}

	ref, err := svc.ProcessExport(ctx, u.ID, march)
	if err != nil || ref == "" {
		t.Fatalf("ProcessExport = %q, %v", ref, err)
	}
	if got, ok := writer.Get(u.ID, march); !ok || len(got.Rows) != 2 {
		t.Fatalf("exported report = %+v, %v", got, ok)
	}
}

func TestReportServiceWithoutBroker(t *testing.T) {
	repo := newTestRepo(t)
	u := newUser(t, repo, "nobroker@example.com")
	svc := NewReportService(repo, nil, nil, reports.Options{})

	err := svc.RequestSheetsExport(context.Background(), u.ID, core.NewPeriod(2024, 1))
	if !errors.Is(err, ErrExportUnavailable) {
		t.Fatalf("expected ErrExportUnavailable, got %v", err)
	}
	if _, err := svc.ProcessExport(context.Background(), u.ID, core.NewPeriod(2024, 1)); err == nil {
		t.Fatalf("expected error without a writer")
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
