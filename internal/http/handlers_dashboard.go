package http

import (
	"net/http"
	"time"

	"github.com/prathap-k00/expense-tracker/internal/middleware/session"
	"github.com/prathap-k00/expense-tracker/internal/services"
)

type dashboardView struct {
	services.Overview
	Savings  string
	Negative bool
}

// dashboardRef is the reference time of the requested month; the current
// month keeps the real clock so trends end today.
func (s *Server) dashboardRef(r *http.Request) (time.Time, error) {
	now := s.opts.Now()
	p, err := ParseMonthParams(r.URL.Query(), now).Period()
	if err != nil {
		return time.Time{}, err
	}
	if p.Year == now.Year() && p.Month == int(now.Month()) {
		return now, nil
	}
	return p.First(), nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ref, err := s.dashboardRef(r)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid month.")
		return
	}
	ov, err := s.deps.Dashboard.Overview(r.Context(), session.UserID(r.Context()), ref)
	if err != nil {
		s.fail(w, r, "dashboard", err)
		return
	}
	savings := ov.Totals.Savings()
	s.render(w, r, http.StatusOK, "dashboard", "Dashboard", dashboardView{
		Overview: ov,
		Savings:  s.format.Money(savings),
		Negative: savings.Cents < 0,
	})
}

// chartSeries is the JSON the dashboard charts read.
type chartSeries struct {
	Period     string         `json:"period"`
	Totals     chartTotals    `json:"totals"`
	Categories labeledValues  `json:"categories"`
	Trend      labeledValues  `json:"trend"`
	Flow       flowSeries     `json:"income_vs_expense"`
	Insights   []chartInsight `json:"insights"`
}

type chartTotals struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Savings float64 `json:"savings"`
}

type labeledValues struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

type flowSeries struct {
	Labels  []string  `json:"labels"`
	Income  []float64 `json:"income"`
	Expense []float64 `json:"expense"`
	Savings []float64 `json:"savings"`
}

type chartInsight struct {
	Kind  string `json:"kind"`
	Level string `json:"level"`
	Text  string `json:"text"`
}

func newChartSeries(ov services.Overview) chartSeries {
	out := chartSeries{
		Period: ov.Period.Key(),
		Totals: chartTotals{
			Income:  ov.Totals.Income.Float(),
			Expense: ov.Totals.Expense.Float(),
			Savings: ov.Totals.Savings().Float(),
		},
		Categories: labeledValues{Labels: []string{}, Values: []float64{}},
		Trend:      labeledValues{Labels: []string{}, Values: []float64{}},
		Flow:       flowSeries{Labels: []string{}, Income: []float64{}, Expense: []float64{}, Savings: []float64{}},
		Insights:   []chartInsight{},
	}
	for _, c := range ov.Breakdown {
		out.Categories.Labels = append(out.Categories.Labels, c.Name)
		out.Categories.Values = append(out.Categories.Values, c.Amount.Float())
	}
	for _, p := range ov.Trend {
		out.Trend.Labels = append(out.Trend.Labels, p.Label)
		out.Trend.Values = append(out.Trend.Values, p.Expense.Float())
	}
	for _, f := range ov.Flow {
		out.Flow.Labels = append(out.Flow.Labels, f.Label)
		out.Flow.Income = append(out.Flow.Income, f.Income.Float())
		out.Flow.Expense = append(out.Flow.Expense, f.Expense.Float())
		out.Flow.Savings = append(out.Flow.Savings, f.Savings.Float())
	}
	for _, a := range ov.Insights {
		out.Insights = append(out.Insights, chartInsight{Kind: string(a.Kind), Level: a.Level(), Text: a.Text})
	}
	return out
}

func (s *Server) handleDashboardData(w http.ResponseWriter, r *http.Request) {
	ref, err := s.dashboardRef(r)
	if err != nil {
		NewResponse().Status(http.StatusBadRequest).JSON(map[string]string{"error": "invalid month"}).Write(w)
		return
	}
	ov, err := s.deps.Dashboard.Overview(r.Context(), session.UserID(r.Context()), ref)
	if err != nil {
		s.failJSON(w, r, "dashboard_data", err)
		return
	}
	NewResponse().JSON(newChartSeries(ov)).Write(w)
}
