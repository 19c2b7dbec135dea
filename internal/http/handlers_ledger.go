package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/prathap-k00/expense-tracker/internal/core"
	applog "github.com/prathap-k00/expense-tracker/internal/log"
	"github.com/prathap-k00/expense-tracker/internal/middleware/session"
	"github.com/prathap-k00/expense-tracker/internal/storage"
)

// pager carries ready-made links so templates never build query strings.
type pager struct {
	core.Page
	PrevURL string
	NextURL string
}

func newPager(base string, query url.Values, p core.Page) pager {
	link := func(n int) string {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("page", strconv.Itoa(n))
		return base + "?" + q.Encode()
	}
	pg := pager{Page: p}
	if p.HasPrev() {
		pg.PrevURL = link(p.PrevNum())
	}
	if p.HasNext() {
		pg.NextURL = link(p.NextNum())
	}
	return pg
}

// Expenses

type expenseListView struct {
	Expenses   []core.Expense
	Categories []core.Category
	Filter     storage.ExpenseFilter
	Pager      pager
}

type expenseFormView struct {
	Action     string
	Heading    string
	Categories []core.Category
	Form       core.ExpenseInput
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := session.UserID(ctx)
	query := r.URL.Query()
	filter := ParseExpenseFilter(query)

	expenses, page, err := s.deps.Expenses.List(ctx, uid, filter, ParsePage(query))
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	cats, err := s.deps.Categories.List(ctx, uid)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}

	kept := url.Values{}
	if filter.CategoryID > 0 {
		kept.Set("category", strconv.FormatInt(filter.CategoryID, 10))
	}
	if filter.Month > 0 {
		kept.Set("month", strconv.Itoa(filter.Month))
	}
	if filter.Year > 0 {
		kept.Set("year", strconv.Itoa(filter.Year))
	}

	s.render(w, r, http.StatusOK, "expenses", "Expenses", expenseListView{
		Expenses:   expenses,
		Categories: cats,
		Filter:     filter,
		Pager:      newPager("/expenses", kept, page),
	})
}

func (s *Server) handleAddExpenseForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := session.UserID(ctx)
	ok, err := s.deps.Expenses.HasCategories(ctx, uid)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	if !ok {
		setFlash(w, FlashWarning, "Please create at least one category first.")
		http.Redirect(w, r, "/categories/add", http.StatusSeeOther)
		return
	}
	s.renderExpenseForm(w, r, http.StatusOK, "/expenses/add", "Add Expense",
		core.ExpenseInput{Date: s.opts.Now().Format(core.DateLayout)})
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := parseForm(w, r); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid form submission.")
		return
	}
	in := expenseInput(r)

	e, err := s.deps.Expenses.Create(ctx, session.UserID(ctx), in)
	if err != nil {
		if msgs, ok := validationMessages(err); ok {
			s.renderExpenseForm(w, r, http.StatusUnprocessableEntity, "/expenses/add", "Add Expense", in,
				flashesFrom(FlashDanger, msgs...)...)
			return
		}
		s.fail(w, r, applog.OpCreate, err)
		return
	}

	applog.FromContext(ctx).InfoContext(ctx, "Expense added",
		applog.FieldAmountCents, e.Amount.Cents,
		applog.FieldCategoryID, e.CategoryID)
	setFlash(w, FlashSuccess, "Expense added successfully!")
	http.Redirect(w, r, "/expenses", http.StatusSeeOther)
}

func (s *Server) handleEditExpenseForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := URLParamID(r)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	e, err := s.deps.Expenses.Get(ctx, session.UserID(ctx), id)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	s.renderExpenseForm(w, r, http.StatusOK, editExpensePath(id), "Edit Expense", core.ExpenseInput{
		Amount:      e.Amount.String(),
		CategoryID:  strconv.FormatInt(e.CategoryID, 10),
		Date:        e.Date.String(),
		Description: e.Description,
	})
}

func (s *Server) handleEditExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := URLParamID(r)
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	if err := parseForm(w, r); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid form submission.")
		return
	}
	in := expenseInput(r)

	if _, err := s.deps.Expenses.Update(ctx, session.UserID(ctx), id, in); err != nil {
		if msgs, ok := validationMessages(err); ok {
			s.renderExpenseForm(w, r, http.StatusUnprocessableEntity, editExpensePath(id), "Edit Expense", in,
				flashesFrom(FlashDanger, msgs...)...)
			return
		}
		s.fail(w, r, applog.OpUpdate, err)
		return
	}

	setFlash(w, FlashSuccess, "Expense updated successfully!")
	http.Redirect(w, r, "/expenses", http.StatusSeeOther)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := URLParamID(r)
	if err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	if err := s.deps.Expenses.Delete(ctx, session.UserID(ctx), id); err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	setFlash(w, FlashSuccess, "Expense deleted successfully.")
	http.Redirect(w, r, "/expenses", http.StatusSeeOther)
}

func (s *Server) renderExpenseForm(w http.ResponseWriter, r *http.Request, status int, action, heading string, in core.ExpenseInput, flashes ...Flash) {
	cats, err := s.deps.Categories.List(r.Context(), session.UserID(r.Context()))
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	s.render(w, r, status, "expense_form", heading, expenseFormView{
		Action:     action,
		Heading:    heading,
		Categories: cats,
		Form:       in,
	}, flashes...)
}

func editExpensePath(id int64) string {
	return fmt.Sprintf("/expenses/edit/%d", id)
}

// Income

type incomeListView struct {
	Records []core.Income
	Pager   pager
}

func (s *Server) handleListIncome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	records, page, err := s.deps.Income.List(ctx, session.UserID(ctx), ParsePage(r.URL.Query()))
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	s.render(w, r, http.StatusOK, "income", "Income", incomeListView{
		Records: records,
		Pager:   newPager("/income", url.Values{}, page),
	})
}

func (s *Server) handleAddIncomeForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "income_form", "Add Income", core.IncomeInput{
		Date:   s.opts.Now().Format(core.DateLayout),
		Source: core.DefaultIncomeSource,
	})
}

func (s *Server) handleAddIncome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := parseForm(w, r); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid form submission.")
		return
	}
	in := incomeInput(r)

	inc, err := s.deps.Income.Create(ctx, session.UserID(ctx), in)
	if err != nil {
		if msgs, ok := validationMessages(err); ok {
			s.render(w, r, http.StatusUnprocessableEntity, "income_form", "Add Income", in, flashesFrom(FlashDanger, msgs...)...)
			return
		}
		s.fail(w, r, applog.OpCreate, err)
		return
	}

	applog.FromContext(ctx).InfoContext(ctx, "Income added", applog.FieldAmountCents, inc.Amount.Cents)
	setFlash(w, FlashSuccess, "Income added successfully!")
	http.Redirect(w, r, "/income", http.StatusSeeOther)
}

// Categories

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cats, err := s.deps.Categories.List(ctx, session.UserID(ctx))
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	s.render(w, r, http.StatusOK, "categories", "Categories", cats)
}

func (s *Server) handleAddCategoryForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "category_form", "Add Category", core.CategoryInput{})
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := parseForm(w, r); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid form submission.")
		return
	}
	in := core.CategoryInput{Name: formValue(r, "name")}

	c, err := s.deps.Categories.Create(ctx, session.UserID(ctx), in)
	if err != nil {
		if msgs, ok := validationMessages(err); ok {
			s.render(w, r, http.StatusUnprocessableEntity, "category_form", "Add Category", in, flashesFrom(FlashDanger, msgs...)...)
			return
		}
		if errors.Is(err, core.ErrCategoryExists) {
			s.render(w, r, http.StatusConflict, "category_form", "Add Category", in,
				Flash{Level: FlashWarning, Message: fmt.Sprintf("Category %q already exists.", in.Name)})
			return
		}
		s.fail(w, r, applog.OpCreate, err)
		return
	}

	setFlash(w, FlashSuccess, fmt.Sprintf("Category %q added successfully!", c.Name))
	http.Redirect(w, r, "/categories", http.StatusSeeOther)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := URLParamID(r)
	if err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	c, err := s.deps.Categories.Delete(ctx, session.UserID(ctx), id)
	if err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	setFlash(w, FlashInfo, fmt.Sprintf("Category %q deleted. Related expenses were also removed.", c.Name))
	http.Redirect(w, r, "/categories", http.StatusSeeOther)
}

// Budgets

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	budgets, err := s.deps.Budgets.Recent(ctx, session.UserID(ctx))
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	s.render(w, r, http.StatusOK, "budgets", "Budgets", budgets)
}

func (s *Server) handleAddBudgetForm(w http.ResponseWriter, r *http.Request) {
	now := s.opts.Now()
	s.render(w, r, http.StatusOK, "budget_form", "Set Budget", core.BudgetInput{
		Month: strconv.Itoa(int(now.Month())),
		Year:  strconv.Itoa(now.Year()),
	})
}

func (s *Server) handleAddBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := parseForm(w, r); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid form submission.")
		return
	}
	in := budgetInput(r)

	b, updated, err := s.deps.Budgets.Set(ctx, session.UserID(ctx), in)
	if err != nil {
		if msgs, ok := validationMessages(err); ok {
			s.render(w, r, http.StatusUnprocessableEntity, "budget_form", "Set Budget", in, flashesFrom(FlashDanger, msgs...)...)
			return
		}
		s.fail(w, r, applog.OpCreate, err)
		return
	}

	if updated {
		setFlash(w, FlashSuccess, fmt.Sprintf("Budget for %d/%d updated!", b.Month, b.Year))
	} else {
		setFlash(w, FlashSuccess, fmt.Sprintf("Budget for %d/%d set successfully!", b.Month, b.Year))
	}
	http.Redirect(w, r, "/budgets", http.StatusSeeOther)
}
