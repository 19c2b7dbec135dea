// Command seed creates a demo account with three months of sample data.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/prathap-k00/expense-tracker/internal/auth"
	"github.com/prathap-k00/expense-tracker/internal/cli"
	"github.com/prathap-k00/expense-tracker/internal/core"
	applog "github.com/prathap-k00/expense-tracker/internal/log"
	"github.com/prathap-k00/expense-tracker/internal/storage"
)

const (
	demoName     = "Demo User"
	demoEmail    = "demo@expensetracker.com"
	demoPassword = "demo123"

	seedMonths = 3
)

type sampleCategory struct {
	name        string
	description string
	lo, hi      int64 // whole rupees
}

var sampleCategories = []sampleCategory{
	{"Food", "Monthly groceries", 250, 800},
	{"Transport", "Fuel", 100, 500},
	{"Rent", "Rent", 500, 2000},
	{"Utilities", "Electricity bill", 200, 1500},
	{"Entertainment", "Movie", 50, 300},
	{"Shopping", "Clothes", 100, 1000},
	{"Healthcare", "Medicine", 50, 400},
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentSeed)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := seed(ctx, repo, logger, time.Now()); err != nil {
		logger.Error("Seed failed", applog.FieldError, err)
		os.Exit(1)
	}
}

func seed(ctx context.Context, repo *storage.SQLiteRepository, logger *applog.Logger, now time.Time) error {
	user, err := auth.NewPasswordAuthenticator(repo).Register(ctx, core.RegisterInput{
		Name:     demoName,
		Email:    demoEmail,
		Password: demoPassword,
		Confirm:  demoPassword,
	})
	if errors.Is(err, auth.ErrEmailExists) {
		logger.Info("Demo user already exists, skipping seed", "email", demoEmail)
		return nil
	}
	if err != nil {
		return fmt.Errorf("create demo user: %w", err)
	}
	logger.Info("Created demo user", "email", demoEmail, applog.FieldUserID, user.ID)

	ids := make([]int64, 0, len(sampleCategories))
	for _, sc := range sampleCategories {
		c, err := repo.CreateCategory(ctx, core.Category{UserID: user.ID, Name: sc.name})
		if err != nil {
			return fmt.Errorf("create category %s: %w", sc.name, err)
		}
		ids = append(ids, c.ID)
	}
	logger.Info("Created categories", "count", len(ids))

	current := core.NewPeriod(now.Year(), int(now.Month()))
	var expenses int
	for i := range seedMonths {
		p := current.AddMonths(-i)
		for range 8 + rand.IntN(8) {
			idx := rand.IntN(len(sampleCategories))
			sc := sampleCategories[idx]
			_, err := repo.CreateExpense(ctx, core.Expense{
				UserID:      user.ID,
				CategoryID:  ids[idx],
				Amount:      randomAmount(sc.lo, sc.hi),
				Date:        core.NewDate(p.Year, p.Month, 1+rand.IntN(28)),
				Description: sc.description,
			})
			if err != nil {
				return fmt.Errorf("create expense: %w", err)
			}
			expenses++
		}

		_, err := repo.CreateIncome(ctx, core.Income{
			UserID: user.ID,
			Amount: randomAmount(25000, 45000),
			Date:   core.NewDate(p.Year, p.Month, 1),
			Source: core.DefaultIncomeSource,
		})
		if err != nil {
			return fmt.Errorf("create income: %w", err)
		}
	}
	logger.Info("Created sample ledger", "expenses", expenses, "months", seedMonths)

	_, _, err = repo.UpsertBudget(ctx, core.Budget{
		UserID: user.ID,
		Year:   current.Year,
		Month:  current.Month,
		Amount: core.Money{Cents: 35000 * 100},
	})
	if err != nil {
		return fmt.Errorf("create budget: %w", err)
	}

	logger.Info("Seed completed", "email", demoEmail, "password", demoPassword)
	return nil
}

// randomAmount picks a cent amount between lo and hi rupees inclusive.
func randomAmount(lo, hi int64) core.Money {
	return core.Money{Cents: lo*100 + rand.Int64N((hi-lo)*100+1)}
}
