package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finflow/internal/core"
	"finflow/internal/storage"
	"finflow/internal/storage/memory"
)

var seq int

func tx(date core.Date, cents int64, category string, typ core.TransactionType) core.Transaction {
	seq++
	cat, ok := core.LookupCategory(category)
	if !ok {
		panic("unknown category " + category)
	}
	return core.NewTransaction(fmt.Sprintf("tx-%d", seq), core.Money{Cents: cents}, "", cat, date, typ)
}

func TestTrailingWindowTotal(t *testing.T) {
	now := time.Date(2025, 1, 15, 18, 30, 0, 0, time.UTC)
	log := []core.Transaction{
		tx(core.NewDate(2025, 1, 15), 1000, "Lunch", core.Expense),
		tx(core.NewDate(2025, 1, 8), 200, "Dinner", core.Expense),  // exactly seven days back, included
		tx(core.NewDate(2025, 1, 7), 5000, "Dinner", core.Expense), // eight days back
		tx(core.NewDate(2025, 1, 10), 9999, "Other things", core.Income),
		tx(core.NewDate(2025, 1, 20), 300, "Transport", core.Expense), // future dated still counts
	}

	tests := []struct {
		name   string
		log    []core.Transaction
		window int
		want   int64
	}{
		{name: "empty log", log: nil, window: 7, want: 0},
		{name: "seven day window", log: log, window: 7, want: 1500},
		{name: "today only", log: log, window: 0, want: 1300},
		{name: "wide window", log: log, window: 30, want: 6500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrailingWindowTotal(tt.log, now, tt.window).Cents)
		})
	}
}

func TestTrailingWindowTotal_Boundary(t *testing.T) {
	now := time.Date(2024, 5, 10, 23, 59, 0, 0, time.UTC)
	tests := []struct {
		name string
		date core.Date
		want int64
	}{
		{name: "today", date: core.NewDate(2024, 5, 10), want: 100},
		{name: "six days back", date: core.NewDate(2024, 5, 4), want: 100},
		{name: "seven days back is the cutoff date", date: core.NewDate(2024, 5, 3), want: 100},
		{name: "eight days back", date: core.NewDate(2024, 5, 2), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := []core.Transaction{tx(tt.date, 100, "Lunch", core.Expense)}
			assert.Equal(t, tt.want, TrailingWindowTotal(log, now, WeeklyWindowDays).Cents)
		})
	}
}

func TestTrailingWindowTotal_AfterAdd(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 4, 21, 0, 0, 0, time.UTC)
	svc := NewTransactionService(storage.NewStateStore(memory.New()),
		WithTransactionClock(func() time.Time { return now }),
		WithTransactionLocation(time.UTC))

	_, err := svc.Add(ctx, TransactionInput{Amount: "12.50", Category: "Lunch", Type: "expense"})
	require.NoError(t, err)

	got := TrailingWindowTotal(svc.Transactions(), now, 7)
	assert.Equal(t, "12.50", got.String())
}

func TestWeekdayTotals(t *testing.T) {
	// 2025-01-01 and 2025-01-15 are both Wednesdays, two weeks apart.
	log := []core.Transaction{
		tx(core.NewDate(2025, 1, 1), 1500, "Lunch", core.Expense),
		tx(core.NewDate(2025, 1, 15), 2500, "Lunch", core.Expense),
		tx(core.NewDate(2025, 1, 5), 120000, "Housing", core.Expense), // Sunday, above highlight
		tx(core.NewDate(2025, 1, 11), 100000, "Shopping", core.Expense), // Saturday, exactly at threshold
		tx(core.NewDate(2025, 1, 6), 7700, "Other things", core.Income),
	}

	got := WeekdayTotals(log)
	require.Len(t, got, 7)
	for i, label := range WeekdayLabels {
		assert.Equal(t, label, got[i].Day)
	}
	assert.Equal(t, int64(4000), got[3].Amount.Cents, "both Wednesdays land in Wed")
	assert.Equal(t, int64(120000), got[0].Amount.Cents)
	assert.True(t, got[0].Highlight)
	assert.False(t, got[6].Highlight, "highlight needs strictly more than 1000")
	assert.True(t, got[1].Amount.IsZero(), "income is not counted")
}

func TestWeekdayTotals_Empty(t *testing.T) {
	for _, w := range WeekdayTotals(nil) {
		assert.True(t, w.Amount.IsZero())
		assert.False(t, w.Highlight)
	}
}

func TestRemainingBudgetAndPercentage(t *testing.T) {
	m := func(c int64) core.Money { return core.Money{Cents: c} }
	tests := []struct {
		name          string
		spent, limit  core.Money
		wantRemaining int64
		wantPct       int
	}{
		{name: "nothing spent", spent: m(0), limit: m(350000), wantRemaining: 350000, wantPct: 0},
		{name: "partial", spent: m(87500), limit: m(350000), wantRemaining: 262500, wantPct: 25},
		{name: "rounds half up", spent: m(1), limit: m(200), wantRemaining: 199, wantPct: 1},
		{name: "rounds down", spent: m(1), limit: m(300), wantRemaining: 299, wantPct: 0},
		{name: "exactly spent", spent: m(350000), limit: m(350000), wantRemaining: 0, wantPct: 100},
		{name: "overspent", spent: m(9900000), limit: m(350000), wantRemaining: 0, wantPct: 100},
		{name: "zero limit", spent: m(500), limit: m(0), wantRemaining: 0, wantPct: 0},
		{name: "zero limit nothing spent", spent: m(0), limit: m(0), wantRemaining: 0, wantPct: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantRemaining, RemainingBudget(tt.spent, tt.limit).Cents)
			assert.Equal(t, tt.wantPct, SpentPercentage(tt.spent, tt.limit))
		})
	}
}

func TestSpentPercentage_LargeAmounts(t *testing.T) {
	const maxCents = int64(1<<63 - 1)
	m := func(c int64) core.Money { return core.Money{Cents: c} }
	tests := []struct {
		name         string
		spent, limit core.Money
		want         int
	}{
		{name: "half of a huge limit", spent: m(45_000_000_000_000_000), limit: m(90_000_000_000_000_000), want: 50},
		{name: "quarter of max", spent: m(maxCents / 4), limit: m(maxCents), want: 25},
		{name: "just under max", spent: m(maxCents - 1), limit: m(maxCents), want: 100},
		{name: "tiny share of max", spent: m(1), limit: m(maxCents), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SpentPercentage(tt.spent, tt.limit))
		})
	}
}

func TestSpentPercentage_Bounds(t *testing.T) {
	limit := core.Money{Cents: 350000}
	for spent := int64(0); spent <= 2_000_000; spent += 7_919 {
		pct := SpentPercentage(core.Money{Cents: spent}, limit)
		if pct < 0 || pct > 100 {
			t.Fatalf("SpentPercentage(%d) = %d", spent, pct)
		}
		if r := RemainingBudget(core.Money{Cents: spent}, limit); r.Cents < 0 {
			t.Fatalf("RemainingBudget(%d) = %d", spent, r.Cents)
		}
	}
}

func TestGroupByDay(t *testing.T) {
	d1 := core.NewDate(2025, 1, 10)
	d2 := core.NewDate(2025, 1, 9)
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

	t.Run("adjacent dates only", func(t *testing.T) {
		log := []core.Transaction{
			tx(d1, 100, "Lunch", core.Expense),
			tx(d2, 200, "Lunch", core.Expense),
			tx(d1, 300, "Lunch", core.Expense),
		}
		groups := GroupByDay(log, now)
		require.Len(t, groups, 3)
		assert.True(t, groups[0].Date.Equal(d1.Time))
		assert.True(t, groups[1].Date.Equal(d2.Time))
		assert.True(t, groups[2].Date.Equal(d1.Time))
		assert.Equal(t, TodayLabel, groups[0].Label)
		assert.Equal(t, "2025-01-09", groups[1].Label)
	})

	t.Run("runs merge", func(t *testing.T) {
		log := []core.Transaction{
			tx(d1, 100, "Lunch", core.Expense),
			tx(d1, 200, "Dinner", core.Expense),
			tx(d2, 300, "Breakfast", core.Expense),
		}
		groups := GroupByDay(log, now)
		require.Len(t, groups, 2)
		assert.Len(t, groups[0].Transactions, 2)
		assert.Equal(t, log[1].ID, groups[0].Transactions[1].ID, "log order kept within a group")
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, GroupByDay(nil, now))
	})
}

func TestCategoryTotals(t *testing.T) {
	d := core.NewDate(2025, 1, 10)
	log := []core.Transaction{
		tx(d, 500, "Transport", core.Expense),
		tx(d, 250, "Breakfast", core.Expense),
		tx(d, 250, "Transport", core.Expense),
		tx(d, 9000, "Housing", core.Income),
	}
	got := CategoryTotals(log)
	require.Len(t, got, 2)
	assert.Equal(t, "Breakfast", got[0].Name, "display order")
	assert.Equal(t, "Transport", got[1].Name)
	assert.Equal(t, int64(750), got[1].Amount.Cents)
}

func TestRecentTransactions(t *testing.T) {
	d := core.NewDate(2025, 1, 10)
	var log []core.Transaction
	for i := 0; i < 7; i++ {
		log = append(log, tx(d, int64(i), "Lunch", core.Expense))
	}
	recent := RecentTransactions(log, RecentLimit)
	require.Len(t, recent, 5)
	assert.Equal(t, log[0].ID, recent[0].ID)

	recent[0].Description = "mutated"
	assert.NotEqual(t, "mutated", log[0].Description, "result is a copy")
	assert.Len(t, RecentTransactions(log[:2], RecentLimit), 2)
}

func TestBuildDashboard(t *testing.T) {
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	limit := core.Money{Cents: 350000}

	t.Run("empty log", func(t *testing.T) {
		dash := BuildDashboard(nil, now, limit)
		assert.Equal(t, limit, dash.Budget.Remaining)
		assert.Equal(t, 0, dash.Budget.SpentPercentage)
		assert.Equal(t, 0.01, dash.Breakdown[0].Value, "donut placeholder")
		assert.Equal(t, 3500.0, dash.Breakdown[1].Value)
		assert.Empty(t, dash.Recent)
		assert.Empty(t, dash.ByCategory)
	})

	t.Run("with spending", func(t *testing.T) {
		log := []core.Transaction{tx(core.NewDate(2025, 1, 10), 87500, "Housing", core.Expense)}
		dash := BuildDashboard(log, now, limit)
		assert.Equal(t, int64(87500), dash.Budget.Spent.Cents)
		assert.Equal(t, 25, dash.Budget.SpentPercentage)
		assert.Equal(t, "Spent", dash.Breakdown[0].Name)
		assert.Equal(t, 875.0, dash.Breakdown[0].Value)
		assert.Len(t, dash.Recent, 1)
	})
}

func TestBuildExpenses(t *testing.T) {
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	view := BuildExpenses([]core.Transaction{tx(core.NewDate(2025, 1, 10), 100, "Lunch", core.Expense)}, now)
	assert.Len(t, view.Weekdays, 7)
	require.Len(t, view.Groups, 1)
	assert.Equal(t, TodayLabel, view.Groups[0].Label)
}
