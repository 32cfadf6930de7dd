package services

import (
	"math/big"
	"time"

	"finflow/internal/core"
)

// Aggregations are pure: they read the log and never modify it.

const (
	// WeeklyWindowDays is the trailing window used for the weekly budget figure.
	WeeklyWindowDays = 7
	// RecentLimit is the number of transactions shown as recent activity.
	RecentLimit = 5
	// TodayLabel replaces the date on the group dated today.
	TodayLabel = "Today"
)

// WeekdayLabels are the histogram buckets in display order.
var WeekdayLabels = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// highlightAbove marks a weekday bar as heavy spending.
var highlightAbove = core.Money{Cents: 100000}

// emptySpentSlice keeps the donut drawable when nothing was spent.
const emptySpentSlice = 0.01

// TrailingWindowTotal sums expenses dated on or after date(now) - windowDays.
// Only calendar dates are compared.
func TrailingWindowTotal(log []core.Transaction, now time.Time, windowDays int) core.Money {
	cutoff := core.DateOf(now).AddDays(-windowDays)
	var total core.Money
	for _, tx := range log {
		if !tx.IsExpense() || tx.Date.Before(cutoff.Time) {
			continue
		}
		total = total.Add(tx.Amount)
	}
	return total
}

// WeekdayTotals buckets every expense in the log by the weekday of its date,
// Sun..Sat. Entries from different calendar weeks share a bucket: the
// histogram spans the whole log, not only the current week.
func WeekdayTotals(log []core.Transaction) []core.WeekdayTotal {
	var sums [7]core.Money
	for _, tx := range log {
		if !tx.IsExpense() {
			continue
		}
		day := tx.Date.Weekday()
		sums[day] = sums[day].Add(tx.Amount)
	}

	out := make([]core.WeekdayTotal, len(WeekdayLabels))
	for i, label := range WeekdayLabels {
		out[i] = core.WeekdayTotal{
			Day:       label,
			Amount:    sums[i],
			Highlight: sums[i].Cents > highlightAbove.Cents,
		}
	}
	return out
}

// RemainingBudget is max(0, limit - spent).
func RemainingBudget(spent, limit core.Money) core.Money {
	if spent.Cents >= limit.Cents {
		return core.Money{}
	}
	return limit.Sub(spent)
}

// SpentPercentage is round(spent / limit * 100) capped to [0, 100]. A
// non-positive limit reports 0.
func SpentPercentage(spent, limit core.Money) int {
	if limit.Cents <= 0 || spent.Cents <= 0 {
		return 0
	}
	if spent.Cents >= limit.Cents {
		return 100
	}
	// Half-up rounding of spent*100/limit. The product is taken in big.Int
	// since spent*200 overflows int64 for very large limits.
	s, l := big.NewInt(spent.Cents), big.NewInt(limit.Cents)
	q, r := new(big.Int).QuoRem(new(big.Int).Mul(s, big.NewInt(100)), l, new(big.Int))
	if r.Lsh(r, 1).Cmp(l) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	return int(q.Int64())
}

// GroupByDay splits the log into runs of adjacent entries sharing a date,
// keeping log order. A date seen again after a different one opens a new group.
func GroupByDay(log []core.Transaction, now time.Time) []core.DayGroup {
	today := core.DateOf(now)
	groups := make([]core.DayGroup, 0)
	for _, tx := range log {
		n := len(groups)
		if n > 0 && groups[n-1].Date.Equal(tx.Date.Time) {
			groups[n-1].Transactions = append(groups[n-1].Transactions, tx)
			continue
		}
		label := tx.Date.String()
		if tx.Date.Equal(today.Time) {
			label = TodayLabel
		}
		groups = append(groups, core.DayGroup{
			Date:         tx.Date,
			Label:        label,
			Transactions: []core.Transaction{tx},
		})
	}
	return groups
}

// CategoryTotals sums expenses per category in display order. Categories
// with no entries are omitted.
func CategoryTotals(log []core.Transaction) []core.CategoryAmount {
	sums := make(map[string]core.Money)
	seen := make(map[string]bool)
	for _, tx := range log {
		if !tx.IsExpense() {
			continue
		}
		sums[tx.Category] = sums[tx.Category].Add(tx.Amount)
		seen[tx.Category] = true
	}

	out := make([]core.CategoryAmount, 0, len(seen))
	for _, c := range core.Categories {
		if seen[c.Name] {
			out = append(out, core.CategoryAmount{Name: c.Name, Amount: sums[c.Name]})
		}
	}
	return out
}

// RecentTransactions returns the first n entries of the log, newest first
// since the log is kept most recent first.
func RecentTransactions(log []core.Transaction, n int) []core.Transaction {
	if n < 0 {
		n = 0
	}
	if len(log) < n {
		n = len(log)
	}
	return append([]core.Transaction{}, log[:n]...)
}

// BudgetFor builds the weekly goal card for the trailing window ending at now.
func BudgetFor(log []core.Transaction, now time.Time, limit core.Money) core.BudgetStatus {
	spent := TrailingWindowTotal(log, now, WeeklyWindowDays)
	return core.BudgetStatus{
		Limit:           limit,
		Spent:           spent,
		Remaining:       RemainingBudget(spent, limit),
		SpentPercentage: SpentPercentage(spent, limit),
	}
}

func BuildDashboard(log []core.Transaction, now time.Time, limit core.Money) core.Dashboard {
	budget := BudgetFor(log, now, limit)

	spentValue := budget.Spent.Float()
	if budget.Spent.IsZero() {
		spentValue = emptySpentSlice
	}

	return core.Dashboard{
		Budget: budget,
		Breakdown: []core.ChartSlice{
			{Name: "Spent", Value: spentValue},
			{Name: "Remaining", Value: budget.Remaining.Float()},
		},
		Recent:     RecentTransactions(log, RecentLimit),
		ByCategory: CategoryTotals(log),
	}
}

func BuildExpenses(log []core.Transaction, now time.Time) core.ExpensesView {
	return core.ExpensesView{
		Weekdays: WeekdayTotals(log),
		Groups:   GroupByDay(log, now),
	}
}
