// Package app holds the running application state shared by the HTTP
// server and the CLI: the transaction log, the cycle manager, the advice
// service, the selected theme and any weekly reset awaiting an answer.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"finflow/internal/advice"
	"finflow/internal/cache"
	"finflow/internal/config"
	"finflow/internal/core"
	"finflow/internal/metrics"
	"finflow/internal/services"
	"finflow/internal/storage"
)

// ErrNoPendingReset is returned when confirming or declining while no
// weekly reset is waiting.
var ErrNoPendingReset = errors.New("no weekly reset pending")

// Options wires an App. Only Config and KV are required.
type Options struct {
	Config    *config.Config
	KV        storage.KV
	Generator advice.Generator
	Publisher services.EventPublisher
	Ping      func(ctx context.Context) error
	Clock     func() time.Time
}

type App struct {
	cfg     *config.Config
	state   *storage.StateStore
	ledger  *services.TransactionService
	cycle   *services.CycleManager
	advisor *services.AdviceService
	ping    func(ctx context.Context) error
	now     func() time.Time
	loc     *time.Location

	// mu serializes cycle transitions and theme changes.
	mu      sync.Mutex
	theme   core.Theme
	pending *services.CycleDecision
}

func New(opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("app config is nil")
	}
	if opts.KV == nil {
		return nil, errors.New("app key-value store is nil")
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	ping := opts.Ping
	if ping == nil {
		ping = func(context.Context) error { return nil }
	}

	cfg := opts.Config
	loc := cfg.Location()
	state := storage.NewStateStore(opts.KV)

	txOpts := []services.TransactionOption{
		services.WithTransactionClock(now),
		services.WithTransactionLocation(loc),
	}
	if opts.Publisher != nil {
		txOpts = append(txOpts, services.WithPublisher(opts.Publisher))
	}
	ledger := services.NewTransactionService(state, txOpts...)

	return &App{
		cfg:    cfg,
		state:  state,
		ledger: ledger,
		cycle: services.NewCycleManager(state, ledger,
			services.WithClock(now),
			services.WithLocation(loc)),
		advisor: services.NewAdviceService(opts.Generator, state, services.AdviceConfig{
			Timeout:     cfg.AdviceTimeout,
			CacheTTL:    cfg.AdviceCacheTTL,
			WeeklyLimit: cfg.WeeklyLimit(),
		}),
		ping:  ping,
		now:   now,
		loc:   loc,
		theme: core.DefaultTheme,
	}, nil
}

// Start loads persisted state and runs the weekly cycle check once. With a
// nil confirmer a due reset is left pending for ConfirmReset or DeclineReset.
func (a *App) Start(ctx context.Context, confirmer services.Confirmer) (services.CycleOutcome, error) {
	var theme core.Theme
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.ledger.Load(gctx)
	})
	g.Go(func() error {
		t, err := a.state.LoadTheme(gctx)
		theme = t
		return err
	})
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("load application state: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.theme = theme

	d, outcome, err := a.cycle.Run(ctx, confirmer)
	if err != nil {
		return "", err
	}
	if outcome == services.OutcomePending {
		a.pending = &d
	}
	slog.InfoContext(ctx, "Application started",
		"transactions", len(a.ledger.Transactions()),
		"theme", theme,
		"cycle_outcome", outcome)
	return outcome, nil
}

// CycleStatus is the weekly cycle as seen by a host.
type CycleStatus struct {
	Decision services.CycleDecision `json:"decision"`
	Pending  bool                   `json:"pending"`
	Prompt   string                 `json:"prompt,omitempty"`
}

// Cycle reports the current cycle decision without acting on it.
func (a *App) Cycle(ctx context.Context) (CycleStatus, error) {
	d, err := a.cycle.Evaluate(ctx)
	if err != nil {
		return CycleStatus{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	st := CycleStatus{Decision: d, Pending: a.pending != nil}
	if st.Pending {
		st.Prompt = services.WeeklyResetPrompt
	}
	return st, nil
}

// PendingReset returns the weekly reset waiting for an answer, if any.
func (a *App) PendingReset() (services.CycleDecision, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending == nil {
		return services.CycleDecision{}, false
	}
	return *a.pending, true
}

// ConfirmReset accepts the pending weekly reset.
func (a *App) ConfirmReset(ctx context.Context) (services.CycleOutcome, error) {
	return a.answerReset(ctx, true)
}

// DeclineReset refuses the pending weekly reset. The marker is left as is,
// so the prompt returns on the next start.
func (a *App) DeclineReset(ctx context.Context) (services.CycleOutcome, error) {
	return a.answerReset(ctx, false)
}

func (a *App) answerReset(ctx context.Context, confirmed bool) (services.CycleOutcome, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending == nil {
		return "", ErrNoPendingReset
	}

	// Re-evaluate so the marker written is the time of the answer.
	d, err := a.cycle.Evaluate(ctx)
	if err != nil {
		return "", err
	}
	outcome, err := a.cycle.Apply(ctx, d, confirmed)
	if err != nil {
		return "", err
	}
	a.pending = nil
	return outcome, nil
}

// ManualReset clears the log on user request. The cycle marker is untouched.
func (a *App) ManualReset(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ledger.Clear(ctx, services.ResetManual)
}

func (a *App) AddTransaction(ctx context.Context, in services.TransactionInput) (core.Transaction, error) {
	return a.ledger.Add(ctx, in)
}

// Transactions returns a copy of the log, newest first.
func (a *App) Transactions() []core.Transaction {
	return a.ledger.Transactions()
}

func (a *App) Dashboard() core.Dashboard {
	dash := services.BuildDashboard(a.ledger.Transactions(), a.now().In(a.loc), a.cfg.WeeklyLimit())
	metrics.WeeklySpent.Set(dash.Budget.Spent.Float())
	return dash
}

func (a *App) Expenses() core.ExpensesView {
	return services.BuildExpenses(a.ledger.Transactions(), a.now().In(a.loc))
}

// AccountsView lists the mock accounts with their combined balance.
type AccountsView struct {
	Accounts []core.Account `json:"accounts"`
	Total    core.Money     `json:"total"`
}

func (a *App) Accounts() AccountsView {
	accounts := core.MockAccounts()
	return AccountsView{Accounts: accounts, Total: core.TotalBalance(accounts)}
}

// Advice never fails; errors surface as the fallback text.
func (a *App) Advice(ctx context.Context) string {
	return a.advisor.GetAdvice(ctx, a.ledger.Transactions(), a.cfg.Balance())
}

// AdviceCache exposes the advice cache for periodic sweeping.
func (a *App) AdviceCache() cache.Cleaner {
	return a.advisor.Cleaner()
}

func (a *App) Theme() core.ThemeInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	info, _ := a.theme.Info()
	return info
}

// SetTheme validates and persists a theme choice.
func (a *App) SetTheme(ctx context.Context, id string) (core.ThemeInfo, error) {
	theme, err := core.ParseTheme(id)
	if err != nil {
		return core.ThemeInfo{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.state.SaveTheme(ctx, theme); err != nil {
		return core.ThemeInfo{}, err
	}
	a.theme = theme
	info, _ := theme.Info()
	slog.InfoContext(ctx, "Theme changed", "theme", theme)
	return info, nil
}

// Ready reports whether the backing store answers.
func (a *App) Ready(ctx context.Context) error {
	return a.ping(ctx)
}

func (a *App) Config() *config.Config {
	return a.cfg
}
