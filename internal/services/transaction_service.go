package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"finflow/internal/amqp"
	"finflow/internal/core"
	applog "finflow/internal/log"
	"finflow/internal/metrics"
)

// ManualResetPrompt is asked before a user initiated clear.
const ManualResetPrompt = "Are you sure you want to clear all transactions and reset your budget manually?"

type ResetReason string

const (
	ResetManual ResetReason = "manual"
	ResetWeekly ResetReason = "weekly"
)

// LogStore persists the whole transaction log.
type LogStore interface {
	LoadTransactions(ctx context.Context) ([]core.Transaction, error)
	SaveTransactions(ctx context.Context, txs []core.Transaction) error
	ClearTransactions(ctx context.Context) error
}

// EventPublisher announces log changes. A nil publisher disables events.
type EventPublisher interface {
	PublishLogEvent(ctx context.Context, event *amqp.LogEvent) error
}

// TransactionInput is raw user input for a new transaction.
type TransactionInput struct {
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Type        string `json:"type"`
}

// TransactionService is the only writer of the transaction log. It holds the
// log in memory and writes it back whole after every mutation.
type TransactionService struct {
	mu        sync.RWMutex
	store     LogStore
	publisher EventPublisher
	now       func() time.Time
	loc       *time.Location
	newID     func() string
	log       []core.Transaction
}

type TransactionOption func(*TransactionService)

func WithTransactionClock(now func() time.Time) TransactionOption {
	return func(s *TransactionService) { s.now = now }
}

func WithTransactionLocation(loc *time.Location) TransactionOption {
	return func(s *TransactionService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithIDGenerator(gen func() string) TransactionOption {
	return func(s *TransactionService) { s.newID = gen }
}

func WithPublisher(p EventPublisher) TransactionOption {
	return func(s *TransactionService) { s.publisher = p }
}

func NewTransactionService(store LogStore, opts ...TransactionOption) *TransactionService {
	s := &TransactionService{
		store: store,
		now:   time.Now,
		loc:   time.Local,
		newID: uuid.NewString,
		log:   []core.Transaction{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted log into memory. Malformed data yields an empty
// log; only storage I/O failures are returned.
func (s *TransactionService) Load(ctx context.Context) error {
	txs, err := s.store.LoadTransactions(ctx)
	if err != nil {
		return fmt.Errorf("load transaction log: %w", err)
	}
	s.mu.Lock()
	s.log = txs
	s.mu.Unlock()
	slog.InfoContext(ctx, "Transaction log loaded", "count", len(txs))
	return nil
}

// Transactions returns a copy of the log, most recent first.
func (s *TransactionService) Transactions() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Transaction{}, s.log...)
}

// Add validates input, prepends a transaction dated today and persists the log.
// Validation errors wrap the core sentinels and leave the log untouched.
func (s *TransactionService) Add(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount %q: %w", in.Amount, err)
	}

	cat := core.DefaultCategory()
	if in.Category != "" {
		var ok bool
		if cat, ok = core.LookupCategory(in.Category); !ok {
			return core.Transaction{}, fmt.Errorf("%w: %q", core.ErrUnknownCategory, in.Category)
		}
	}

	typ, err := core.ParseTransactionType(in.Type)
	if err != nil {
		return core.Transaction{}, err
	}

	today := core.DateOf(s.now().In(s.loc))
	tx := core.NewTransaction(s.newID(), amount, in.Description, cat, today, typ)
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}

	s.mu.Lock()
	for _, existing := range s.log {
		if existing.ID == tx.ID {
			s.mu.Unlock()
			return core.Transaction{}, fmt.Errorf("duplicate transaction id %s", tx.ID)
		}
	}
	next := make([]core.Transaction, 0, len(s.log)+1)
	next = append(next, tx)
	next = append(next, s.log...)
	if err := s.store.SaveTransactions(ctx, next); err != nil {
		s.mu.Unlock()
		return core.Transaction{}, fmt.Errorf("save transaction log: %w", err)
	}
	s.log = next
	count := len(next)
	s.mu.Unlock()

	metrics.TransactionsRecorded.WithLabelValues(tx.Category, string(tx.Type)).Inc()
	fields := applog.NewFields().
		WithComponent(applog.ComponentLedger).
		WithOperation(applog.OpCreate).
		WithTransaction(tx.ID, tx.Amount.Cents, tx.Category)
	fields["type"] = tx.Type
	slog.InfoContext(ctx, "Transaction recorded", fields.ToSlice()...)

	s.publish(ctx, amqp.NewTransactionAddedEvent(tx.ID, count))
	return tx, nil
}

// Clear empties the log. It never touches the cycle marker.
func (s *TransactionService) Clear(ctx context.Context, reason ResetReason) error {
	s.mu.Lock()
	if err := s.store.ClearTransactions(ctx); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("clear transaction log: %w", err)
	}
	removed := len(s.log)
	s.log = []core.Transaction{}
	s.mu.Unlock()

	metrics.LogResets.WithLabelValues(string(reason)).Inc()
	slog.InfoContext(ctx, "Transaction log cleared",
		applog.FieldComponent, applog.ComponentLedger,
		applog.FieldOperation, applog.OpReset,
		"reason", reason, "removed", removed)

	s.publish(ctx, amqp.NewLogClearedEvent(string(reason)))
	return nil
}

func (s *TransactionService) publish(ctx context.Context, event *amqp.LogEvent) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping log event", "kind", event.Kind)
		return
	}
	if err := s.publisher.PublishLogEvent(ctx, event); err != nil {
		// The log is already persisted; the event is best effort.
		lvl := slog.LevelError
		if errors.Is(err, amqp.ErrCircuitOpen) {
			lvl = slog.LevelWarn
		}
		slog.Log(ctx, lvl, "Failed to publish log event", "kind", event.Kind, "error", err)
	}
}
