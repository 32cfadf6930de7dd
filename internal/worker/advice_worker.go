package worker

import (
	"context"
	"fmt"
	"log/slog"

	"finflow/internal/amqp"
	"finflow/internal/core"
)

// LogReader reads the persisted transaction log.
type LogReader interface {
	LoadTransactions(ctx context.Context) ([]core.Transaction, error)
}

// AdviceRefresher precomputes advice for a log.
type AdviceRefresher interface {
	Refresh(ctx context.Context, txs []core.Transaction, balance core.Money) error
	Invalidate(ctx context.Context) error
}

// AdviceWorker keeps the stored advice snapshot in step with the log so the
// server can answer advice requests without waiting on the model.
type AdviceWorker struct {
	logs    LogReader
	advisor AdviceRefresher
	balance core.Money
}

func NewAdviceWorker(logs LogReader, advisor AdviceRefresher, balance core.Money) *AdviceWorker {
	return &AdviceWorker{
		logs:    logs,
		advisor: advisor,
		balance: balance,
	}
}

// HandleLogEvent reacts to a single log event from AMQP. Returning an error
// requeues the message.
func (w *AdviceWorker) HandleLogEvent(ctx context.Context, event *amqp.LogEvent) error {
	slog.InfoContext(ctx, "Processing log event",
		"kind", event.Kind,
		"transaction_id", event.TransactionID,
		"timestamp", event.Timestamp)

	switch event.Kind {
	case amqp.EventLogCleared:
		if err := w.advisor.Invalidate(ctx); err != nil {
			return fmt.Errorf("invalidate advice: %w", err)
		}
		slog.InfoContext(ctx, "Advice snapshot cleared", "reason", event.Reason)
		return nil
	case amqp.EventTransactionAdded:
		return w.refresh(ctx)
	default:
		slog.WarnContext(ctx, "Ignoring unknown log event", "kind", event.Kind)
		return nil
	}
}

// StartupRefresh brings the snapshot up to date with whatever was logged
// while the worker was down.
func (w *AdviceWorker) StartupRefresh(ctx context.Context) error {
	if err := w.refresh(ctx); err != nil {
		return fmt.Errorf("startup advice refresh: %w", err)
	}
	return nil
}

func (w *AdviceWorker) refresh(ctx context.Context) error {
	txs, err := w.logs.LoadTransactions(ctx)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	if err := w.advisor.Refresh(ctx, txs, w.balance); err != nil {
		return fmt.Errorf("refresh advice: %w", err)
	}
	return nil
}
