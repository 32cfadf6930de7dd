package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"finflow/internal/core"
)

// MarkerLayout matches the millisecond UTC form the marker has always been written in.
const MarkerLayout = "2006-01-02T15:04:05.000Z07:00"

// AdviceSnapshot is advice generated ahead of time for a given log fingerprint.
type AdviceSnapshot struct {
	Text        string    `json:"text"`
	Fingerprint string    `json:"fingerprint"`
	GeneratedAt time.Time `json:"generated_at"`
}

// StateStore is the single persistence service of the application. It owns
// the key layout and the payload formats; nothing else reads the KV directly.
//
// Malformed payloads are never an error: they are logged and treated as
// absent. Errors returned here are I/O failures of the underlying KV.
type StateStore struct {
	kv KV
}

func NewStateStore(kv KV) *StateStore {
	return &StateStore{kv: kv}
}

// LoadTransactions returns the persisted log in stored order. Entries that
// fail validation or repeat an earlier id are dropped.
func (s *StateStore) LoadTransactions(ctx context.Context) ([]core.Transaction, error) {
	data, found, err := s.kv.Load(ctx, KeyTransactions)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	if !found || len(data) == 0 {
		return []core.Transaction{}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.WarnContext(ctx, "Malformed transaction log, starting empty", "key", KeyTransactions, "error", err)
		return []core.Transaction{}, nil
	}

	txs := make([]core.Transaction, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, entry := range raw {
		var tx core.Transaction
		if err := json.Unmarshal(entry, &tx); err != nil {
			slog.WarnContext(ctx, "Skipping undecodable transaction", "index", i, "error", err)
			continue
		}
		if err := tx.Validate(); err != nil {
			slog.WarnContext(ctx, "Skipping invalid transaction", "index", i, "id", tx.ID, "error", err)
			continue
		}
		if _, dup := seen[tx.ID]; dup {
			slog.WarnContext(ctx, "Skipping duplicate transaction id", "index", i, "id", tx.ID)
			continue
		}
		seen[tx.ID] = struct{}{}
		txs = append(txs, tx)
	}
	return txs, nil
}

// SaveTransactions writes the whole log.
func (s *StateStore) SaveTransactions(ctx context.Context, txs []core.Transaction) error {
	if txs == nil {
		txs = []core.Transaction{}
	}
	data, err := json.Marshal(txs)
	if err != nil {
		return fmt.Errorf("encode transactions: %w", err)
	}
	if err := s.kv.Save(ctx, KeyTransactions, data); err != nil {
		return fmt.Errorf("save transactions: %w", err)
	}
	return nil
}

// ClearTransactions removes the persisted log entirely.
func (s *StateStore) ClearTransactions(ctx context.Context) error {
	if err := s.kv.Delete(ctx, KeyTransactions); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}
	return nil
}

// LoadMarker returns the cycle marker, or nil when none is recorded.
func (s *StateStore) LoadMarker(ctx context.Context) (*time.Time, error) {
	data, found, err := s.kv.Load(ctx, KeyLastReset)
	if err != nil {
		return nil, fmt.Errorf("load cycle marker: %w", err)
	}
	if !found {
		return nil, nil
	}
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		slog.WarnContext(ctx, "Malformed cycle marker, treating as absent", "key", KeyLastReset, "value", raw, "error", err)
		return nil, nil
	}
	return &t, nil
}

func (s *StateStore) SaveMarker(ctx context.Context, t time.Time) error {
	if err := s.kv.Save(ctx, KeyLastReset, []byte(t.UTC().Format(MarkerLayout))); err != nil {
		return fmt.Errorf("save cycle marker: %w", err)
	}
	return nil
}

// LoadTheme returns the stored theme, falling back to the default.
func (s *StateStore) LoadTheme(ctx context.Context) (core.Theme, error) {
	data, found, err := s.kv.Load(ctx, KeyTheme)
	if err != nil {
		return core.DefaultTheme, fmt.Errorf("load theme: %w", err)
	}
	if !found {
		return core.DefaultTheme, nil
	}
	theme, err := core.ParseTheme(strings.Trim(string(data), `" `))
	if err != nil {
		slog.WarnContext(ctx, "Unknown stored theme, using default", "value", string(data))
		return core.DefaultTheme, nil
	}
	return theme, nil
}

func (s *StateStore) SaveTheme(ctx context.Context, theme core.Theme) error {
	if err := s.kv.Save(ctx, KeyTheme, []byte(theme)); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}

// LoadAdvice returns the precomputed advice, or nil when there is none.
func (s *StateStore) LoadAdvice(ctx context.Context) (*AdviceSnapshot, error) {
	data, found, err := s.kv.Load(ctx, KeyAdvice)
	if err != nil {
		return nil, fmt.Errorf("load advice: %w", err)
	}
	if !found {
		return nil, nil
	}
	var snap AdviceSnapshot
	if err := json.Unmarshal(data, &snap); err != nil || snap.Text == "" {
		slog.WarnContext(ctx, "Malformed advice snapshot, ignoring", "key", KeyAdvice)
		return nil, nil
	}
	return &snap, nil
}

func (s *StateStore) SaveAdvice(ctx context.Context, snap AdviceSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode advice: %w", err)
	}
	if err := s.kv.Save(ctx, KeyAdvice, data); err != nil {
		return fmt.Errorf("save advice: %w", err)
	}
	return nil
}

func (s *StateStore) ClearAdvice(ctx context.Context) error {
	if err := s.kv.Delete(ctx, KeyAdvice); err != nil {
		return fmt.Errorf("clear advice: %w", err)
	}
	return nil
}
