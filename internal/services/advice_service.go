package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"finflow/internal/advice"
	"finflow/internal/cache"
	"finflow/internal/core"
	"finflow/internal/metrics"
	"finflow/internal/storage"
)

const (
	DefaultAdviceTimeout  = 20 * time.Second
	DefaultAdviceCacheTTL = 10 * time.Minute
	adviceCacheSize       = 32
)

var errNoGenerator = errors.New("advice generator not configured")

// SnapshotStore holds advice generated ahead of time by the worker.
type SnapshotStore interface {
	LoadAdvice(ctx context.Context) (*storage.AdviceSnapshot, error)
	SaveAdvice(ctx context.Context, snap storage.AdviceSnapshot) error
	ClearAdvice(ctx context.Context) error
}

// AdviceService produces advice text for the current log. It never fails:
// every error path ends in advice.FallbackMessage.
type AdviceService struct {
	generator advice.Generator
	cache     cache.Cache[string]
	group     singleflight.Group
	timeout   time.Duration
	limit     core.Money
	snapshots SnapshotStore
	now       func() time.Time
}

type AdviceConfig struct {
	Timeout     time.Duration
	CacheTTL    time.Duration
	WeeklyLimit core.Money
}

// NewAdviceService wires a generator. A nil generator is allowed; requests
// then fall back unless a matching snapshot exists.
func NewAdviceService(gen advice.Generator, snapshots SnapshotStore, cfg AdviceConfig) *AdviceService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultAdviceTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultAdviceCacheTTL
	}
	return &AdviceService{
		generator: gen,
		cache:     cache.NewLRUCache[string](adviceCacheSize, cfg.CacheTTL),
		timeout:   cfg.Timeout,
		limit:     cfg.WeeklyLimit,
		snapshots: snapshots,
		now:       time.Now,
	}
}

// Cleaner exposes the cache for periodic sweeping.
func (s *AdviceService) Cleaner() cache.Cleaner {
	if c, ok := s.cache.(cache.Cleaner); ok {
		return c
	}
	return nil
}

// Fingerprint identifies a (log, balance) pair. Equal inputs share advice.
func Fingerprint(txs []core.Transaction, balance core.Money) string {
	h := sha256.New()
	fmt.Fprintf(h, "balance=%d\n", balance.Cents)
	for _, tx := range txs {
		fmt.Fprintf(h, "%s|%s|%d|%s|%s|%s\n", tx.ID, tx.Date, tx.Amount.Cents, tx.Type, tx.Category, tx.Description)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// GetAdvice returns advice for txs. Concurrent calls for the same input
// share one generator call. The call runs detached from ctx cancellation
// so an abandoned request still fills the cache, bounded by the timeout.
func (s *AdviceService) GetAdvice(ctx context.Context, txs []core.Transaction, balance core.Money) string {
	if len(txs) == 0 {
		metrics.AdviceRequests.WithLabelValues("empty").Inc()
		return advice.EmptyLogMessage
	}

	key := Fingerprint(txs, balance)
	if text, ok := s.cache.Get(key); ok {
		metrics.AdviceRequests.WithLabelValues("cached").Inc()
		return text
	}
	if text, ok := s.snapshotFor(ctx, key); ok {
		s.cache.Set(key, text)
		metrics.AdviceRequests.WithLabelValues("snapshot").Inc()
		return text
	}

	ch := s.group.DoChan(key, func() (any, error) {
		genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.generate(genCtx, key, txs, balance)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			slog.WarnContext(ctx, "Advice generation failed, using fallback", "error", res.Err, "shared", res.Shared)
			metrics.AdviceRequests.WithLabelValues("fallback").Inc()
			return advice.FallbackMessage
		}
		metrics.AdviceRequests.WithLabelValues("generated").Inc()
		return res.Val.(string)
	case <-ctx.Done():
		metrics.AdviceRequests.WithLabelValues("fallback").Inc()
		return advice.FallbackMessage
	}
}

func (s *AdviceService) generate(ctx context.Context, key string, txs []core.Transaction, balance core.Money) (string, error) {
	if s.generator == nil {
		return "", errNoGenerator
	}
	start := time.Now()
	text, err := s.generator.Generate(ctx, advice.BuildPrompt(txs, s.limit, balance))
	metrics.AdviceLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", errors.New("empty advice")
	}
	s.cache.Set(key, text)
	slog.DebugContext(ctx, "Advice generated", "fingerprint", key[:12], "chars", len(text))
	return text, nil
}

func (s *AdviceService) snapshotFor(ctx context.Context, key string) (string, bool) {
	if s.snapshots == nil {
		return "", false
	}
	snap, err := s.snapshots.LoadAdvice(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to load advice snapshot", "error", err)
		return "", false
	}
	if snap == nil || snap.Fingerprint != key {
		return "", false
	}
	return snap.Text, true
}

// Refresh generates advice for txs and stores it as the current snapshot.
// An empty log clears the snapshot instead.
func (s *AdviceService) Refresh(ctx context.Context, txs []core.Transaction, balance core.Money) error {
	if s.snapshots == nil {
		return errors.New("advice snapshots not configured")
	}
	if len(txs) == 0 {
		s.cache.Clear()
		return s.snapshots.ClearAdvice(ctx)
	}

	key := Fingerprint(txs, balance)
	if snap, err := s.snapshots.LoadAdvice(ctx); err == nil && snap != nil && snap.Fingerprint == key {
		return nil
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.generate(genCtx, key, txs, balance)
	})
	if err != nil {
		return fmt.Errorf("refresh advice: %w", err)
	}

	snap := storage.AdviceSnapshot{Text: v.(string), Fingerprint: key, GeneratedAt: s.now().UTC()}
	if err := s.snapshots.SaveAdvice(ctx, snap); err != nil {
		return fmt.Errorf("refresh advice: %w", err)
	}
	slog.InfoContext(ctx, "Advice snapshot refreshed", "transactions", len(txs))
	return nil
}

// Invalidate drops cached advice and the stored snapshot.
func (s *AdviceService) Invalidate(ctx context.Context) error {
	s.cache.Clear()
	if s.snapshots == nil {
		return nil
	}
	return s.snapshots.ClearAdvice(ctx)
}
