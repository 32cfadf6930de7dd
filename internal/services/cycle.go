package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	applog "finflow/internal/log"
	"finflow/internal/metrics"
)

// WeeklyResetPrompt is the question put to the user when a new week starts.
const WeeklyResetPrompt = "Happy New Week! Would you like to reset your budget and start fresh?"

type CycleAction string

const (
	CycleInitialize  CycleAction = "initialize"
	CycleNoAction    CycleAction = "no_action"
	CyclePromptReset CycleAction = "prompt_reset"
)

// CycleOutcome is what actually happened once a decision was acted upon.
type CycleOutcome string

const (
	OutcomeInitialized CycleOutcome = "initialized"
	OutcomeUnchanged   CycleOutcome = "unchanged"
	OutcomeReset       CycleOutcome = "reset"
	OutcomeDeclined    CycleOutcome = "declined"
	OutcomePending     CycleOutcome = "pending"
)

// ISOWeek identifies an ISO 8601 week: Monday based, owned by the year of its Thursday.
type ISOWeek struct {
	Year int `json:"year"`
	Week int `json:"week"`
}

func WeekOf(t time.Time) ISOWeek {
	y, w := t.ISOWeek()
	return ISOWeek{Year: y, Week: w}
}

func (w ISOWeek) String() string {
	return fmt.Sprintf("%04d-W%02d", w.Year, w.Week)
}

// CycleDecision is the pure result of comparing now against the cycle marker.
type CycleDecision struct {
	Action      CycleAction `json:"action"`
	Now         time.Time   `json:"now"`
	LastReset   *time.Time  `json:"last_reset,omitempty"`
	CurrentWeek ISOWeek     `json:"current_week"`
	MarkerWeek  *ISOWeek    `json:"marker_week,omitempty"`
}

// EvaluateCycle decides whether the budget cycle rolled over. Weeks are
// compared as (ISO year, week) pairs in the locations the times carry.
func EvaluateCycle(now time.Time, lastReset *time.Time) CycleDecision {
	d := CycleDecision{
		Now:         now,
		CurrentWeek: WeekOf(now),
	}
	if lastReset == nil {
		d.Action = CycleInitialize
		return d
	}

	marker := *lastReset
	markerWeek := WeekOf(marker)
	d.LastReset = &marker
	d.MarkerWeek = &markerWeek

	if markerWeek == d.CurrentWeek {
		d.Action = CycleNoAction
	} else {
		d.Action = CyclePromptReset
	}
	return d
}

// MarkerStore persists the cycle marker.
type MarkerStore interface {
	LoadMarker(ctx context.Context) (*time.Time, error)
	SaveMarker(ctx context.Context, t time.Time) error
}

// LogResetter empties the transaction log.
type LogResetter interface {
	Clear(ctx context.Context, reason ResetReason) error
}

// Confirmer asks the user a yes/no question and blocks until answered.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// CycleManager owns the cycle marker and applies cycle decisions.
type CycleManager struct {
	markers MarkerStore
	log     LogResetter
	now     func() time.Time
	loc     *time.Location
}

type CycleOption func(*CycleManager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) CycleOption {
	return func(m *CycleManager) { m.now = now }
}

// WithLocation sets the location in which week boundaries are computed.
func WithLocation(loc *time.Location) CycleOption {
	return func(m *CycleManager) {
		if loc != nil {
			m.loc = loc
		}
	}
}

func NewCycleManager(markers MarkerStore, log LogResetter, opts ...CycleOption) *CycleManager {
	m := &CycleManager{
		markers: markers,
		log:     log,
		now:     time.Now,
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Evaluate loads the marker and returns the decision for the current time.
// It does not mutate anything.
func (m *CycleManager) Evaluate(ctx context.Context) (CycleDecision, error) {
	marker, err := m.markers.LoadMarker(ctx)
	if err != nil {
		return CycleDecision{}, fmt.Errorf("evaluate cycle: %w", err)
	}
	if marker != nil {
		local := marker.In(m.loc)
		marker = &local
	}

	d := EvaluateCycle(m.now().In(m.loc), marker)
	metrics.CycleDecisions.WithLabelValues(string(d.Action)).Inc()

	attrs := applog.NewFields().
		WithComponent(applog.ComponentCycle).
		WithCycle(d.CurrentWeek.String(), string(d.Action)).
		ToSlice()
	if d.MarkerWeek != nil {
		attrs = append(attrs, "marker_week", d.MarkerWeek.String())
	}
	slog.InfoContext(ctx, "Budget cycle evaluated", attrs...)
	return d, nil
}

// Apply acts on a decision. confirmed only matters for PromptReset.
//
// A declined reset leaves the marker untouched, so the same prompt comes
// back on every evaluation until the user accepts it or the marker is
// otherwise refreshed.
func (m *CycleManager) Apply(ctx context.Context, d CycleDecision, confirmed bool) (CycleOutcome, error) {
	switch d.Action {
	case CycleInitialize:
		if err := m.markers.SaveMarker(ctx, d.Now); err != nil {
			return "", fmt.Errorf("initialize cycle marker: %w", err)
		}
		slog.InfoContext(ctx, "Budget cycle initialized", applog.FieldISOWeek, d.CurrentWeek.String())
		return OutcomeInitialized, nil

	case CycleNoAction:
		return OutcomeUnchanged, nil

	case CyclePromptReset:
		if !confirmed {
			slog.InfoContext(ctx, "Weekly reset declined, prompt will repeat", applog.FieldISOWeek, d.CurrentWeek.String())
			return OutcomeDeclined, nil
		}
		// Clear first: if it fails the marker stays old and the prompt repeats.
		if err := m.log.Clear(ctx, ResetWeekly); err != nil {
			return "", fmt.Errorf("weekly reset: %w", err)
		}
		if err := m.markers.SaveMarker(ctx, d.Now); err != nil {
			return "", fmt.Errorf("save cycle marker: %w", err)
		}
		slog.InfoContext(ctx, "Weekly reset applied", applog.FieldISOWeek, d.CurrentWeek.String())
		return OutcomeReset, nil

	default:
		return "", fmt.Errorf("unknown cycle action %q", d.Action)
	}
}

// Run evaluates the cycle once and applies the result. A nil confirmer leaves
// a PromptReset unanswered and reports OutcomePending along with the decision.
func (m *CycleManager) Run(ctx context.Context, confirmer Confirmer) (CycleDecision, CycleOutcome, error) {
	d, err := m.Evaluate(ctx)
	if err != nil {
		return d, "", err
	}

	confirmed := false
	if d.Action == CyclePromptReset {
		if confirmer == nil {
			return d, OutcomePending, nil
		}
		confirmed, err = confirmer.Confirm(ctx, WeeklyResetPrompt)
		if err != nil {
			return d, "", fmt.Errorf("confirm weekly reset: %w", err)
		}
	}

	outcome, err := m.Apply(ctx, d, confirmed)
	return d, outcome, err
}
