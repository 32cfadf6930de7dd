package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finflow/internal/storage"
	"finflow/internal/storage/memory"
)

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func TestWeekOf(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want ISOWeek
	}{
		{name: "sunday jan 1 2023 belongs to 2022", in: at(2023, time.January, 1, 12), want: ISOWeek{2022, 52}},
		{name: "monday jan 2 2023 starts week 1", in: at(2023, time.January, 2, 0), want: ISOWeek{2023, 1}},
		{name: "dec 31 2024 is in 2025 week 1", in: at(2024, time.December, 31, 8), want: ISOWeek{2025, 1}},
		{name: "jan 1 2021 is in 2020 week 53", in: at(2021, time.January, 1, 8), want: ISOWeek{2020, 53}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeekOf(tt.in))
		})
	}
	assert.Equal(t, "2023-W01", ISOWeek{2023, 1}.String())
}

func TestEvaluateCycle(t *testing.T) {
	ptr := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name      string
		now       time.Time
		lastReset *time.Time
		want      CycleAction
	}{
		{name: "first run", now: at(2025, time.January, 8, 10), lastReset: nil, want: CycleInitialize},
		{name: "first run on a week boundary", now: at(2023, time.January, 2, 0), lastReset: nil, want: CycleInitialize},
		{name: "same week earlier day", now: at(2025, time.January, 12, 23), lastReset: ptr(at(2025, time.January, 6, 0)), want: CycleNoAction},
		{name: "same instant", now: at(2025, time.January, 8, 10), lastReset: ptr(at(2025, time.January, 8, 10)), want: CycleNoAction},
		{name: "sunday to monday", now: at(2023, time.January, 2, 0), lastReset: ptr(at(2023, time.January, 1, 23)), want: CyclePromptReset},
		{name: "same week number one year apart", now: at(2025, time.January, 1, 9), lastReset: ptr(at(2024, time.January, 3, 9)), want: CyclePromptReset},
		{name: "year boundary inside one iso week", now: at(2025, time.January, 2, 9), lastReset: ptr(at(2024, time.December, 30, 9)), want: CycleNoAction},
		{name: "marker in the future", now: at(2025, time.January, 8, 9), lastReset: ptr(at(2025, time.February, 3, 9)), want: CyclePromptReset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := EvaluateCycle(tt.now, tt.lastReset)
			assert.Equal(t, tt.want, d.Action)
			assert.Equal(t, WeekOf(tt.now), d.CurrentWeek)
			if tt.lastReset == nil {
				assert.Nil(t, d.MarkerWeek)
			} else {
				require.NotNil(t, d.MarkerWeek)
				assert.Equal(t, WeekOf(*tt.lastReset), *d.MarkerWeek)
			}
		})
	}
}

func TestEvaluateCycle_NeverPromptsWithoutMarker(t *testing.T) {
	start := at(2020, time.January, 1, 0)
	for i := 0; i < 3*366; i += 5 {
		now := start.AddDate(0, 0, i)
		if got := EvaluateCycle(now, nil).Action; got != CycleInitialize {
			t.Fatalf("EvaluateCycle(%s, nil) = %s", now, got)
		}
	}
}

type cycleFixture struct {
	kv    *memory.Store
	state *storage.StateStore
	txs   *TransactionService
	now   time.Time
	mgr   *CycleManager
}

func newCycleFixture(t *testing.T, now time.Time) *cycleFixture {
	t.Helper()
	f := &cycleFixture{kv: memory.New(), now: now}
	f.state = storage.NewStateStore(f.kv)
	clock := func() time.Time { return f.now }
	f.txs = NewTransactionService(f.state, WithTransactionClock(clock), WithTransactionLocation(time.UTC))
	f.mgr = NewCycleManager(f.state, f.txs, WithClock(clock), WithLocation(time.UTC))
	return f
}

func (f *cycleFixture) addLunch(t *testing.T, amount string) {
	t.Helper()
	_, err := f.txs.Add(context.Background(), TransactionInput{Amount: amount, Category: "Lunch"})
	require.NoError(t, err)
}

func TestCycleManager_FirstRunInitializes(t *testing.T) {
	ctx := context.Background()
	f := newCycleFixture(t, at(2025, time.January, 8, 10))

	d, outcome, err := f.mgr.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, CycleInitialize, d.Action)
	assert.Equal(t, OutcomeInitialized, outcome)

	marker, err := f.state.LoadMarker(ctx)
	require.NoError(t, err)
	require.NotNil(t, marker)
	assert.True(t, marker.Equal(f.now))

	d, outcome, err = f.mgr.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, CycleNoAction, d.Action)
	assert.Equal(t, OutcomeUnchanged, outcome)
}

func TestCycleManager_ConfirmedResetClearsLogAndMovesMarker(t *testing.T) {
	ctx := context.Background()
	f := newCycleFixture(t, at(2023, time.January, 1, 20))
	_, _, err := f.mgr.Run(ctx, nil)
	require.NoError(t, err)
	f.addLunch(t, "12.50")

	f.now = at(2023, time.January, 2, 8)
	var asked string
	confirm := ConfirmFunc(func(_ context.Context, prompt string) (bool, error) {
		asked = prompt
		return true, nil
	})

	d, outcome, err := f.mgr.Run(ctx, confirm)
	require.NoError(t, err)
	assert.Equal(t, CyclePromptReset, d.Action)
	assert.Equal(t, OutcomeReset, outcome)
	assert.Equal(t, WeeklyResetPrompt, asked)
	assert.Empty(t, f.txs.Transactions())

	persisted, err := f.state.LoadTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, persisted)

	marker, err := f.state.LoadMarker(ctx)
	require.NoError(t, err)
	assert.True(t, marker.Equal(f.now))
}

func TestCycleManager_DeclineKeepsPrompting(t *testing.T) {
	ctx := context.Background()
	f := newCycleFixture(t, at(2025, time.January, 5, 12))
	_, _, err := f.mgr.Run(ctx, nil)
	require.NoError(t, err)
	f.addLunch(t, "40")

	decline := ConfirmFunc(func(context.Context, string) (bool, error) { return false, nil })
	for _, now := range []time.Time{at(2025, time.January, 6, 9), at(2025, time.January, 7, 9)} {
		f.now = now
		d, outcome, err := f.mgr.Run(ctx, decline)
		require.NoError(t, err)
		assert.Equal(t, CyclePromptReset, d.Action, "declined reset prompts again on %s", now)
		assert.Equal(t, OutcomeDeclined, outcome)
	}
	assert.Len(t, f.txs.Transactions(), 1, "declining keeps the log")

	marker, err := f.state.LoadMarker(ctx)
	require.NoError(t, err)
	assert.True(t, marker.Equal(at(2025, time.January, 5, 12)), "declining keeps the marker")
}

func TestCycleManager_PendingWithoutConfirmer(t *testing.T) {
	ctx := context.Background()
	f := newCycleFixture(t, at(2025, time.January, 5, 12))
	_, _, err := f.mgr.Run(ctx, nil)
	require.NoError(t, err)

	f.now = at(2025, time.January, 13, 9)
	d, outcome, err := f.mgr.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, CyclePromptReset, d.Action)
	assert.Equal(t, OutcomePending, outcome)

	outcome, err = f.mgr.Apply(ctx, d, true)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReset, outcome)
}

func TestCycleManager_ConfirmerError(t *testing.T) {
	ctx := context.Background()
	f := newCycleFixture(t, at(2025, time.January, 5, 12))
	_, _, err := f.mgr.Run(ctx, nil)
	require.NoError(t, err)
	f.addLunch(t, "5")

	f.now = at(2025, time.January, 6, 9)
	boom := errors.New("stdin closed")
	_, _, err = f.mgr.Run(ctx, ConfirmFunc(func(context.Context, string) (bool, error) { return false, boom }))
	assert.ErrorIs(t, err, boom)
	assert.Len(t, f.txs.Transactions(), 1)
}

func TestCycleManager_ManualResetLeavesMarker(t *testing.T) {
	ctx := context.Background()
	f := newCycleFixture(t, at(2025, time.January, 8, 10))
	_, _, err := f.mgr.Run(ctx, nil)
	require.NoError(t, err)
	before, err := f.state.LoadMarker(ctx)
	require.NoError(t, err)

	f.addLunch(t, "12")
	f.now = at(2025, time.January, 9, 10)
	require.NoError(t, f.txs.Clear(ctx, ResetManual))

	after, err := f.state.LoadMarker(ctx)
	require.NoError(t, err)
	assert.True(t, before.Equal(*after))
}

func TestCycleManager_LocationDecidesWeek(t *testing.T) {
	ctx := context.Background()
	colombo := time.FixedZone("IST", 5*3600+1800)
	kv := memory.New()
	state := storage.NewStateStore(kv)
	// Sunday 20:00 UTC is Monday 01:30 in Colombo.
	require.NoError(t, state.SaveMarker(ctx, at(2025, time.January, 5, 12)))
	now := at(2025, time.January, 5, 20)

	utc := NewCycleManager(state, NewTransactionService(state), WithClock(func() time.Time { return now }), WithLocation(time.UTC))
	d, err := utc.Evaluate(ctx)
	require.NoError(t, err)
	assert.Equal(t, CycleNoAction, d.Action)

	local := NewCycleManager(state, NewTransactionService(state), WithClock(func() time.Time { return now }), WithLocation(colombo))
	d, err = local.Evaluate(ctx)
	require.NoError(t, err)
	assert.Equal(t, CyclePromptReset, d.Action)
}

func TestCycleManager_ApplyUnknownAction(t *testing.T) {
	f := newCycleFixture(t, at(2025, time.January, 8, 10))
	_, err := f.mgr.Apply(context.Background(), CycleDecision{Action: "explode"}, true)
	assert.Error(t, err)
}
