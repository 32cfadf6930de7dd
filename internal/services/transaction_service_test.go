package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finflow/internal/amqp"
	"finflow/internal/core"
	"finflow/internal/storage"
	"finflow/internal/storage/memory"
	"finflow/internal/storage/mocks"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LogEvent
	err    error
}

func (p *recordingPublisher) PublishLogEvent(_ context.Context, e *amqp.LogEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func newTestTransactionService(t *testing.T, opts ...TransactionOption) (*TransactionService, *storage.StateStore) {
	t.Helper()
	state := storage.NewStateStore(memory.New())
	now := time.Date(2025, 1, 10, 23, 30, 0, 0, time.UTC)
	ids := 0
	base := []TransactionOption{
		WithTransactionClock(func() time.Time { return now }),
		WithTransactionLocation(time.UTC),
		WithIDGenerator(func() string { ids++; return "id-" + string(rune('a'+ids-1)) }),
	}
	return NewTransactionService(state, append(base, opts...)...), state
}

func TestTransactionService_Add(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc, state := newTestTransactionService(t, WithPublisher(pub))

	first, err := svc.Add(ctx, TransactionInput{Amount: "12,50", Category: "lunch"})
	require.NoError(t, err)
	assert.Equal(t, "Lunch", first.Category)
	assert.Equal(t, "Lunch", first.Description, "blank description falls back to category")
	assert.Equal(t, "lunch", first.Icon)
	assert.Equal(t, core.Expense, first.Type)
	assert.Equal(t, "2025-01-10", first.Date.String())

	second, err := svc.Add(ctx, TransactionInput{Amount: "300", Description: "Tuk tuk", Category: "Transport", Type: "expense"})
	require.NoError(t, err)

	got := svc.Transactions()
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID, "new entries are prepended")
	assert.Equal(t, first.ID, got[1].ID)

	persisted, err := state.LoadTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, got, persisted, "whole log written after each add")

	require.Len(t, pub.events, 2)
	assert.Equal(t, amqp.EventTransactionAdded, pub.events[1].Kind)
	assert.Equal(t, second.ID, pub.events[1].TransactionID)
	assert.Equal(t, 2, pub.events[1].Count)
}

func TestTransactionService_AddDefaults(t *testing.T) {
	svc, _ := newTestTransactionService(t)
	got, err := svc.Add(context.Background(), TransactionInput{Amount: "0"})
	require.NoError(t, err)
	assert.Equal(t, core.DefaultCategory().Name, got.Category)
	assert.True(t, got.Amount.IsZero(), "zero amounts are accepted")
}

func TestTransactionService_AddRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		in      TransactionInput
		wantErr error
	}{
		{name: "non numeric", in: TransactionInput{Amount: "abc"}, wantErr: core.ErrInvalidAmount},
		{name: "negative", in: TransactionInput{Amount: "-5"}, wantErr: core.ErrInvalidAmount},
		{name: "empty", in: TransactionInput{Amount: ""}, wantErr: core.ErrInvalidAmount},
		{name: "unknown category", in: TransactionInput{Amount: "5", Category: "Yachts"}, wantErr: core.ErrUnknownCategory},
		{name: "bad type", in: TransactionInput{Amount: "5", Type: "transfer"}, wantErr: core.ErrInvalidType},
		{name: "long description", in: TransactionInput{Amount: "5", Description: strings.Repeat("x", 201)}, wantErr: core.ErrDescriptionTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &recordingPublisher{}
			svc, state := newTestTransactionService(t, WithPublisher(pub))

			_, err := svc.Add(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, svc.Transactions())
			assert.Empty(t, pub.events)

			persisted, err := state.LoadTransactions(context.Background())
			require.NoError(t, err)
			assert.Empty(t, persisted)
		})
	}
}

func TestTransactionService_PublishFailureDoesNotFailAdd(t *testing.T) {
	pub := &recordingPublisher{err: amqp.ErrCircuitOpen}
	svc, _ := newTestTransactionService(t, WithPublisher(pub))

	_, err := svc.Add(context.Background(), TransactionInput{Amount: "1"})
	require.NoError(t, err)
	assert.Len(t, svc.Transactions(), 1)
}

func TestTransactionService_SaveFailureKeepsMemoryLog(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	boom := errors.New("disk full")
	kv := mocks.NewMockKV(ctrl)
	kv.EXPECT().Save(gomock.Any(), storage.KeyTransactions, gomock.Any()).Return(boom)

	svc := NewTransactionService(storage.NewStateStore(kv))
	_, err := svc.Add(context.Background(), TransactionInput{Amount: "1"})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, svc.Transactions())
}

func TestTransactionService_LoadAndClear(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	state := storage.NewStateStore(kv)
	lunch, _ := core.LookupCategory("Lunch")
	require.NoError(t, state.SaveTransactions(ctx, []core.Transaction{
		core.NewTransaction("x", core.Money{Cents: 100}, "", lunch, core.NewDate(2025, 1, 1), core.Expense),
	}))

	pub := &recordingPublisher{}
	svc := NewTransactionService(state, WithPublisher(pub))
	require.NoError(t, svc.Load(ctx))
	assert.Len(t, svc.Transactions(), 1)

	require.NoError(t, svc.Clear(ctx, ResetManual))
	assert.Empty(t, svc.Transactions())
	_, found, _ := kv.Load(ctx, storage.KeyTransactions)
	assert.False(t, found)

	require.Len(t, pub.events, 1)
	assert.Equal(t, amqp.EventLogCleared, pub.events[0].Kind)
	assert.Equal(t, "manual", pub.events[0].Reason)
}

func TestTransactionService_LoadError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	kv := mocks.NewMockKV(ctrl)
	kv.EXPECT().Load(gomock.Any(), storage.KeyTransactions).Return(nil, false, errors.New("locked"))

	svc := NewTransactionService(storage.NewStateStore(kv))
	assert.Error(t, svc.Load(context.Background()))
}

func TestTransactionService_DuplicateID(t *testing.T) {
	svc := NewTransactionService(storage.NewStateStore(memory.New()), WithIDGenerator(func() string { return "same" }))
	_, err := svc.Add(context.Background(), TransactionInput{Amount: "1"})
	require.NoError(t, err)
	_, err = svc.Add(context.Background(), TransactionInput{Amount: "2"})
	assert.Error(t, err)
	assert.Len(t, svc.Transactions(), 1)
}

func TestTransactionService_ConcurrentAdds(t *testing.T) {
	svc := NewTransactionService(storage.NewStateStore(memory.New()))
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Add(context.Background(), TransactionInput{Amount: "1"})
		}()
	}
	wg.Wait()
	assert.Len(t, svc.Transactions(), 20)
}
