package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finflow/internal/advice/mocks"
	"finflow/internal/amqp"
	"finflow/internal/core"
	"finflow/internal/services"
	"finflow/internal/storage"
	"finflow/internal/storage/memory"
)

func setup(t *testing.T, gen *mocks.MockGenerator) (*AdviceWorker, *storage.StateStore) {
	t.Helper()
	state := storage.NewStateStore(memory.New())
	advisor := services.NewAdviceService(gen, state, services.AdviceConfig{
		Timeout:     time.Second,
		WeeklyLimit: core.Money{Cents: 350000},
	})
	return NewAdviceWorker(state, advisor, core.Money{Cents: 489390}), state
}

func seed(t *testing.T, state *storage.StateStore) {
	t.Helper()
	dinner, _ := core.LookupCategory("Dinner")
	require.NoError(t, state.SaveTransactions(context.Background(), []core.Transaction{
		core.NewTransaction("d1", core.Money{Cents: 95000}, "Kottu", dinner, core.NewDate(2025, 1, 9), core.Expense),
	}))
}

func TestAdviceWorker_TransactionAddedRefreshesSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)
	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("Cook dinner at home", nil)

	w, state := setup(t, gen)
	seed(t, state)

	ctx := context.Background()
	require.NoError(t, w.HandleLogEvent(ctx, amqp.NewTransactionAddedEvent("d1", 1)))

	snap, err := state.LoadAdvice(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "Cook dinner at home", snap.Text)
}

func TestAdviceWorker_LogClearedDropsSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	w, state := setup(t, mocks.NewMockGenerator(ctrl))
	ctx := context.Background()
	require.NoError(t, state.SaveAdvice(ctx, storage.AdviceSnapshot{Text: "old", Fingerprint: "f"}))

	require.NoError(t, w.HandleLogEvent(ctx, amqp.NewLogClearedEvent("weekly")))

	snap, err := state.LoadAdvice(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestAdviceWorker_GeneratorErrorRequeues(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)
	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("", errors.New("503"))

	w, state := setup(t, gen)
	seed(t, state)

	err := w.HandleLogEvent(context.Background(), amqp.NewTransactionAddedEvent("d1", 1))
	assert.Error(t, err)
}

func TestAdviceWorker_StartupRefreshWithEmptyLog(t *testing.T) {
	ctrl := gomock.NewController(t)
	w, _ := setup(t, mocks.NewMockGenerator(ctrl))
	assert.NoError(t, w.StartupRefresh(context.Background()))
}

func TestAdviceWorker_UnknownKindIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	w, _ := setup(t, mocks.NewMockGenerator(ctrl))
	assert.NoError(t, w.HandleLogEvent(context.Background(), &amqp.LogEvent{Kind: "mystery"}))
}
