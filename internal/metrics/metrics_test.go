package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(LogResets.WithLabelValues("manual"))
	LogResets.WithLabelValues("manual").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(LogResets.WithLabelValues("manual")))

	WeeklySpent.Set(12.5)
	assert.Equal(t, 12.5, testutil.ToFloat64(WeeklySpent))
}

func TestCollectorsLint(t *testing.T) {
	problems, err := testutil.CollectAndLint(CycleDecisions)
	assert.NoError(t, err)
	assert.Empty(t, problems)
}
