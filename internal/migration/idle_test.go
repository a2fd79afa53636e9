package migration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityScheduler_IdleWithoutActivity(t *testing.T) {
	s := NewActivityScheduler(time.Hour, 40*time.Millisecond)

	budget, err := s.WaitIdle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 40*time.Millisecond, budget)
}

func TestActivityScheduler_WaitsForQuietPeriod(t *testing.T) {
	s := NewActivityScheduler(30*time.Millisecond, time.Millisecond)
	s.Touch()

	start := time.Now()
	_, err := s.WaitIdle(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestActivityScheduler_ContextCancelled(t *testing.T) {
	s := NewActivityScheduler(time.Hour, time.Millisecond)
	s.Touch()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.WaitIdle(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
