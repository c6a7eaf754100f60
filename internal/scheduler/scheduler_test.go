// internal/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-pipeline/internal/common/logger"
)

func TestScheduler_Validation(t *testing.T) {
	log := logger.NewNoOpLogger()

	_, err := New(0, func(context.Context) {}, log)
	assert.Error(t, err)

	_, err = New(time.Second, nil, log)
	assert.Error(t, err)
}

func TestScheduler_StartStop(t *testing.T) {
	var ticks atomic.Int64
	s, err := New(10*time.Millisecond, func(context.Context) {
		ticks.Add(1)
	}, logger.NewNoOpLogger())
	require.NoError(t, err)

	assert.True(t, s.Start())
	assert.False(t, s.Start(), "second Start on a running scheduler")
	assert.True(t, s.IsRunning())

	// The first tick fires immediately; wait for at least one more.
	assert.Eventually(t, func() bool {
		return ticks.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	assert.True(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.False(t, s.Stop(), "second Stop on a stopped scheduler")

	stopped := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, ticks.Load(), "no ticks after Stop")
}

func TestScheduler_TickPanicRecovered(t *testing.T) {
	var ticks atomic.Int64
	s, err := New(10*time.Millisecond, func(context.Context) {
		ticks.Add(1)
		panic("sweep exploded")
	}, logger.NewNoOpLogger())
	require.NoError(t, err)

	require.True(t, s.Start())
	defer s.Stop()

	// A panicking tick must not kill the loop.
	assert.Eventually(t, func() bool {
		return ticks.Load() >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestScheduler_Restart(t *testing.T) {
	var ticks atomic.Int64
	s, err := New(10*time.Millisecond, func(context.Context) {
		ticks.Add(1)
	}, logger.NewNoOpLogger())
	require.NoError(t, err)

	require.True(t, s.Start())
	require.True(t, s.Stop())

	first := ticks.Load()
	require.True(t, s.Start())
	assert.Eventually(t, func() bool {
		return ticks.Load() > first
	}, time.Second, 5*time.Millisecond)
	require.True(t, s.Stop())
}
