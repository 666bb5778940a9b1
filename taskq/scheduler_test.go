package taskq

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_StepRunsInOrder(t *testing.T) {
	s := New()
	var got []uint32
	task := s.CreateTask("record", func(arg uint32) { got = append(got, arg) })
	require.NoError(t, s.Run(task, 1))
	require.NoError(t, s.Run(task, 2))
	assert.Equal(t, 2, s.Pending())
	for s.Step() {
	}
	assert.Equal(t, []uint32{1, 2}, got)
	assert.False(t, s.Step())
}

func TestScheduler_QueueFull(t *testing.T) {
	s := New(WithQueueSize(1))
	task := s.CreateTask("noop", func(uint32) {})
	require.NoError(t, s.Run(task, 0))
	assert.ErrorIs(t, s.Run(task, 0), ErrQueueFull)
}

func TestScheduler_LoopAndTimer(t *testing.T) {
	s := New()
	var ticks atomic.Int32
	task := s.CreateTask("tick", func(uint32) { ticks.Add(1) })
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- s.Loop(ctx) }()

	tm := s.StartTimer(task, 0, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)
	tm.Stop()
	tm.Stop()
	stopped := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	// ticks queued before the stop may still run
	assert.LessOrEqual(t, ticks.Load(), stopped+2)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestScheduler_LoopStopsTimers(t *testing.T) {
	s := New()
	task := s.CreateTask("tick", func(uint32) {})
	s.StartTimer(task, 0, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Loop(ctx), context.Canceled)
	s.mx.Lock()
	defer s.mx.Unlock()
	assert.Empty(t, s.timers)
}

func TestMutex(t *testing.T) {
	var m Mutex
	assert.True(t, m.TryLock())
	assert.True(t, m.Locked())
	assert.False(t, m.TryLock())
	m.Unlock()
	assert.False(t, m.Locked())
	assert.Panics(t, func() { m.Unlock() })
}
