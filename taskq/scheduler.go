// Package taskq is a cooperative run-to-completion task queue. Exactly one
// task body executes at a time; timers and interrupt handlers only enqueue.
package taskq

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrQueueFull = errors.New("taskq: run queue full")

const defaultQueueSize = 16

type TaskFunc func(arg uint32)

// Task is a named, reusable unit of work. The same task may be queued
// several times; each run receives its own arg.
type Task struct {
	name string
	fn   TaskFunc
}

func (t *Task) Name() string {
	return t.name
}

type job struct {
	task *Task
	arg  uint32
}

type Scheduler struct {
	queue  chan job
	logger *slog.Logger

	mx     sync.Mutex
	timers map[*Timer]struct{}
}

type Option func(*Scheduler)

func WithQueueSize(size int) Option {
	return func(s *Scheduler) {
		s.queue = make(chan job, size)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		queue:  make(chan job, defaultQueueSize),
		logger: slog.Default(),
		timers: make(map[*Timer]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) CreateTask(name string, fn TaskFunc) *Task {
	return &Task{name: name, fn: fn}
}

// Run enqueues t without blocking. It is safe to call from any goroutine,
// including interrupt watchers and chip completions.
func (s *Scheduler) Run(t *Task, arg uint32) error {
	select {
	case s.queue <- job{task: t, arg: arg}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of queued runs.
func (s *Scheduler) Pending() int {
	return len(s.queue)
}

// Step executes one queued run on the calling goroutine and reports whether
// there was one.
func (s *Scheduler) Step() bool {
	select {
	case j := <-s.queue:
		s.exec(j)
		return true
	default:
		return false
	}
}

// Loop executes queued runs one at a time until ctx is done. Timers are
// stopped on return.
func (s *Scheduler) Loop(ctx context.Context) error {
	defer s.stopTimers()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j := <-s.queue:
			s.exec(j)
		}
	}
}

func (s *Scheduler) exec(j job) {
	s.logger.Debug("run task", "task", j.task.name, "arg", j.arg)
	j.task.fn(j.arg)
}

// Timer periodically enqueues a task until stopped.
type Timer struct {
	s    *Scheduler
	task *Task
	stop chan struct{}
	once sync.Once
}

// StartTimer enqueues t every period. A tick that finds the queue full is
// dropped; the next one tries again.
func (s *Scheduler) StartTimer(t *Task, arg uint32, period time.Duration) *Timer {
	tm := &Timer{s: s, task: t, stop: make(chan struct{})}
	s.mx.Lock()
	s.timers[tm] = struct{}{}
	s.mx.Unlock()
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-tm.stop:
				return
			case <-ticker.C:
				err := s.Run(t, arg)
				if err != nil {
					s.logger.Warn("timer tick dropped", "task", t.name, "error", err)
				}
			}
		}
	}()
	return tm
}

// Stop disarms the timer. It is safe to call more than once.
func (tm *Timer) Stop() {
	tm.once.Do(func() {
		close(tm.stop)
		tm.s.mx.Lock()
		delete(tm.s.timers, tm)
		tm.s.mx.Unlock()
	})
}

func (s *Scheduler) stopTimers() {
	s.mx.Lock()
	timers := make([]*Timer, 0, len(s.timers))
	for tm := range s.timers {
		timers = append(timers, tm)
	}
	s.mx.Unlock()
	for _, tm := range timers {
		tm.Stop()
	}
}
