// Package acquisition drives the accelerometer, magnetometer and gyroscope
// sharing one I2C bus. Every bus sequence takes a single non-blocking lock,
// chains its chip operations through their completions and releases the
// lock on every terminal or failure path.
package acquisition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mklimuk/motion"
	"github.com/mklimuk/motion/accel"
	"github.com/mklimuk/motion/gyro"
	"github.com/mklimuk/motion/magnetometer"
	"github.com/mklimuk/motion/snsctx"
	"github.com/mklimuk/motion/taskq"
)

var (
	ErrInitialization = errors.New("sensor initialization failed")
	ErrNotInitialized = errors.New("sensors not initialized")
)

const (
	DefaultIdentityRounds = 3
	DefaultMinIdentified  = 7
)

type Accelerometer interface {
	Open(done motion.Completion)
	CheckID(ctx context.Context, ok *bool) error
	Configure(ctx context.Context, cfg accel.Config) error
	ReadStatus(ctx context.Context, status *accel.Status) error
	ReadData(ctx context.Context, dst *motion.Axes) error
}

type Magnetometer interface {
	Open(done motion.Completion)
	CheckID(ctx context.Context, ok *bool) error
	Configure(ctx context.Context, cfg magnetometer.Config) error
	ReadData(ctx context.Context, dst *motion.Axes) error
}

type Gyroscope interface {
	Open(done motion.Completion)
	CheckID(ctx context.Context, ok *bool) error
	Configure(ctx context.Context, cfg gyro.Config) error
	ReadData(ctx context.Context, dst *gyro.Reading) error
}

// InterruptSource is the accelerometer interrupt line. Listen configures the
// pin and registers handler for rising edges; the handler must only signal.
type InterruptSource interface {
	Listen(handler func()) error
	SetMask(enabled bool)
}

// Identification counts successful identity checks per chip.
type Identification struct {
	Accelerometer int
	Magnetometer  int
	Gyroscope     int
}

func (i Identification) Total() int {
	return i.Accelerometer + i.Magnetometer + i.Gyroscope
}

type Options struct {
	Logger          *slog.Logger
	Interrupt       InterruptSource
	IdentityRounds  int
	MinIdentified   int
	Accelerometer   accel.Config
	MagnetometerOn  magnetometer.Config
	MagnetometerOff magnetometer.Config
	Gyroscope       gyro.Config
}

type Option func(*Options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

func WithInterrupt(src InterruptSource) Option {
	return func(o *Options) {
		o.Interrupt = src
	}
}

// WithIdentity sets how many identity rounds run at boot and how many checks
// over all rounds and chips must pass.
func WithIdentity(rounds, minimum int) Option {
	return func(o *Options) {
		o.IdentityRounds = rounds
		o.MinIdentified = minimum
	}
}

func WithAccelerometerConfig(cfg accel.Config) Option {
	return func(o *Options) {
		o.Accelerometer = cfg
	}
}

func WithMagnetometerConfig(active, idle magnetometer.Config) Option {
	return func(o *Options) {
		o.MagnetometerOn = active
		o.MagnetometerOff = idle
	}
}

func WithGyroscopeConfig(cfg gyro.Config) Option {
	return func(o *Options) {
		o.Gyroscope = cfg
	}
}

// Orchestrator owns the bus lock, the active sequence with its result
// buffers and the pending flags of the independently triggered reads.
type Orchestrator struct {
	acc    Accelerometer
	mag    Magnetometer
	gyr    Gyroscope
	sched  *taskq.Scheduler
	logger *slog.Logger
	opts   Options

	ctx context.Context

	mx  sync.Mutex
	bus taskq.Mutex
	seq sequence
	// relax requested while the bus was owned by someone else
	relaxDeferred bool
	settled       chan error

	statusPending atomic.Bool
	tempPending   atomic.Bool
	acquiring     atomic.Bool
	initialized   atomic.Bool

	motionTask *taskq.Task
	statusTask *taskq.Task
	tempTask   *taskq.Task
	relaxTask  *taskq.Task

	timerMx sync.Mutex
	timer   *taskq.Timer

	identified Identification
}

func New(sched *taskq.Scheduler, acc Accelerometer, mag Magnetometer, gyr Gyroscope, opts ...Option) *Orchestrator {
	options := Options{
		Logger:          slog.Default(),
		IdentityRounds:  DefaultIdentityRounds,
		MinIdentified:   DefaultMinIdentified,
		Accelerometer:   accel.DefaultConfig(),
		MagnetometerOn:  magnetometer.ActiveConfig(),
		MagnetometerOff: magnetometer.IdleConfig(),
		Gyroscope:       gyro.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	o := &Orchestrator{
		acc:     acc,
		mag:     mag,
		gyr:     gyr,
		sched:   sched,
		logger:  options.Logger,
		opts:    options,
		ctx:     context.Background(),
		settled: make(chan error, 1),
	}
	o.motionTask = sched.CreateTask("sensor", o.readMotion)
	o.statusTask = sched.CreateTask("acc status", o.readStatus)
	o.tempTask = sched.CreateTask("gyr temp", o.readTemperature)
	o.relaxTask = sched.CreateTask("sensor relax", o.relax)
	return o
}

// Initialize opens the chips, verifies they answer and configures them. It
// blocks until every step has completed and must run before the scheduler
// loop is started. Any failure is wrapped in ErrInitialization and leaves the
// orchestrator unusable.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.ctx = context.WithoutCancel(ctx)
	initCtx := snsctx.SetSequence(o.ctx, Configuring.String())
	o.logger.Debug("sens open devices")
	o.acc.Open(o.accelDone)
	o.mag.Open(o.magDone)
	o.gyr.Open(o.gyroDone)

	o.logger.Debug("sens check all online")
	checks := []struct {
		name  string
		count *int
		check func(ok *bool) error
	}{
		{"accelerometer", &o.identified.Accelerometer, func(ok *bool) error { return o.acc.CheckID(initCtx, ok) }},
		{"magnetometer", &o.identified.Magnetometer, func(ok *bool) error { return o.mag.CheckID(initCtx, ok) }},
		{"gyroscope", &o.identified.Gyroscope, func(ok *bool) error { return o.gyr.CheckID(initCtx, ok) }},
	}
	for round := 0; round < o.opts.IdentityRounds; round++ {
		for _, c := range checks {
			step, err := o.await(ctx, c.name+" identity check", func(step *configStep) error {
				return c.check(&step.identified)
			})
			if step == nil {
				return err
			}
			if err != nil {
				o.logger.Warn("identity check failed", "chip", c.name, "round", round, "error", err)
				continue
			}
			if step.identified {
				*c.count++
			}
		}
	}
	if total := o.identified.Total(); total < o.opts.MinIdentified {
		return fmt.Errorf("%w: %d of %d identity checks passed, %d required",
			ErrInitialization, total, o.opts.IdentityRounds*len(checks), o.opts.MinIdentified)
	}

	o.logger.Debug("sens configure")
	configs := []struct {
		name  string
		start func() error
	}{
		{"accelerometer configuration", func() error { return o.acc.Configure(initCtx, o.opts.Accelerometer) }},
		{"magnetometer configuration", func() error { return o.mag.Configure(initCtx, o.opts.MagnetometerOn) }},
		{"gyroscope configuration", func() error { return o.gyr.Configure(initCtx, o.opts.Gyroscope) }},
	}
	for _, c := range configs {
		step, err := o.await(ctx, c.name, func(*configStep) error { return c.start() })
		if step == nil {
			return err
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInitialization, c.name, err)
		}
	}

	if o.opts.Interrupt != nil {
		o.logger.Debug("sens setup pin irq")
		err := o.opts.Interrupt.Listen(o.HandleStatusInterrupt)
		if err != nil {
			return fmt.Errorf("%w: could not register interrupt: %w", ErrInitialization, err)
		}
		o.opts.Interrupt.SetMask(true)
	}
	o.initialized.Store(true)
	o.logger.Debug("sens setup ok", "identified", o.identified.Total())
	return nil
}

// await runs one init-time operation under the bus lock and blocks until its
// completion arrives. A nil step means the operation never ran to completion
// and err is fatal; otherwise err is the chip's completion error.
func (o *Orchestrator) await(ctx context.Context, what string, start func(step *configStep) error) (*configStep, error) {
	step := &configStep{}
	if !o.begin(step) {
		return nil, fmt.Errorf("%w: bus busy before %s", ErrInitialization, what)
	}
	err := start(step)
	if err != nil {
		o.finish()
		return nil, fmt.Errorf("%w: could not start %s: %w", ErrInitialization, what, err)
	}
	select {
	case err := <-o.settled:
		return step, err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: waiting for %s: %w", ErrInitialization, what, ctx.Err())
	}
}

// Identified returns the identity check tally of the last Initialize.
func (o *Orchestrator) Identified() Identification {
	return o.identified
}

// StartPeriodicAcquisition arms the timer enqueuing one acquisition cycle
// every period. Calling it again re-arms the timer with the new period. A
// relax requested by an earlier StopAcquisition and not yet run is cancelled.
func (o *Orchestrator) StartPeriodicAcquisition(period time.Duration) error {
	if !o.initialized.Load() {
		return ErrNotInitialized
	}
	if period <= 0 {
		return fmt.Errorf("invalid acquisition period %s", period)
	}
	o.timerMx.Lock()
	defer o.timerMx.Unlock()
	if o.timer != nil {
		o.timer.Stop()
	}
	o.mx.Lock()
	o.relaxDeferred = false
	o.acquiring.Store(true)
	o.mx.Unlock()
	o.timer = o.sched.StartTimer(o.motionTask, 0, period)
	o.logger.Debug("sens enter active", "period", period)
	return nil
}

// StopAcquisition disarms the timer and puts magnetometer and gyroscope into
// reduced power. The power change waits for the bus if a sequence owns it.
func (o *Orchestrator) StopAcquisition() {
	o.timerMx.Lock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.timerMx.Unlock()
	o.acquiring.Store(false)
	if !o.initialized.Load() {
		return
	}
	o.logger.Debug("sens enter idle")
	o.enqueue(o.relaxTask)
}

// RequestTemperatureRead schedules one gyroscope temperature read unless one
// is already pending.
func (o *Orchestrator) RequestTemperatureRead() {
	if !o.initialized.Load() {
		return
	}
	if !o.tempPending.CompareAndSwap(false, true) {
		return
	}
	if !o.enqueue(o.tempTask) {
		o.tempPending.Store(false)
	}
}

// HandleStatusInterrupt is called on the accelerometer interrupt edge. Bursts
// coalesce into a single status read.
func (o *Orchestrator) HandleStatusInterrupt() {
	o.logger.Debug("sens acc pin irq")
	if !o.initialized.Load() {
		return
	}
	if !o.statusPending.CompareAndSwap(false, true) {
		return
	}
	if !o.enqueue(o.statusTask) {
		o.statusPending.Store(false)
	}
}

// State reports which sequence owns the bus.
func (o *Orchestrator) State() State {
	o.mx.Lock()
	defer o.mx.Unlock()
	return stateOf(o.seq)
}

func (o *Orchestrator) enqueue(t *taskq.Task) bool {
	err := o.sched.Run(t, 0)
	if err != nil {
		o.logger.Warn("could not enqueue task", "task", t.Name(), "error", err)
		return false
	}
	return true
}

// begin makes seq the bus owner. It fails without side effects when another
// sequence holds the bus.
func (o *Orchestrator) begin(seq sequence) bool {
	o.mx.Lock()
	defer o.mx.Unlock()
	if !o.bus.TryLock() {
		return false
	}
	o.seq = seq
	return true
}

// finish returns to Idle and releases the bus. It is the only place the lock
// is released.
func (o *Orchestrator) finish() {
	o.mx.Lock()
	o.seq = nil
	o.bus.Unlock()
	relax := o.relaxDeferred
	o.relaxDeferred = false
	o.mx.Unlock()
	if relax {
		o.enqueue(o.relaxTask)
	}
}

// tagged names the owning sequence in bus traces.
func (o *Orchestrator) tagged(seq sequence) context.Context {
	return snsctx.SetSequence(o.ctx, stateOf(seq).String())
}

func (o *Orchestrator) current() sequence {
	o.mx.Lock()
	defer o.mx.Unlock()
	return o.seq
}

// snapshot returns state and lock together for consistency checks.
func (o *Orchestrator) snapshot() (State, bool) {
	o.mx.Lock()
	defer o.mx.Unlock()
	return stateOf(o.seq), o.bus.Locked()
}
