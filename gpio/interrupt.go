package gpio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

var ErrListening = errors.New("interrupt handler already registered")

const defaultPoll = 100 * time.Millisecond

// EdgeInterrupt delivers rising edges of an input pin to a handler. Edges are
// dropped while the interrupt is masked.
type EdgeInterrupt struct {
	pin    gpio.PinIn
	pull   gpio.Pull
	poll   time.Duration
	logger *slog.Logger

	enabled atomic.Bool
	mx      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
}

type Option func(*EdgeInterrupt)

func WithLogger(logger *slog.Logger) Option {
	return func(e *EdgeInterrupt) {
		e.logger = logger
	}
}

// WithPull overrides the pull-down resistor setting.
func WithPull(pull gpio.Pull) Option {
	return func(e *EdgeInterrupt) {
		e.pull = pull
	}
}

// WithPoll sets how long a single edge wait lasts before checking whether
// the listener was closed.
func WithPoll(poll time.Duration) Option {
	return func(e *EdgeInterrupt) {
		e.poll = poll
	}
}

// Open looks the pin up by name in the host gpio registry.
func Open(name string, opts ...Option) (*EdgeInterrupt, error) {
	_, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("gpio pin %s not found", name)
	}
	return NewEdgeInterrupt(pin, opts...), nil
}

func NewEdgeInterrupt(pin gpio.PinIn, opts ...Option) *EdgeInterrupt {
	e := &EdgeInterrupt{
		pin:    pin,
		pull:   gpio.PullDown,
		poll:   defaultPoll,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Listen configures the pin as an input triggering on rising edges and calls
// handler from a dedicated goroutine for every edge seen while unmasked. The
// interrupt starts masked.
func (e *EdgeInterrupt) Listen(handler func()) error {
	e.mx.Lock()
	defer e.mx.Unlock()
	if e.stop != nil {
		return ErrListening
	}
	err := e.pin.In(e.pull, gpio.RisingEdge)
	if err != nil {
		return fmt.Errorf("could not configure pin %s: %w", e.pin, err)
	}
	e.enabled.Store(false)
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	go e.watch(handler, e.stop, e.done)
	return nil
}

func (e *EdgeInterrupt) watch(handler func(), stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		default:
		}
		if !e.pin.WaitForEdge(e.poll) {
			continue
		}
		if !e.enabled.Load() {
			e.logger.Debug("masked edge dropped", "pin", e.pin.Name())
			continue
		}
		handler()
	}
}

// SetMask enables or disables edge delivery.
func (e *EdgeInterrupt) SetMask(enabled bool) {
	e.enabled.Store(enabled)
}

// Close stops the listener and halts the pin.
func (e *EdgeInterrupt) Close() error {
	e.mx.Lock()
	stop, done := e.stop, e.done
	e.stop, e.done = nil, nil
	e.mx.Unlock()
	if stop == nil {
		return nil
	}
	e.enabled.Store(false)
	close(stop)
	// unblocks WaitForEdge on drivers supporting it
	err := e.pin.Halt()
	<-done
	if err != nil {
		return fmt.Errorf("could not halt pin %s: %w", e.pin, err)
	}
	return nil
}
