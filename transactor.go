package motion

import (
	"context"
	"sync/atomic"
)

// Completion is invoked exactly once for every operation that started
// successfully. A nil error means the chip reported success.
type Completion func(err error)

// Transactor runs one chip operation at a time off the caller's goroutine.
// Start never blocks: it either hands the operation over or refuses it.
type Transactor struct {
	busy atomic.Bool
}

// Start launches op and reports its outcome to done. It returns ErrBusBusy
// without calling done if the previous operation is still in flight.
func (t *Transactor) Start(ctx context.Context, op func(ctx context.Context) error, done Completion) error {
	if !t.busy.CompareAndSwap(false, true) {
		return ErrBusBusy
	}
	go func() {
		err := op(ctx)
		// free before notifying so done may chain another operation
		t.busy.Store(false)
		if done != nil {
			done(err)
		}
	}()
	return nil
}

// Busy reports whether an operation is in flight.
func (t *Transactor) Busy() bool {
	return t.busy.Load()
}
