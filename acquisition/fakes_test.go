package acquisition

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mklimuk/motion"
	"github.com/mklimuk/motion/accel"
	"github.com/mklimuk/motion/gyro"
	"github.com/mklimuk/motion/magnetometer"
)

// fakeChip holds at most one started operation until the test completes it.
// With auto set every operation completes successfully before returning.
type fakeChip struct {
	done     motion.Completion
	auto     bool
	autoErr  map[string]error
	started  []string
	startErr error
	// identity answers consumed by successive CheckID calls, true when empty
	ids     []bool
	pending func()
}

func (f *fakeChip) Open(done motion.Completion) {
	f.done = done
}

func (f *fakeChip) start(op string, fill func()) error {
	f.started = append(f.started, op)
	if f.startErr != nil {
		err := f.startErr
		f.startErr = nil
		return err
	}
	f.pending = fill
	if f.auto {
		f.complete(f.autoErr[op])
	}
	return nil
}

// complete delivers the completion of the pending operation, filling the
// destination buffer on success.
func (f *fakeChip) complete(err error) {
	fill := f.pending
	f.pending = nil
	if err == nil && fill != nil {
		fill()
	}
	f.done(err)
}

func (f *fakeChip) checkID(ok *bool) error {
	return f.start("CheckID", func() {
		*ok = true
		if len(f.ids) > 0 {
			*ok = f.ids[0]
			f.ids = f.ids[1:]
		}
	})
}

func (f *fakeChip) count(op string) int {
	n := 0
	for _, s := range f.started {
		if s == op {
			n++
		}
	}
	return n
}

type fakeAccel struct {
	fakeChip
	axes   motion.Axes
	status accel.Status
	config accel.Config
}

func (f *fakeAccel) CheckID(ctx context.Context, ok *bool) error { return f.checkID(ok) }

func (f *fakeAccel) Configure(ctx context.Context, cfg accel.Config) error {
	return f.start("Configure", func() { f.config = cfg })
}

func (f *fakeAccel) ReadStatus(ctx context.Context, status *accel.Status) error {
	return f.start("ReadStatus", func() { *status = f.status })
}

func (f *fakeAccel) ReadData(ctx context.Context, dst *motion.Axes) error {
	return f.start("ReadData", func() { *dst = f.axes })
}

type fakeMag struct {
	fakeChip
	axes    motion.Axes
	configs []magnetometer.Config
}

func (f *fakeMag) CheckID(ctx context.Context, ok *bool) error { return f.checkID(ok) }

func (f *fakeMag) Configure(ctx context.Context, cfg magnetometer.Config) error {
	return f.start("Configure", func() { f.configs = append(f.configs, cfg) })
}

func (f *fakeMag) ReadData(ctx context.Context, dst *motion.Axes) error {
	return f.start("ReadData", func() { *dst = f.axes })
}

type fakeGyro struct {
	fakeChip
	reading gyro.Reading
	configs []gyro.Config
}

func (f *fakeGyro) CheckID(ctx context.Context, ok *bool) error { return f.checkID(ok) }

func (f *fakeGyro) Configure(ctx context.Context, cfg gyro.Config) error {
	return f.start("Configure", func() { f.configs = append(f.configs, cfg) })
}

func (f *fakeGyro) ReadData(ctx context.Context, dst *gyro.Reading) error {
	return f.start("ReadData", func() { *dst = f.reading })
}

type fakeInterrupt struct {
	handler func()
	masked  bool
	err     error
}

func (f *fakeInterrupt) Listen(handler func()) error {
	if f.err != nil {
		return f.err
	}
	f.handler = handler
	f.masked = true
	return nil
}

func (f *fakeInterrupt) SetMask(enabled bool) {
	f.masked = !enabled
}

// recorder is a slog handler keeping every record.
type recorder struct {
	mu      sync.Mutex
	records []slog.Record
}

func (r *recorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *recorder) Handle(_ context.Context, rec slog.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec.Clone())
	return nil
}

func (r *recorder) WithAttrs([]slog.Attr) slog.Handler { return r }

func (r *recorder) WithGroup(string) slog.Handler { return r }

func (r *recorder) messages(level slog.Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var msgs []string
	for _, rec := range r.records {
		if rec.Level == level {
			msgs = append(msgs, rec.Message)
		}
	}
	return msgs
}

func (r *recorder) find(msg string) (slog.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.Message == msg {
			return rec, true
		}
	}
	return slog.Record{}, false
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}
