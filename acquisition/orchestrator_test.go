package acquisition

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/motion"
	"github.com/mklimuk/motion/accel"
	"github.com/mklimuk/motion/gyro"
	"github.com/mklimuk/motion/magnetometer"
	"github.com/mklimuk/motion/taskq"
)

type rig struct {
	o     *Orchestrator
	sched *taskq.Scheduler
	acc   *fakeAccel
	mag   *fakeMag
	gyr   *fakeGyro
	irq   *fakeInterrupt
	log   *recorder
}

func newRig(t *testing.T, opts ...Option) *rig {
	t.Helper()
	r := &rig{
		sched: taskq.New(),
		acc:   &fakeAccel{fakeChip: fakeChip{auto: true}},
		mag:   &fakeMag{fakeChip: fakeChip{auto: true}},
		gyr:   &fakeGyro{fakeChip: fakeChip{auto: true}},
		irq:   &fakeInterrupt{},
		log:   &recorder{},
	}
	opts = append([]Option{WithLogger(slog.New(r.log)), WithInterrupt(r.irq)}, opts...)
	r.o = New(r.sched, r.acc, r.mag, r.gyr, opts...)
	t.Cleanup(r.o.StopAcquisition)
	return r
}

// boot initializes with self-completing chips, then switches them to manual
// completion and starts acquisition with a timer that never fires in a test.
func (r *rig) boot(t *testing.T) {
	t.Helper()
	require.NoError(t, r.o.Initialize(context.Background()))
	for _, c := range []*fakeChip{&r.acc.fakeChip, &r.mag.fakeChip, &r.gyr.fakeChip} {
		c.auto = false
		c.started = nil
	}
	require.NoError(t, r.o.StartPeriodicAcquisition(time.Hour))
	r.log.reset()
}

// tick runs the acquisition task as the timer would.
func (r *rig) tick(t *testing.T) {
	t.Helper()
	require.NoError(t, r.sched.Run(r.o.motionTask, 0))
	require.True(t, r.sched.Step())
}

func assertConsistent(t *testing.T, o *Orchestrator) {
	t.Helper()
	state, locked := o.snapshot()
	assert.Equal(t, state != Idle, locked, "state %s, bus locked %v", state, locked)
}

func attr(rec slog.Record, key string) slog.Value {
	var v slog.Value
	rec.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			v = a.Value
			return false
		}
		return true
	})
	return v
}

func TestInitialize(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.o.Initialize(context.Background()))

	assert.Equal(t, Identification{Accelerometer: 3, Magnetometer: 3, Gyroscope: 3}, r.o.Identified())
	assert.Equal(t, 3, r.acc.count("CheckID"))
	assert.Equal(t, 1, r.acc.count("Configure"))
	assert.Equal(t, accel.DefaultConfig(), r.acc.config)
	assert.Equal(t, []magnetometer.Config{magnetometer.ActiveConfig()}, r.mag.configs)
	assert.Equal(t, []gyro.Config{gyro.DefaultConfig()}, r.gyr.configs)
	assert.NotNil(t, r.irq.handler)
	assert.False(t, r.irq.masked)
	assert.Equal(t, Idle, r.o.State())
	assertConsistent(t, r.o)
}

func TestInitialize_ToleratesSingleMiss(t *testing.T) {
	r := newRig(t)
	r.gyr.ids = []bool{false}
	require.NoError(t, r.o.Initialize(context.Background()))
	assert.Equal(t, 8, r.o.Identified().Total())
}

func TestInitialize_CompletionErrorCountsAsMiss(t *testing.T) {
	r := newRig(t)
	r.mag.autoErr = map[string]error{"CheckID": errors.New("nak")}
	err := r.o.Initialize(context.Background())
	assert.ErrorIs(t, err, ErrInitialization)
	assert.Equal(t, 0, r.o.Identified().Magnetometer)
	assert.Contains(t, r.log.messages(slog.LevelWarn), "identity check failed")
}

// Scenario E
func TestInitialize_TooFewIdentified(t *testing.T) {
	r := newRig(t)
	r.gyr.ids = []bool{false, false, false}
	err := r.o.Initialize(context.Background())

	assert.ErrorIs(t, err, ErrInitialization)
	assert.Equal(t, 6, r.o.Identified().Total())
	assert.Zero(t, r.acc.count("Configure"))
	assert.Zero(t, r.mag.count("Configure"))
	assert.Zero(t, r.gyr.count("Configure"))
	assert.Nil(t, r.irq.handler)
	assert.ErrorIs(t, r.o.StartPeriodicAcquisition(100*time.Millisecond), ErrNotInitialized)
	assertConsistent(t, r.o)
}

func TestInitialize_StartFailureIsFatal(t *testing.T) {
	nak := errors.New("nak")
	r := newRig(t)
	r.mag.startErr = nak
	err := r.o.Initialize(context.Background())
	assert.ErrorIs(t, err, ErrInitialization)
	assert.ErrorIs(t, err, nak)
	assert.Equal(t, 1, r.mag.count("CheckID"))
	assert.Zero(t, r.gyr.count("CheckID"))
	assert.Equal(t, Idle, r.o.State())
	assertConsistent(t, r.o)
}

func TestInitialize_ConfigurationFailureIsFatal(t *testing.T) {
	r := newRig(t)
	r.gyr.autoErr = map[string]error{"Configure": errors.New("nak")}
	err := r.o.Initialize(context.Background())
	assert.ErrorIs(t, err, ErrInitialization)
	assert.Nil(t, r.irq.handler)
	assertConsistent(t, r.o)
}

func TestInitialize_InterruptRegistrationFailure(t *testing.T) {
	r := newRig(t)
	r.irq.err = errors.New("no such pin")
	assert.ErrorIs(t, r.o.Initialize(context.Background()), ErrInitialization)
	assert.ErrorIs(t, r.o.StartPeriodicAcquisition(time.Second), ErrNotInitialized)
}

func TestInitialize_ContextCancelled(t *testing.T) {
	r := newRig(t)
	r.acc.auto = false
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.o.Initialize(ctx), context.Canceled)
}

// Scenario A
func TestAcquisitionCycle_Success(t *testing.T) {
	r := newRig(t)
	r.boot(t)
	r.acc.axes = motion.Axes{X: 1, Y: 2, Z: 3}
	r.mag.axes = motion.Axes{X: -1, Y: 0x7FFF, Z: -32768}
	r.gyr.reading = gyro.Reading{Temp: 5, Axes: motion.Axes{X: 0x10, Y: 0x20, Z: 0x30}}

	r.tick(t)
	assert.Equal(t, []string{"ReadData"}, r.acc.started)
	assert.Equal(t, ReadingMotionData, r.o.State())
	assertConsistent(t, r.o)

	r.acc.complete(nil)
	assert.Equal(t, []string{"ReadData"}, r.mag.started)
	assert.Equal(t, ReadingMotionData, r.o.State())
	assertConsistent(t, r.o)

	r.mag.complete(nil)
	assert.Equal(t, []string{"ReadData"}, r.gyr.started)
	assertConsistent(t, r.o)

	r.gyr.complete(nil)
	assert.Equal(t, []string{"sensor data acc:0001 0002 0003 mag:ffff 7fff 8000 gyr:0010 0020 0030"},
		r.log.messages(slog.LevelInfo))
	assert.Equal(t, Idle, r.o.State())
	assert.False(t, r.o.bus.Locked())
}

// Scenario B
func TestAcquisitionCycle_MagnetometerFailure(t *testing.T) {
	r := newRig(t)
	r.boot(t)
	r.tick(t)
	r.acc.complete(nil)
	r.mag.complete(errors.New("nak"))

	assert.Zero(t, r.gyr.count("ReadData"))
	assert.Equal(t, []string{"sens read mag data err"}, r.log.messages(slog.LevelWarn))
	assert.Empty(t, r.log.messages(slog.LevelInfo))
	assert.Equal(t, Idle, r.o.State())
	assert.False(t, r.o.bus.Locked())
}

func TestAcquisitionCycle_FailurePaths(t *testing.T) {
	nak := errors.New("nak")
	tests := []struct {
		name string
		run  func(t *testing.T, r *rig)
		warn string
	}{
		{
			name: "accelerometer start",
			run:  func(t *testing.T, r *rig) { r.acc.startErr = nak; r.tick(t) },
			warn: "sens read acc data call err",
		},
		{
			name: "accelerometer completion",
			run:  func(t *testing.T, r *rig) { r.tick(t); r.acc.complete(nak) },
			warn: "sens read acc data err",
		},
		{
			name: "magnetometer start",
			run:  func(t *testing.T, r *rig) { r.mag.startErr = nak; r.tick(t); r.acc.complete(nil) },
			warn: "sens read mag data call err",
		},
		{
			name: "gyroscope start",
			run:  func(t *testing.T, r *rig) { r.gyr.startErr = nak; r.tick(t); r.acc.complete(nil); r.mag.complete(nil) },
			warn: "sens read gyr data call err",
		},
		{
			name: "gyroscope completion",
			run:  func(t *testing.T, r *rig) { r.tick(t); r.acc.complete(nil); r.mag.complete(nil); r.gyr.complete(nak) },
			warn: "sens read gyr data err",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t)
			r.boot(t)
			tt.run(t, r)
			assert.Equal(t, []string{tt.warn}, r.log.messages(slog.LevelWarn))
			assert.Empty(t, r.log.messages(slog.LevelInfo))
			assert.Equal(t, Idle, r.o.State())
			assertConsistent(t, r.o)

			// the next tick starts a fresh cycle
			r.tick(t)
			assert.Equal(t, ReadingMotionData, r.o.State())
			assertConsistent(t, r.o)
		})
	}
}

func TestAcquisitionCycle_DroppedOnContention(t *testing.T) {
	r := newRig(t)
	r.boot(t)
	r.irq.handler()
	require.True(t, r.sched.Step())
	require.Equal(t, ReadingStatus, r.o.State())

	r.tick(t)
	assert.Zero(t, r.acc.count("ReadData"))
	assert.True(t, r.o.statusPending.Load())
	assert.False(t, r.o.tempPending.Load())
	assert.Equal(t, ReadingStatus, r.o.State())
	assert.Zero(t, r.sched.Pending())
	assertConsistent(t, r.o)

	r.acc.complete(nil)
	r.tick(t)
	assert.Equal(t, 1, r.acc.count("ReadData"))
	assert.Equal(t, ReadingMotionData, r.o.State())
}

// Scenario C
func TestStatusInterrupt_Coalesces(t *testing.T) {
	r := newRig(t)
	r.boot(t)
	r.irq.handler()
	r.irq.handler()
	assert.Equal(t, 1, r.sched.Pending())

	require.True(t, r.sched.Step())
	assert.Equal(t, []string{"ReadStatus"}, r.acc.started)
	assert.Equal(t, ReadingStatus, r.o.State())
	assertConsistent(t, r.o)

	r.irq.handler()
	assert.Zero(t, r.sched.Pending())

	r.acc.status = accel.Status{IntSource: accel.IntDataReady | accel.IntFreeFall, FIFOStatus: 0x03}
	r.acc.complete(nil)
	rec, ok := r.log.find("sens adxl state")
	require.True(t, ok)
	assert.Equal(t, "10000100", attr(rec, "int_raw").String())
	assert.True(t, attr(rec, "free_fall").Bool())
	assert.False(t, attr(rec, "activity").Bool())
	assert.Equal(t, int64(3), attr(rec, "entries").Int64())
	assert.False(t, r.o.statusPending.Load())
	assert.Equal(t, Idle, r.o.State())
	assertConsistent(t, r.o)

	r.irq.handler()
	assert.Equal(t, 1, r.sched.Pending())
}

func TestStatusRead_FailurePaths(t *testing.T) {
	t.Run("start failure", func(t *testing.T) {
		r := newRig(t)
		r.boot(t)
		r.acc.startErr = errors.New("nak")
		r.irq.handler()
		require.True(t, r.sched.Step())
		assert.Equal(t, []string{"sens read sr call err"}, r.log.messages(slog.LevelWarn))
		assert.False(t, r.o.statusPending.Load())
		assertConsistent(t, r.o)
	})
	t.Run("completion failure", func(t *testing.T) {
		r := newRig(t)
		r.boot(t)
		r.irq.handler()
		require.True(t, r.sched.Step())
		r.acc.complete(errors.New("nak"))
		assert.Equal(t, []string{"sens read sr err"}, r.log.messages(slog.LevelWarn))
		_, logged := r.log.find("sens adxl state")
		assert.False(t, logged)
		assert.False(t, r.o.statusPending.Load())
		assertConsistent(t, r.o)
	})
	t.Run("lock contention", func(t *testing.T) {
		r := newRig(t)
		r.boot(t)
		r.tick(t)
		r.irq.handler()
		require.True(t, r.sched.Step())
		assert.Zero(t, r.acc.count("ReadStatus"))
		assert.False(t, r.o.statusPending.Load())
		assert.Equal(t, ReadingMotionData, r.o.State())
		assertConsistent(t, r.o)
	})
}

// Scenario D
func TestTemperatureRead(t *testing.T) {
	r := newRig(t)
	r.boot(t)
	r.o.RequestTemperatureRead()
	r.o.RequestTemperatureRead()
	assert.Equal(t, 1, r.sched.Pending())

	require.True(t, r.sched.Step())
	assert.Equal(t, ReadingTemperature, r.o.State())
	assertConsistent(t, r.o)

	r.gyr.reading = gyro.Reading{Temp: 700}
	r.gyr.complete(nil)
	assert.Equal(t, []string{"sensor temp:700 (84.5°C)"}, r.log.messages(slog.LevelInfo))
	assert.False(t, r.o.tempPending.Load())
	assert.Equal(t, Idle, r.o.State())
	assertConsistent(t, r.o)
}

func TestTemperatureRead_FailureClearsPending(t *testing.T) {
	r := newRig(t)
	r.boot(t)
	r.o.RequestTemperatureRead()
	require.True(t, r.sched.Step())
	r.gyr.complete(errors.New("nak"))
	assert.Equal(t, []string{"sens read temp err"}, r.log.messages(slog.LevelWarn))
	assert.False(t, r.o.tempPending.Load())
	assertConsistent(t, r.o)
}

// A temperature request that loses the bus race clears its pending flag so
// that later requests are accepted.
func TestTemperatureRead_ContentionClearsPending(t *testing.T) {
	r := newRig(t)
	r.boot(t)
	r.irq.handler()
	require.True(t, r.sched.Step())

	r.o.RequestTemperatureRead()
	require.True(t, r.sched.Step())
	assert.Zero(t, r.gyr.count("ReadData"))
	assert.False(t, r.o.tempPending.Load())
	assert.Equal(t, ReadingStatus, r.o.State())

	r.acc.complete(nil)
	r.o.RequestTemperatureRead()
	assert.Equal(t, 1, r.sched.Pending())
	require.True(t, r.sched.Step())
	assert.Equal(t, ReadingTemperature, r.o.State())
}

func TestMutualExclusion(t *testing.T) {
	r := newRig(t)
	r.boot(t)
	r.o.RequestTemperatureRead()
	r.irq.handler()
	require.NoError(t, r.sched.Run(r.o.motionTask, 0))
	for r.sched.Step() {
		assertConsistent(t, r.o)
	}
	started := len(r.acc.started) + len(r.mag.started) + len(r.gyr.started)
	assert.Equal(t, 1, started)
	assert.Equal(t, ReadingTemperature, r.o.State())
}

func TestStopAcquisition(t *testing.T) {
	r := newRig(t)
	r.boot(t)
	r.o.StopAcquisition()
	require.True(t, r.sched.Step())
	assert.Equal(t, Configuring, r.o.State())
	assertConsistent(t, r.o)

	r.mag.complete(nil)
	assert.Equal(t, magnetometer.IdleConfig(), r.mag.configs[len(r.mag.configs)-1])
	r.gyr.complete(nil)
	assert.Equal(t, gyro.DefaultConfig().LowPower(), r.gyr.configs[len(r.gyr.configs)-1])
	assert.Equal(t, Idle, r.o.State())
	assertConsistent(t, r.o)

	// ticks queued before the timer was disarmed do nothing
	r.tick(t)
	assert.Zero(t, r.acc.count("ReadData"))
}

func TestStopAcquisition_WaitsForCycle(t *testing.T) {
	r := newRig(t)
	r.boot(t)
	r.tick(t)
	r.o.StopAcquisition()
	require.True(t, r.sched.Step())
	assert.Zero(t, r.mag.count("Configure"))
	assert.Equal(t, ReadingMotionData, r.o.State())

	r.acc.complete(nil)
	r.mag.complete(nil)
	r.gyr.complete(nil)
	assert.Len(t, r.log.messages(slog.LevelInfo), 1)
	assert.Equal(t, 1, r.sched.Pending())

	require.True(t, r.sched.Step())
	assert.Equal(t, 1, r.mag.count("Configure"))
	assert.Equal(t, Configuring, r.o.State())
	assertConsistent(t, r.o)
}

func TestStopAcquisition_MagnetometerStartFailure(t *testing.T) {
	r := newRig(t)
	r.boot(t)
	r.mag.startErr = errors.New("nak")
	r.o.StopAcquisition()
	require.True(t, r.sched.Step())
	assert.Equal(t, []string{"sens mag idle config call err"}, r.log.messages(slog.LevelWarn))
	assert.Equal(t, Idle, r.o.State())
	assertConsistent(t, r.o)
}

func TestStartPeriodicAcquisition_CancelsQueuedRelax(t *testing.T) {
	r := newRig(t)
	r.boot(t)
	r.o.StopAcquisition()
	require.NoError(t, r.o.StartPeriodicAcquisition(time.Hour))
	require.True(t, r.sched.Step())
	assert.Zero(t, r.mag.count("Configure"))
	assert.Zero(t, r.gyr.count("Configure"))
	assert.Equal(t, Idle, r.o.State())
	assertConsistent(t, r.o)

	r.tick(t)
	assert.Equal(t, ReadingMotionData, r.o.State())
}

func TestStartPeriodicAcquisition_CancelsDeferredRelax(t *testing.T) {
	r := newRig(t)
	r.boot(t)
	r.tick(t)
	r.o.StopAcquisition()
	require.True(t, r.sched.Step())
	require.True(t, r.o.relaxDeferred)

	require.NoError(t, r.o.StartPeriodicAcquisition(time.Hour))
	r.acc.complete(nil)
	r.mag.complete(nil)
	r.gyr.complete(nil)
	assert.Len(t, r.log.messages(slog.LevelInfo), 1)
	assert.Zero(t, r.sched.Pending())
	assert.Zero(t, r.mag.count("Configure"))
	assert.Equal(t, Idle, r.o.State())
	assertConsistent(t, r.o)
}

func TestUnexpectedCompletionLeavesBusAlone(t *testing.T) {
	r := newRig(t)
	r.boot(t)
	r.acc.done(nil)
	assert.Equal(t, []string{"unexpected completion"}, r.log.messages(slog.LevelWarn))
	assert.Equal(t, Idle, r.o.State())
	assertConsistent(t, r.o)

	r.o.RequestTemperatureRead()
	require.True(t, r.sched.Step())
	r.mag.done(nil)
	assert.Equal(t, ReadingTemperature, r.o.State())
	assertConsistent(t, r.o)
}

func TestRequestsIgnoredBeforeInitialize(t *testing.T) {
	r := newRig(t)
	r.o.RequestTemperatureRead()
	r.o.HandleStatusInterrupt()
	r.o.StopAcquisition()
	assert.Zero(t, r.sched.Pending())
}

func TestStartPeriodicAcquisition_InvalidPeriod(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.o.Initialize(context.Background()))
	assert.Error(t, r.o.StartPeriodicAcquisition(0))
}

func TestPeriodicAcquisition_Timer(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.o.Initialize(context.Background()))
	require.NoError(t, r.o.StartPeriodicAcquisition(5*time.Millisecond))
	assert.Eventually(t, func() bool { return r.sched.Pending() > 0 }, time.Second, time.Millisecond)
	require.True(t, r.sched.Step())
	// self-completing chips finish the whole chain inside the task
	assert.Len(t, r.log.messages(slog.LevelInfo), 1)
	assertConsistent(t, r.o)
}
