package acquisition

import (
	"github.com/mklimuk/motion"
	"github.com/mklimuk/motion/accel"
	"github.com/mklimuk/motion/gyro"
)

// State names the sequence that currently owns the bus.
type State int

const (
	Idle State = iota
	ReadingStatus
	ReadingMotionData
	ReadingTemperature
	Configuring
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ReadingStatus:
		return "reading status"
	case ReadingMotionData:
		return "reading motion data"
	case ReadingTemperature:
		return "reading temperature"
	case Configuring:
		return "configuring"
	default:
		return "unknown"
	}
}

// sequence is the active bus owner together with the buffers its chip
// operations fill. Only one exists at a time; nil means Idle.
type sequence interface {
	state() State
}

// motionCycle chains accelerometer, magnetometer and gyroscope reads.
type motionCycle struct {
	acc motion.Axes
	mag motion.Axes
	gyr gyro.Reading
}

type statusRead struct {
	status accel.Status
}

type tempRead struct {
	gyr gyro.Reading
}

// configStep is a single init-time operation awaited synchronously.
type configStep struct {
	identified bool
}

// relaxCycle puts magnetometer and gyroscope to reduced power.
type relaxCycle struct{}

func (*motionCycle) state() State { return ReadingMotionData }
func (*statusRead) state() State  { return ReadingStatus }
func (*tempRead) state() State    { return ReadingTemperature }
func (*configStep) state() State  { return Configuring }
func (*relaxCycle) state() State  { return Configuring }

func stateOf(seq sequence) State {
	if seq == nil {
		return Idle
	}
	return seq.state()
}
