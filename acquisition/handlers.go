package acquisition

import (
	"fmt"

	"github.com/mklimuk/motion/gyro"
)

// readMotion starts an acquisition cycle. A tick that finds the bus busy is
// dropped; the next tick tries again.
func (o *Orchestrator) readMotion(uint32) {
	if !o.acquiring.Load() {
		return
	}
	cycle := &motionCycle{}
	if !o.begin(cycle) {
		return
	}
	err := o.acc.ReadData(o.tagged(cycle), &cycle.acc)
	if err != nil {
		o.logger.Warn("sens read acc data call err", "error", err)
		o.finish()
	}
}

func (o *Orchestrator) readStatus(uint32) {
	read := &statusRead{}
	if !o.begin(read) {
		// the next interrupt may try again
		o.statusPending.Store(false)
		return
	}
	err := o.acc.ReadStatus(o.tagged(read), &read.status)
	if err != nil {
		o.logger.Warn("sens read sr call err", "error", err)
		o.statusPending.Store(false)
		o.finish()
	}
}

func (o *Orchestrator) readTemperature(uint32) {
	read := &tempRead{}
	if !o.begin(read) {
		// cleared so that a later request is not locked out forever
		o.tempPending.Store(false)
		return
	}
	err := o.gyr.ReadData(o.tagged(read), &read.gyr)
	if err != nil {
		o.logger.Warn("sens read temp call err", "error", err)
		o.tempPending.Store(false)
		o.finish()
	}
}

// relax switches magnetometer and gyroscope to their reduced power setup. If
// the bus is owned it runs again as soon as the owner finishes. A relax
// overtaken by a new StartPeriodicAcquisition is dropped.
func (o *Orchestrator) relax(uint32) {
	cycle := &relaxCycle{}
	o.mx.Lock()
	if o.acquiring.Load() {
		o.mx.Unlock()
		return
	}
	if !o.bus.TryLock() {
		o.relaxDeferred = true
		o.mx.Unlock()
		return
	}
	o.seq = cycle
	o.mx.Unlock()
	err := o.mag.Configure(o.tagged(cycle), o.opts.MagnetometerOff)
	if err != nil {
		o.logger.Warn("sens mag idle config call err", "error", err)
		o.finish()
	}
}

func (o *Orchestrator) accelDone(err error) {
	switch seq := o.current().(type) {
	case *motionCycle:
		if err != nil {
			o.logger.Warn("sens read acc data err", "error", err)
			o.finish()
			return
		}
		err = o.mag.ReadData(o.tagged(seq), &seq.mag)
		if err != nil {
			o.logger.Warn("sens read mag data call err", "error", err)
			o.finish()
		}
	case *statusRead:
		if err != nil {
			o.logger.Warn("sens read sr err", "error", err)
		} else {
			o.logStatus(seq)
		}
		o.statusPending.Store(false)
		o.finish()
	case *configStep:
		o.settle(err)
	default:
		o.unexpected("accelerometer", seq, err)
	}
}

func (o *Orchestrator) magDone(err error) {
	switch seq := o.current().(type) {
	case *motionCycle:
		if err != nil {
			o.logger.Warn("sens read mag data err", "error", err)
			o.finish()
			return
		}
		err = o.gyr.ReadData(o.tagged(seq), &seq.gyr)
		if err != nil {
			o.logger.Warn("sens read gyr data call err", "error", err)
			o.finish()
		}
	case *relaxCycle:
		if err != nil {
			o.logger.Warn("sens mag idle config err", "error", err)
		}
		err = o.gyr.Configure(o.tagged(seq), o.opts.Gyroscope.LowPower())
		if err != nil {
			o.logger.Warn("sens gyr low power config call err", "error", err)
			o.finish()
		}
	case *configStep:
		o.settle(err)
	default:
		o.unexpected("magnetometer", seq, err)
	}
}

// gyroDone terminates both the acquisition cycle and the temperature read
// whatever the outcome.
func (o *Orchestrator) gyroDone(err error) {
	switch seq := o.current().(type) {
	case *motionCycle:
		if err != nil {
			o.logger.Warn("sens read gyr data err", "error", err)
		} else {
			o.logger.Info(fusedSample(seq))
		}
		o.finish()
	case *tempRead:
		if err != nil {
			o.logger.Warn("sens read temp err", "error", err)
		} else {
			o.logger.Info(temperature(seq.gyr.Temp))
		}
		o.tempPending.Store(false)
		o.finish()
	case *relaxCycle:
		if err != nil {
			o.logger.Warn("sens gyr low power config err", "error", err)
		}
		o.finish()
	case *configStep:
		o.settle(err)
	default:
		o.unexpected("gyroscope", seq, err)
	}
}

// settle ends an init-time step and wakes the waiting Initialize.
func (o *Orchestrator) settle(err error) {
	o.finish()
	select {
	case o.settled <- err:
	default:
		o.logger.Warn("configuration completion dropped", "error", err)
	}
}

// unexpected covers completions arriving with no sequence of theirs
// active. The bus is left alone since it belongs to somebody else.
func (o *Orchestrator) unexpected(chip string, seq sequence, err error) {
	o.logger.Warn("unexpected completion", "chip", chip, "state", stateOf(seq), "error", err)
}

func (o *Orchestrator) logStatus(read *statusRead) {
	st := read.status
	actX, actY, actZ := st.ActivityAxes()
	tapX, tapY, tapZ := st.TapAxes()
	o.logger.Debug("sens adxl state",
		"int_raw", fmt.Sprintf("%08b", st.IntSource),
		"data_ready", st.DataReady(),
		"activity", st.Activity(),
		"inactivity", st.Inactivity(),
		"single_tap", st.SingleTap(),
		"double_tap", st.DoubleTap(),
		"free_fall", st.FreeFall(),
		"overrun", st.Overrun(),
		"watermark", st.Watermark(),
		"act_tap_sleep", fmt.Sprintf("%08b", st.ActTapStatus),
		"act_xyz", []bool{actX, actY, actZ},
		"tap_xyz", []bool{tapX, tapY, tapZ},
		"sleep", st.Asleep(),
		"fifo_trigger", st.FIFOTriggered(),
		"entries", st.FIFOEntries(),
	)
}

// fusedSample renders one cycle as 16-bit two's complement hex words.
func fusedSample(c *motionCycle) string {
	return fmt.Sprintf("sensor data acc:%04x %04x %04x mag:%04x %04x %04x gyr:%04x %04x %04x",
		uint16(c.acc.X), uint16(c.acc.Y), uint16(c.acc.Z),
		uint16(c.mag.X), uint16(c.mag.Y), uint16(c.mag.Z),
		uint16(c.gyr.X), uint16(c.gyr.Y), uint16(c.gyr.Z))
}

func temperature(raw int16) string {
	return fmt.Sprintf("sensor temp:%d (%s°C)", raw, gyro.FormatCelsius(raw))
}
