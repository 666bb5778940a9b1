package accel

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/mklimuk/motion"
)

// DefaultAddress is the 7-bit address with ALT ADDRESS tied low.
const DefaultAddress = 0x53

const deviceID = 0xE5

const (
	regDevID       = 0x00
	regThreshTap   = 0x1D
	regDur         = 0x21
	regLatent      = 0x22
	regWindow      = 0x23
	regThreshAct   = 0x24
	regThreshInact = 0x25
	regTimeInact   = 0x26
	regActInactCtl = 0x27
	regThreshFF    = 0x28
	regTimeFF      = 0x29
	regTapAxes     = 0x2A
	regActTapStat  = 0x2B
	regBWRate      = 0x2C
	regPowerCtl    = 0x2D
	regIntEnable   = 0x2E
	regIntMap      = 0x2F
	regIntSource   = 0x30
	regDataFormat  = 0x31
	regDataX0      = 0x32
	regFIFOCtl     = 0x38
	regFIFOStatus  = 0x39
)

// ADXL345 represents Analog Devices ADXL345 3-axis accelerometer.
// Every operation only starts the transfer; the outcome is reported to the
// completion registered with Open.
//
//	a := NewADXL345(bus)
//	a.Open(func(err error) { ... })
//	err := a.ReadData(ctx, &axes)
type ADXL345 struct {
	tx        motion.Transactor
	transport motion.I2CBus
	address   byte
	done      motion.Completion
}

type ADXL345Config struct {
	Address byte
}

type ADXL345Option func(*ADXL345Config)

func WithAddress(address byte) ADXL345Option {
	return func(c *ADXL345Config) {
		c.Address = address
	}
}

func NewADXL345(trans motion.I2CBus, opts ...ADXL345Option) *ADXL345 {
	config := &ADXL345Config{
		Address: DefaultAddress,
	}
	for _, opt := range opts {
		opt(config)
	}
	return &ADXL345{transport: trans, address: config.Address}
}

// Open registers the completion invoked once per started operation.
func (a *ADXL345) Open(done motion.Completion) {
	a.done = done
}

// CheckID sets ok to whether the chip answers with the ADXL345 device id.
func (a *ADXL345) CheckID(ctx context.Context, ok *bool) error {
	return a.tx.Start(ctx, func(ctx context.Context) error {
		buf := []byte{0x00}
		err := motion.ReadRegister(ctx, a.transport, a.address, regDevID, buf)
		if err != nil {
			return fmt.Errorf("adxl345: could not read device id: %w", err)
		}
		*ok = buf[0] == deviceID
		return nil
	}, a.done)
}

// Configure writes the whole configuration. Interrupts are enabled last so
// that no event fires against a half-written setup.
func (a *ADXL345) Configure(ctx context.Context, cfg Config) error {
	regs := cfg.registers()
	return a.tx.Start(ctx, func(ctx context.Context) error {
		for _, r := range regs {
			err := motion.WriteRegister(ctx, a.transport, a.address, r[0], r[1])
			if err != nil {
				return fmt.Errorf("adxl345: configuration failed: %w", err)
			}
		}
		return nil
	}, a.done)
}

// ReadStatus reads interrupt source, activity/tap status and FIFO status.
// Reading INT_SOURCE clears latched interrupts on the chip.
func (a *ADXL345) ReadStatus(ctx context.Context, status *Status) error {
	return a.tx.Start(ctx, func(ctx context.Context) error {
		buf := []byte{0x00}
		err := motion.ReadRegister(ctx, a.transport, a.address, regIntSource, buf)
		if err != nil {
			return fmt.Errorf("adxl345: could not read interrupt source: %w", err)
		}
		status.IntSource = buf[0]
		err = motion.ReadRegister(ctx, a.transport, a.address, regActTapStat, buf)
		if err != nil {
			return fmt.Errorf("adxl345: could not read act/tap status: %w", err)
		}
		status.ActTapStatus = buf[0]
		err = motion.ReadRegister(ctx, a.transport, a.address, regFIFOStatus, buf)
		if err != nil {
			return fmt.Errorf("adxl345: could not read fifo status: %w", err)
		}
		status.FIFOStatus = buf[0]
		return nil
	}, a.done)
}

// ReadData reads one acceleration sample (little endian, X/Y/Z).
func (a *ADXL345) ReadData(ctx context.Context, dst *motion.Axes) error {
	return a.tx.Start(ctx, func(ctx context.Context) error {
		buf := make([]byte, 6)
		err := motion.ReadRegister(ctx, a.transport, a.address, regDataX0, buf)
		if err != nil {
			return fmt.Errorf("adxl345: could not read data: %w", err)
		}
		dst.X = int16(binary.LittleEndian.Uint16(buf[0:2]))
		dst.Y = int16(binary.LittleEndian.Uint16(buf[2:4]))
		dst.Z = int16(binary.LittleEndian.Uint16(buf[4:6]))
		return nil
	}, a.done)
}
