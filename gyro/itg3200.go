package gyro

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/mklimuk/motion"
)

// Addresses selected by the AD0 pin.
const (
	AddressAD0Low  = 0x68
	AddressAD0High = 0x69
)

const whoAmI = 0x34

const (
	regWhoAmI   = 0x00
	regSmplrt   = 0x15
	regDLPFFS   = 0x16
	regIntCfg   = 0x17
	regTempOutH = 0x1B
	regPwrMgm   = 0x3E
)

// Reading is one temperature and rate sample taken in a single burst.
type Reading struct {
	Temp int16
	motion.Axes
}

// ITG3200 represents InvenSense ITG-3200 3-axis gyroscope.
type ITG3200 struct {
	tx        motion.Transactor
	transport motion.I2CBus
	address   byte
	done      motion.Completion
}

type ITG3200Option func(*ITG3200)

// WithAD0 selects the address matching the AD0 pin level.
func WithAD0(high bool) ITG3200Option {
	return func(g *ITG3200) {
		g.address = AddressAD0Low
		if high {
			g.address = AddressAD0High
		}
	}
}

func NewITG3200(trans motion.I2CBus, opts ...ITG3200Option) *ITG3200 {
	g := &ITG3200{transport: trans, address: AddressAD0Low}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *ITG3200) Open(done motion.Completion) {
	g.done = done
}

func (g *ITG3200) CheckID(ctx context.Context, ok *bool) error {
	return g.tx.Start(ctx, func(ctx context.Context) error {
		buf := []byte{0x00}
		err := motion.ReadRegister(ctx, g.transport, g.address, regWhoAmI, buf)
		if err != nil {
			return fmt.Errorf("itg3200: could not read who am i: %w", err)
		}
		// bits 6:1 carry the id, bit 0 mirrors AD0
		*ok = (buf[0]>>1)&0x3F == whoAmI
		return nil
	}, g.done)
}

func (g *ITG3200) Configure(ctx context.Context, cfg Config) error {
	regs := cfg.registers()
	return g.tx.Start(ctx, func(ctx context.Context) error {
		for _, r := range regs {
			err := motion.WriteRegister(ctx, g.transport, g.address, r[0], r[1])
			if err != nil {
				return fmt.Errorf("itg3200: configuration failed: %w", err)
			}
		}
		return nil
	}, g.done)
}

// ReadData reads temperature and X/Y/Z rates in one big endian burst.
func (g *ITG3200) ReadData(ctx context.Context, dst *Reading) error {
	return g.tx.Start(ctx, func(ctx context.Context) error {
		buf := make([]byte, 8)
		err := motion.ReadRegister(ctx, g.transport, g.address, regTempOutH, buf)
		if err != nil {
			return fmt.Errorf("itg3200: could not read data: %w", err)
		}
		dst.Temp = int16(binary.BigEndian.Uint16(buf[0:2]))
		dst.X = int16(binary.BigEndian.Uint16(buf[2:4]))
		dst.Y = int16(binary.BigEndian.Uint16(buf[4:6]))
		dst.Z = int16(binary.BigEndian.Uint16(buf[6:8]))
		return nil
	}, g.done)
}

// Celsius converts a raw temperature sample using raw/280 + 82 and splits the
// magnitude into whole degrees and truncated tenths. negative carries the sign
// so that values between -1 and 0 are not lost.
func Celsius(raw int16) (degrees int, tenths int, negative bool) {
	c := float64(raw)/280.0 + 82
	negative = c < 0
	if negative {
		c = -c
	}
	whole := int(c)
	return whole, int((c - float64(whole)) * 10.0), negative
}

// FormatCelsius renders a raw temperature as "<deg>.<tenths>".
func FormatCelsius(raw int16) string {
	deg, tenths, negative := Celsius(raw)
	if negative {
		return fmt.Sprintf("-%d.%d", deg, tenths)
	}
	return fmt.Sprintf("%d.%d", deg, tenths)
}
