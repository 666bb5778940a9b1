package magnetometer

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/mklimuk/motion"
)

const DefaultAddress = 0x1E

const (
	regConfigA = 0x00
	regConfigB = 0x01
	regMode    = 0x02
	regDataX   = 0x03
	regIDA     = 0x0A
)

var identification = [3]byte{'H', '4', '3'}

// HMC5883L represents Honeywell HMC5883L 3-axis digital compass.
type HMC5883L struct {
	tx        motion.Transactor
	transport motion.I2CBus
	address   byte
	done      motion.Completion
}

type HMC5883LOption func(*HMC5883L)

func WithAddress(address byte) HMC5883LOption {
	return func(h *HMC5883L) {
		h.address = address
	}
}

func NewHMC5883L(trans motion.I2CBus, opts ...HMC5883LOption) *HMC5883L {
	h := &HMC5883L{transport: trans, address: DefaultAddress}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HMC5883L) Open(done motion.Completion) {
	h.done = done
}

// CheckID reads the three identification registers.
func (h *HMC5883L) CheckID(ctx context.Context, ok *bool) error {
	return h.tx.Start(ctx, func(ctx context.Context) error {
		buf := make([]byte, 3)
		err := motion.ReadRegister(ctx, h.transport, h.address, regIDA, buf)
		if err != nil {
			return fmt.Errorf("hmc5883l: could not read identification: %w", err)
		}
		*ok = [3]byte(buf) == identification
		return nil
	}, h.done)
}

func (h *HMC5883L) Configure(ctx context.Context, cfg Config) error {
	return h.tx.Start(ctx, func(ctx context.Context) error {
		err := motion.WriteRegister(ctx, h.transport, h.address, regConfigA, cfg.configA())
		if err != nil {
			return fmt.Errorf("hmc5883l: could not write config A: %w", err)
		}
		err = motion.WriteRegister(ctx, h.transport, h.address, regConfigB, cfg.configB())
		if err != nil {
			return fmt.Errorf("hmc5883l: could not write config B: %w", err)
		}
		err = motion.WriteRegister(ctx, h.transport, h.address, regMode, cfg.mode())
		if err != nil {
			return fmt.Errorf("hmc5883l: could not write mode: %w", err)
		}
		return nil
	}, h.done)
}

// ReadData reads one field sample. The chip outputs X, Z, Y big endian.
func (h *HMC5883L) ReadData(ctx context.Context, dst *motion.Axes) error {
	return h.tx.Start(ctx, func(ctx context.Context) error {
		buf := make([]byte, 6)
		err := motion.ReadRegister(ctx, h.transport, h.address, regDataX, buf)
		if err != nil {
			return fmt.Errorf("hmc5883l: could not read data: %w", err)
		}
		dst.X = int16(binary.BigEndian.Uint16(buf[0:2]))
		dst.Z = int16(binary.BigEndian.Uint16(buf[2:4]))
		dst.Y = int16(binary.BigEndian.Uint16(buf[4:6]))
		return nil
	}, h.done)
}
