package i2c

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mklimuk/motion"
	"github.com/mklimuk/motion/snsctx"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

var _ motion.I2CBus = &GenericBus{}

// GenericBus is a host I2C bus opened through the periph.io registry.
type GenericBus struct {
	bus    i2c.BusCloser
	logger *slog.Logger
}

// NewGenericBus opens dev, a bus name or number as understood by i2creg. An
// empty dev selects the first bus found.
func NewGenericBus(dev string, logger *slog.Logger) (*GenericBus, error) {
	if logger == nil {
		logger = slog.Default()
	}
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	for _, driver := range state.Loaded {
		logger.Debug("host driver loaded", "driver", driver.String())
	}
	for _, failure := range state.Failed {
		logger.Debug("host driver failed", "driver", failure.D.String(), "error", failure.Err)
	}
	bus, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus: %w", err)
	}
	return &GenericBus{
		bus:    bus,
		logger: logger,
	}, nil
}

// SetSpeed sets the bus clock in Hz.
func (b *GenericBus) SetSpeed(hz int64) error {
	err := b.bus.SetSpeed(physic.Frequency(hz) * physic.Hertz)
	if err != nil {
		return fmt.Errorf("could not set i2c bus speed to %d Hz: %w", hz, err)
	}
	return nil
}

func (b *GenericBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.bus.Tx(uint16(address), nil, buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	if snsctx.IsVerbose(ctx) {
		b.logger.Debug("i2c read", snsctx.TraceAttrs(ctx, address, buffer)...)
	}
	return nil
}

func (b *GenericBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	if snsctx.IsVerbose(ctx) {
		b.logger.Debug("i2c write", snsctx.TraceAttrs(ctx, address, buffer)...)
	}
	err := b.bus.Tx(uint16(address), buffer, nil)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GenericBus) Release(ctx context.Context) error {
	return nil
}

func (b *GenericBus) Close() error {
	return b.bus.Close()
}
