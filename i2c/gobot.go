package i2c

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mklimuk/motion"
	gobi2c "gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"
)

var _ motion.I2CBus = &GobotBus{}

// GobotBus reaches the chips through gobot generic drivers, one per address,
// started on first use.
type GobotBus struct {
	mx       sync.Mutex
	conn     gobi2c.Connector
	number   int
	drivers  map[byte]*gobi2c.GenericDriver
	finalize func() error
}

// NewNanoPiBus connects the NanoPi NEO I2C adaptor and uses bus number.
func NewNanoPiBus(number int) (*GobotBus, error) {
	npi := nanopi.NewNeoAdaptor()
	err := npi.I2cBusAdaptor.Connect()
	if err != nil {
		return nil, fmt.Errorf("adaptor connect error: %w", err)
	}
	b := NewGobotBus(npi, number)
	b.finalize = npi.I2cBusAdaptor.Finalize
	return b, nil
}

func NewGobotBus(conn gobi2c.Connector, number int) *GobotBus {
	return &GobotBus{
		conn:    conn,
		number:  number,
		drivers: make(map[byte]*gobi2c.GenericDriver),
	}
}

func (b *GobotBus) driver(address byte) (*gobi2c.GenericDriver, error) {
	if d, ok := b.drivers[address]; ok {
		return d, nil
	}
	d := gobi2c.NewGenericDriver(b.conn, fmt.Sprintf("motion-%#x", address), int(address), func(c gobi2c.Config) {
		c.SetBus(b.number)
	})
	err := d.Start()
	if err != nil {
		return nil, fmt.Errorf("driver %#x start error: %w", address, err)
	}
	b.drivers[address] = d
	return d, nil
}

func (b *GobotBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	d, err := b.driver(address)
	if err != nil {
		return err
	}
	err = d.Read(buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GobotBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	d, err := b.driver(address)
	if err != nil {
		return err
	}
	err = d.Write(buffer)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GobotBus) Release(ctx context.Context) error {
	return nil
}

// Close halts every started driver and finalizes the adaptor.
func (b *GobotBus) Close() error {
	b.mx.Lock()
	defer b.mx.Unlock()
	var errs []error
	for address, d := range b.drivers {
		err := d.Halt()
		if err != nil {
			errs = append(errs, fmt.Errorf("driver %#x halt error: %w", address, err))
		}
		delete(b.drivers, address)
	}
	if b.finalize != nil {
		errs = append(errs, b.finalize())
	}
	return errors.Join(errs...)
}
