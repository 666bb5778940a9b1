package motion

import (
	"context"
	"fmt"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

// I2CBus is shared by every chip on the board. Implementations serialize
// individual transfers but know nothing about multi-step chip sequences.
type I2CBus interface {
	AddressableReader
	AddressableWriter
}

// ReadRegister points the chip at reg and reads len(buffer) bytes from it.
func ReadRegister(ctx context.Context, bus I2CBus, address, reg byte, buffer []byte) error {
	err := bus.WriteToAddr(ctx, address, []byte{reg})
	if err != nil {
		return fmt.Errorf("could not set register pointer %#x: %w", reg, err)
	}
	err = bus.ReadFromAddr(ctx, address, buffer)
	if err != nil {
		return fmt.Errorf("could not read register %#x: %w", reg, err)
	}
	return nil
}

// WriteRegister writes a single byte value into reg.
func WriteRegister(ctx context.Context, bus I2CBus, address, reg, value byte) error {
	err := bus.WriteToAddr(ctx, address, []byte{reg, value})
	if err != nil {
		return fmt.Errorf("could not write register %#x: %w", reg, err)
	}
	return nil
}
