package gpio

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func TestEdgeInterrupt(t *testing.T) {
	pin := &gpiotest.Pin{N: "GPIO17", Num: 17, EdgesChan: make(chan gpio.Level, 4)}
	irq := NewEdgeInterrupt(pin, WithPoll(5*time.Millisecond))
	var calls atomic.Int32
	require.NoError(t, irq.Listen(func() { calls.Add(1) }))
	defer irq.Close()
	assert.Equal(t, gpio.PullDown, pin.P)

	// masked until enabled
	pin.EdgesChan <- gpio.High
	assert.Eventually(t, func() bool { return len(pin.EdgesChan) == 0 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, calls.Load())

	irq.SetMask(true)
	pin.EdgesChan <- gpio.High
	pin.EdgesChan <- gpio.High
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)

	irq.SetMask(false)
	pin.EdgesChan <- gpio.High
	assert.Eventually(t, func() bool { return len(pin.EdgesChan) == 0 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEdgeInterrupt_ListenTwice(t *testing.T) {
	pin := &gpiotest.Pin{N: "GPIO17", EdgesChan: make(chan gpio.Level)}
	irq := NewEdgeInterrupt(pin, WithPoll(time.Millisecond))
	require.NoError(t, irq.Listen(func() {}))
	assert.ErrorIs(t, irq.Listen(func() {}), ErrListening)
	assert.NoError(t, irq.Close())
	assert.NoError(t, irq.Close())
	// can listen again once closed
	require.NoError(t, irq.Listen(func() {}))
	assert.NoError(t, irq.Close())
}

func TestEdgeInterrupt_PinWithoutEdges(t *testing.T) {
	irq := NewEdgeInterrupt(&gpiotest.Pin{N: "GPIO4"}, WithPull(gpio.PullUp))
	assert.Error(t, irq.Listen(func() {}))
	assert.NoError(t, irq.Close())
}
