package i2c

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gobi2c "gobot.io/x/gobot/v2/drivers/i2c"
)

type opened struct {
	address int
	bus     int
}

// fakeConnector hands out one recording connection per address.
type fakeConnector struct {
	opened []opened
	conns  map[int]*fakeConnection
	err    error
}

func (f *fakeConnector) GetI2cConnection(address int, bus int) (gobi2c.Connection, error) {
	f.opened = append(f.opened, opened{address: address, bus: bus})
	if f.err != nil {
		return nil, f.err
	}
	if f.conns == nil {
		f.conns = make(map[int]*fakeConnection)
	}
	c, ok := f.conns[address]
	if !ok {
		c = &fakeConnection{}
		f.conns[address] = c
	}
	return c, nil
}

func (f *fakeConnector) DefaultI2cBus() int { return 0 }

type fakeConnection struct {
	written [][]byte
	reply   []byte
	err     error
}

func (c *fakeConnection) Read(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	copy(p, c.reply)
	return len(p), nil
}

func (c *fakeConnection) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.written = append(c.written, append([]byte(nil), p...))
	return len(p), nil
}

func (c *fakeConnection) WriteBytes(p []byte) error {
	_, err := c.Write(p)
	return err
}

func (c *fakeConnection) Close() error { return nil }
func (c *fakeConnection) ReadByte() (byte, error) { return 0, c.err }
func (c *fakeConnection) ReadByteData(uint8) (uint8, error) { return 0, c.err }
func (c *fakeConnection) ReadWordData(uint8) (uint16, error) { return 0, c.err }
func (c *fakeConnection) ReadBlockData(uint8, []byte) error { return c.err }
func (c *fakeConnection) WriteByte(byte) error { return c.err }
func (c *fakeConnection) WriteByteData(uint8, uint8) error { return c.err }
func (c *fakeConnection) WriteWordData(uint8, uint16) error { return c.err }
func (c *fakeConnection) WriteBlockData(uint8, []byte) error { return c.err }

func TestGobotBus(t *testing.T) {
	conn := &fakeConnector{conns: map[int]*fakeConnection{0x53: {reply: []byte{0x01, 0x02}}}}
	bus := NewGobotBus(conn, 2)
	ctx := context.Background()

	require.NoError(t, bus.WriteToAddr(ctx, 0x53, []byte{0x32}))
	buf := make([]byte, 2)
	require.NoError(t, bus.ReadFromAddr(ctx, 0x53, buf))
	assert.Equal(t, []byte{0x01, 0x02}, buf)
	assert.Equal(t, [][]byte{{0x32}}, conn.conns[0x53].written)

	require.NoError(t, bus.WriteToAddr(ctx, 0x1E, []byte{0x02, 0x00}))
	// one driver start per address
	assert.Equal(t, []opened{{0x53, 2}, {0x1E, 2}}, conn.opened)
	assert.Len(t, bus.drivers, 2)

	require.NoError(t, bus.Close())
	assert.Empty(t, bus.drivers)
}

func TestGobotBus_StartFailure(t *testing.T) {
	refused := errors.New("no such bus")
	bus := NewGobotBus(&fakeConnector{err: refused}, 1)
	err := bus.ReadFromAddr(context.Background(), 0x68, make([]byte, 1))
	assert.ErrorContains(t, err, refused.Error())
	assert.Empty(t, bus.drivers)
}

func TestGobotBus_TransferFailure(t *testing.T) {
	nak := errors.New("nak")
	conn := &fakeConnector{conns: map[int]*fakeConnection{0x68: {err: nak}}}
	bus := NewGobotBus(conn, 1)
	assert.ErrorContains(t, bus.WriteToAddr(context.Background(), 0x68, []byte{0x3E, 0x00}), nak.Error())
	assert.Error(t, bus.ReadFromAddr(context.Background(), 0x68, make([]byte, 1)))
	// the started driver is reused after a failed transfer
	assert.Len(t, conn.opened, 1)
}

func TestGobotBus_CloseJoinsFinalizeError(t *testing.T) {
	finalizeErr := errors.New("unexport failed")
	bus := NewGobotBus(&fakeConnector{}, 0)
	bus.finalize = func() error { return finalizeErr }
	require.NoError(t, bus.WriteToAddr(context.Background(), 0x1E, []byte{0x00}))
	err := bus.Close()
	assert.ErrorIs(t, err, finalizeErr)
	assert.Empty(t, bus.drivers)
}
