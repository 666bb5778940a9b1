// Package bustest provides an I2C bus double for chip driver tests.
package bustest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/mklimuk/motion"
)

var _ motion.I2CBus = &MockI2CBus{}

// MockI2CBus is a testify mock of motion.I2CBus. ReadFromAddr expectations
// return the bytes to copy into the caller's buffer as their first value.
type MockI2CBus struct {
	mock.Mock
	concurrentOps int64
	maxConcurrent int64
	mu            sync.Mutex
}

func (m *MockI2CBus) enter() {
	m.mu.Lock()
	concurrent := atomic.AddInt64(&m.concurrentOps, 1)
	if concurrent > atomic.LoadInt64(&m.maxConcurrent) {
		atomic.StoreInt64(&m.maxConcurrent, concurrent)
	}
	m.mu.Unlock()
}

func (m *MockI2CBus) leave() {
	atomic.AddInt64(&m.concurrentOps, -1)
}

func (m *MockI2CBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	m.enter()
	defer m.leave()
	// copy so later buffer reuse by the driver does not alter recorded calls
	args := m.Called(ctx, address, append([]byte(nil), buffer...))
	return args.Error(0)
}

func (m *MockI2CBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	m.enter()
	defer m.leave()
	args := m.Called(ctx, address, buffer)
	if data, ok := args.Get(0).([]byte); ok && len(data) <= len(buffer) {
		copy(buffer, data)
	}
	return args.Error(1)
}

func (m *MockI2CBus) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MaxConcurrent returns the highest number of overlapping transfers observed.
func (m *MockI2CBus) MaxConcurrent() int64 {
	return atomic.LoadInt64(&m.maxConcurrent)
}

// ExpectRegister sets up the pointer write and the read that follows it.
func (m *MockI2CBus) ExpectRegister(address, reg byte, data []byte) {
	m.On("WriteToAddr", mock.Anything, address, []byte{reg}).Return(nil).Once()
	m.On("ReadFromAddr", mock.Anything, address, mock.Anything).Return(data, nil).Once()
}

// ExpectWrite sets up a single register write.
func (m *MockI2CBus) ExpectWrite(address, reg, value byte) {
	m.On("WriteToAddr", mock.Anything, address, []byte{reg, value}).Return(nil).Once()
}
