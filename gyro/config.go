package gyro

type Clock byte

const (
	ClockInternal Clock = iota
	ClockPLLX
	ClockPLLY
	ClockPLLZ
	ClockExt32K
	ClockExt19M
)

// LowPass is the DLPF_CFG digital low pass bandwidth.
type LowPass byte

const (
	LowPass256 LowPass = iota
	LowPass188
	LowPass98
	LowPass42
	LowPass20
	LowPass10
	LowPass5
)

// full scale range must be programmed to ±2000°/s
const fullScale = 0x03 << 3

type Config struct {
	SampleRateDiv byte
	Clock         Clock
	Reset         bool
	Sleep         bool
	StandbyX      bool
	StandbyY      bool
	StandbyZ      bool
	LowPass       LowPass

	IntActiveLow bool
	IntOpenDrain bool
	IntLatch     bool
	IntClearAny  bool
	IntPLLReady  bool
	IntDataReady bool
}

// DefaultConfig runs on the internal oscillator with the slowest filter and
// an active high, open drain, 50µs interrupt pulse cleared by any read.
func DefaultConfig() Config {
	return Config{
		Clock:        ClockInternal,
		LowPass:      LowPass5,
		IntOpenDrain: true,
		IntClearAny:  true,
	}
}

// LowPower returns a copy of c with the chip put to sleep.
func (c Config) LowPower() Config {
	c.Sleep = true
	return c
}

func bit(set bool, mask byte) byte {
	if set {
		return mask
	}
	return 0
}

func (c Config) pwrMgm() byte {
	return bit(c.Reset, 0x80) | bit(c.Sleep, 0x40) | bit(c.StandbyX, 0x20) | bit(c.StandbyY, 0x10) |
		bit(c.StandbyZ, 0x08) | byte(c.Clock)&0x07
}

func (c Config) dlpfFS() byte {
	return fullScale | byte(c.LowPass)&0x07
}

func (c Config) intCfg() byte {
	return bit(c.IntActiveLow, 0x80) | bit(c.IntOpenDrain, 0x40) | bit(c.IntLatch, 0x20) |
		bit(c.IntClearAny, 0x10) | bit(c.IntPLLReady, 0x04) | bit(c.IntDataReady, 0x01)
}

func (c Config) registers() [][2]byte {
	return [][2]byte{
		{regPwrMgm, c.pwrMgm()},
		{regSmplrt, c.SampleRateDiv},
		{regDLPFFS, c.dlpfFS()},
		{regIntCfg, c.intCfg()},
	}
}
