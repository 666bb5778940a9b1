package accel

// Rate is the BW_RATE output data rate code.
type Rate byte

const (
	Rate6_25 Rate = 0x06
	Rate12_5 Rate = 0x07
	Rate25   Rate = 0x08
	Rate50   Rate = 0x09
	Rate100  Rate = 0x0A
	Rate200  Rate = 0x0B
	Rate400  Rate = 0x0C
)

// SleepRate is the sampling frequency while asleep (POWER_CTL wakeup bits).
type SleepRate byte

const (
	SleepRate8 SleepRate = 0b00
	SleepRate4 SleepRate = 0b01
	SleepRate2 SleepRate = 0b10
	SleepRate1 SleepRate = 0b11
)

// Range is the DATA_FORMAT g range.
type Range byte

const (
	Range2G  Range = 0b00
	Range4G  Range = 0b01
	Range8G  Range = 0b10
	Range16G Range = 0b11
)

type FIFOMode byte

const (
	FIFOBypass  FIFOMode = 0b00
	FIFOFIFO    FIFOMode = 0b01
	FIFOStream  FIFOMode = 0b10
	FIFOTrigger FIFOMode = 0b11
)

// Axis bits as used by TAP_AXES and ACT_INACT_CTL.
const (
	AxisZ byte = 1 << iota
	AxisY
	AxisX
	AxisXYZ = AxisX | AxisY | AxisZ
)

// Interrupt bits shared by INT_ENABLE, INT_MAP and INT_SOURCE.
const (
	IntOverrun    byte = 0x01
	IntWatermark  byte = 0x02
	IntFreeFall   byte = 0x04
	IntInactivity byte = 0x08
	IntActivity   byte = 0x10
	IntDoubleTap  byte = 0x20
	IntSingleTap  byte = 0x40
	IntDataReady  byte = 0x80
)

// Config is the complete chip setup written by Configure. Threshold and time
// fields are in chip units (62.5 mg, 625 µs, 1.25 ms, 1 s, 5 ms as per datasheet).
type Config struct {
	LowPower  bool
	Rate      Rate
	Link      bool
	AutoSleep bool
	Measure   bool
	Sleep     bool
	SleepRate SleepRate

	TapAxes     byte
	TapThresh   byte
	TapDur      byte
	TapLatent   byte
	TapWindow   byte
	TapSuppress bool

	ActAC          bool
	ActAxes        byte
	InactAxes      byte
	ActThresh      byte
	InactThresh    byte
	InactTime      byte
	FreeFallThresh byte
	FreeFallTime   byte

	IntEnable byte
	// IntMap routes a set bit to INT2, clear bits go to INT1.
	IntMap byte

	IntInvert bool
	FullRes   bool
	Justify   bool
	Range     Range

	FIFOMode     FIFOMode
	FIFOTrigINT2 bool
	FIFOSamples  byte
}

// DefaultConfig is the boot configuration: low rate linked activity/inactivity
// with auto sleep, tap, double tap and free-fall detection on all axes.
func DefaultConfig() Config {
	return Config{
		Rate:      Rate12_5,
		Link:      true,
		AutoSleep: true,
		Measure:   true,
		SleepRate: SleepRate8,

		TapAxes:   AxisXYZ,
		TapThresh: 20,
		TapDur:    15,
		TapLatent: 80,
		TapWindow: 200,

		ActAxes:        AxisXYZ,
		InactAxes:      AxisXYZ,
		ActThresh:      18,
		InactThresh:    21,
		InactTime:      10,
		FreeFallThresh: 7,
		FreeFallTime:   40,

		IntEnable: IntSingleTap | IntDoubleTap | IntActivity | IntInactivity | IntFreeFall,

		FullRes: true,
		Justify: true,
		Range:   Range2G,

		FIFOMode:     FIFOBypass,
		FIFOTrigINT2: true,
	}
}

func bit(set bool, mask byte) byte {
	if set {
		return mask
	}
	return 0
}

func (c Config) bwRate() byte {
	return bit(c.LowPower, 0x10) | byte(c.Rate)&0x0F
}

func (c Config) powerCtl() byte {
	return bit(c.Link, 0x20) | bit(c.AutoSleep, 0x10) | bit(c.Measure, 0x08) | bit(c.Sleep, 0x04) | byte(c.SleepRate)&0x03
}

func (c Config) actInactCtl() byte {
	// inactivity shares the activity coupling
	return bit(c.ActAC, 0x80) | (c.ActAxes&AxisXYZ)<<4 | bit(c.ActAC, 0x08) | c.InactAxes&AxisXYZ
}

func (c Config) tapAxes() byte {
	return bit(c.TapSuppress, 0x08) | c.TapAxes&AxisXYZ
}

func (c Config) dataFormat() byte {
	return bit(c.IntInvert, 0x20) | bit(c.FullRes, 0x08) | bit(c.Justify, 0x04) | byte(c.Range)&0x03
}

func (c Config) fifoCtl() byte {
	return byte(c.FIFOMode)<<6 | bit(c.FIFOTrigINT2, 0x20) | c.FIFOSamples&0x1F
}

// registers returns register/value pairs in write order.
func (c Config) registers() [][2]byte {
	return [][2]byte{
		// disable interrupts while reconfiguring
		{regIntEnable, 0x00},
		{regBWRate, c.bwRate()},
		{regDataFormat, c.dataFormat()},
		{regFIFOCtl, c.fifoCtl()},
		{regThreshTap, c.TapThresh},
		{regDur, c.TapDur},
		{regLatent, c.TapLatent},
		{regWindow, c.TapWindow},
		{regTapAxes, c.tapAxes()},
		{regThreshAct, c.ActThresh},
		{regThreshInact, c.InactThresh},
		{regTimeInact, c.InactTime},
		{regActInactCtl, c.actInactCtl()},
		{regThreshFF, c.FreeFallThresh},
		{regTimeFF, c.FreeFallTime},
		{regIntMap, c.IntMap},
		{regPowerCtl, c.powerCtl()},
		{regIntEnable, c.IntEnable},
	}
}
