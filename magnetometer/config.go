package magnetometer

type Mode byte

const (
	ModeContinuous Mode = 0b00
	ModeSingle     Mode = 0b01
	ModeIdle       Mode = 0b10
)

type Gain byte

const (
	Gain0_88 Gain = iota
	Gain1_3
	Gain1_9
	Gain2_5
	Gain4_0
	Gain4_7
	Gain5_6
	Gain8_1
)

// Rate is the continuous mode data output rate.
type Rate byte

const (
	Rate0_75 Rate = iota
	Rate1_5
	Rate3
	Rate7_5
	Rate15
	Rate30
	Rate75
)

type Measurement byte

const (
	MeasurementNormal Measurement = iota
	MeasurementPositiveBias
	MeasurementNegativeBias
)

type Averaging byte

const (
	Average1 Averaging = iota
	Average2
	Average4
	Average8
)

type Config struct {
	Mode        Mode
	HighSpeed   bool
	Gain        Gain
	Measurement Measurement
	Rate        Rate
	Averaging   Averaging
}

// ActiveConfig is used while acquisition runs.
func ActiveConfig() Config {
	return Config{
		Mode:        ModeContinuous,
		Gain:        Gain1_3,
		Measurement: MeasurementNormal,
		Rate:        Rate30,
		Averaging:   Average2,
	}
}

// IdleConfig stops conversions when acquisition is stopped.
func IdleConfig() Config {
	return Config{
		Mode:        ModeIdle,
		Gain:        Gain1_3,
		Measurement: MeasurementNormal,
		Rate:        Rate15,
		Averaging:   Average1,
	}
}

func (c Config) configA() byte {
	return byte(c.Averaging&0x03)<<5 | byte(c.Rate&0x07)<<2 | byte(c.Measurement&0x03)
}

func (c Config) configB() byte {
	return byte(c.Gain&0x07) << 5
}

func (c Config) mode() byte {
	var hs byte
	if c.HighSpeed {
		hs = 0x80
	}
	return hs | byte(c.Mode&0x03)
}
