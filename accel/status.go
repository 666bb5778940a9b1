package accel

// Status is the raw content of the status registers read by ReadStatus.
type Status struct {
	IntSource    byte
	ActTapStatus byte
	FIFOStatus   byte
}

func (s Status) DataReady() bool  { return s.IntSource&IntDataReady != 0 }
func (s Status) Activity() bool   { return s.IntSource&IntActivity != 0 }
func (s Status) Inactivity() bool { return s.IntSource&IntInactivity != 0 }
func (s Status) SingleTap() bool  { return s.IntSource&IntSingleTap != 0 }
func (s Status) DoubleTap() bool  { return s.IntSource&IntDoubleTap != 0 }
func (s Status) FreeFall() bool   { return s.IntSource&IntFreeFall != 0 }
func (s Status) Overrun() bool    { return s.IntSource&IntOverrun != 0 }
func (s Status) Watermark() bool  { return s.IntSource&IntWatermark != 0 }

// ActivityAxes returns which axes took part in the last activity event.
func (s Status) ActivityAxes() (x, y, z bool) {
	return s.ActTapStatus&0x40 != 0, s.ActTapStatus&0x20 != 0, s.ActTapStatus&0x10 != 0
}

// TapAxes returns which axes took part in the last tap event.
func (s Status) TapAxes() (x, y, z bool) {
	return s.ActTapStatus&0x04 != 0, s.ActTapStatus&0x02 != 0, s.ActTapStatus&0x01 != 0
}

func (s Status) Asleep() bool { return s.ActTapStatus&0x08 != 0 }

func (s Status) FIFOTriggered() bool { return s.FIFOStatus&0x80 != 0 }

// FIFOEntries is the number of samples waiting in the FIFO.
func (s Status) FIFOEntries() int { return int(s.FIFOStatus & 0x3F) }
