package motion

// Axes is one raw three-axis reading as delivered by a chip.
type Axes struct {
	X int16
	Y int16
	Z int16
}
