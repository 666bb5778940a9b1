package console

import "github.com/fatih/color"

// Available ANSI colors
var (
	Yellow = color.New(color.FgYellow).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	White  = color.New(color.FgHiWhite).SprintFunc()
	Bold   = color.New(color.Bold).SprintFunc()
)

// Tally colors a passed/total count green when it reaches the required
// minimum and red otherwise.
func Tally(passed, total, required int) string {
	if passed < required {
		return Red(passed) + "/" + Red(total)
	}
	return Green(passed) + "/" + Green(total)
}
