// Package display renders controller screens onto a 16x2 character display.
package display

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sweeney/gate-controller/internal/logic"
)

// Width is the number of characters per line.
const Width = 16

// Frame is the full contents of the display.
type Frame struct {
	Line1 string
	Line2 string
}

// Sink shows frames.
type Sink interface {
	Show(f Frame) error
}

// Render lays out a screen. Status screens put the label on line 1 and the
// drive time, live remaining time and motor current on line 2.
func Render(s logic.Screen) Frame {
	if s.HasPrompt() {
		return Frame{Line1: fit(s.Prompt[0]), Line2: fit(s.Prompt[1])}
	}
	line2 := fmt.Sprintf("D%02d R%02d %4.1fA", seconds(s.Drive), seconds(s.Remaining), s.Amps)
	return Frame{Line1: fit(s.Label), Line2: fit(line2)}
}

// seconds rounds up so a running countdown only shows 0 once it has expired.
func seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

// fit pads or truncates to exactly Width characters.
func fit(s string) string {
	if len(s) > Width {
		return s[:Width]
	}
	return s + strings.Repeat(" ", Width-len(s))
}
