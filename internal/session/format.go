package session

import (
	"fmt"
	"math"
)

// FormatLapTime renders a lap time in seconds as M:SS.mmm. Absent values
// render as "N/A" so tables can show a placeholder cell instead of a number.
func FormatLapTime(seconds float64) string {
	if math.IsNaN(seconds) {
		return "N/A"
	}
	minutes := int(seconds) / 60
	remaining := seconds - float64(minutes*60)
	return fmt.Sprintf("%d:%06.3f", minutes, remaining)
}
