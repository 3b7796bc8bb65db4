package playback

import (
	"fmt"
	"math"
)

// FormatTime renders seconds as MM:SS. Minutes are not rolled into hours, so
// 3605 seconds is "60:05".
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	mins := int(math.Floor(seconds / 60))
	secs := int(math.Floor(math.Mod(seconds, 60)))
	return fmt.Sprintf("%02d:%02d", mins, secs)
}
