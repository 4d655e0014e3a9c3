package render

import (
	"fmt"
	"math"
)

// ValidDuration reports whether d (seconds) is a usable playback length.
func ValidDuration(d float64) bool {
	return d > 0 && !math.IsInf(d, 0) && !math.IsNaN(d)
}

// Progress returns elapsed/duration clamped to [0,1].
// An unknown (zero, negative or non-finite) duration saturates to 1.
func Progress(elapsed, duration float64) float64 {
	if !ValidDuration(duration) {
		return 1
	}
	if math.IsNaN(elapsed) || elapsed <= 0 {
		return 0
	}
	return clamp01(elapsed / duration)
}

// FormatClock renders seconds as m:ss.
func FormatClock(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	s := int(math.Floor(seconds))
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
