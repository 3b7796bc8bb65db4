package playback

import (
	"math"
	"testing"
)

func TestFormatTime(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00"},
		{5.9, "00:05"},
		{59.999, "00:59"},
		{60, "01:00"},
		{65, "01:05"},
		{599.5, "09:59"},
		{3605, "60:05"},
		{6000, "100:00"},
		{-3, "00:00"},
		{math.NaN(), "00:00"},
	}

	for _, tt := range tests {
		if got := FormatTime(tt.seconds); got != tt.want {
			t.Errorf("FormatTime(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
