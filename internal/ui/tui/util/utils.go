package util

import (
	"fmt"
	"math"

	"github.com/mattn/go-runewidth"
)

// TruncateString cuts a string to fit within maxWidth visual width
func TruncateString(s string, maxWidth int) string {
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	width := 0
	for i, r := range s {
		charWidth := runewidth.RuneWidth(r)
		// Check if adding this rune would exceed maxWidth
		if width+charWidth > maxWidth-3 { // Reserve space for "..."
			return s[:i] + "..."
		}
		width += charWidth
	}
	return s // Return as is if it fits
}

// PadRight pads s with spaces to the given visual width, truncating it first if it is too wide
func PadRight(s string, width int) string {
	s = TruncateString(s, width)
	return runewidth.FillRight(s, width)
}

// FormatClock formats a position in seconds as m:ss, or h:mm:ss for an hour or more.  Unknown values (NaN, Inf,
// negative) render as --:--.
func FormatClock(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "--:--"
	}
	total := int(seconds)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatPercent renders a 0..1 fraction as a whole percentage
func FormatPercent(f float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(f*100)))
}
