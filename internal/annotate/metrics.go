package annotate

import (
	"strconv"
	"strings"
)

// FontMetrics measures the rendered bounding box of text at a font
// size. Margins and offsets are always evaluated against these
// metrics, never against literal pixel constants, so labels stay
// fully visible regardless of the configured font size.
type FontMetrics func(text string, fontSize float64) (w, h float64)

// DefaultFontMetrics approximates a typical proportional UI font:
// 0.6em advance per rune, 1.2em line height. Real deployments plug in
// the rasterizer's measurement.
func DefaultFontMetrics(text string, fontSize float64) (float64, float64) {
	runes := float64(len([]rune(text)))
	return runes * 0.6 * fontSize, 1.2 * fontSize
}

// Format renders a price level into label text
type Format func(level float64) string

// PriceFormat returns a plain fixed-precision price format
func PriceFormat(digits int) Format {
	return func(level float64) string {
		return formatGrouped(level, digits)
	}
}

// formatGrouped renders a level with fixed precision and spaces as
// thousands separators, e.g. 100 000.00
func formatGrouped(level float64, digits int) string {
	s := strconv.FormatFloat(level, 'f', digits, 64)

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	b.WriteString(frac)
	return b.String()
}
