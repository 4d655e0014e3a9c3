package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Theme is the palette a card is painted with. Callers supply it explicitly.
type Theme struct {
	Primary    color.Color
	Accent     color.Color
	Foreground color.Color
	Card       color.Color
}

// DefaultTheme is the stock violet/pink palette.
func DefaultTheme() Theme {
	return Theme{
		Primary:    color.NRGBA{R: 0x7c, G: 0x3a, B: 0xed, A: 0xff},
		Accent:     color.NRGBA{R: 0xec, G: 0x48, B: 0x99, A: 0xff},
		Foreground: color.NRGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff},
		Card:       color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	}
}

// ParseHexColor parses #rgb or #rrggbb.
func ParseHexColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// withAlpha returns c with its opacity scaled to a in [0,1].
func withAlpha(c color.Color, a float64) color.NRGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(float64(n.A) * clamp01(a))
	return n
}

// mix blends a and b, t=0 gives a.
func mix(a, b color.Color, t float64) color.NRGBA {
	t = clamp01(t)
	ca := color.NRGBAModel.Convert(a).(color.NRGBA)
	cb := color.NRGBAModel.Convert(b).(color.NRGBA)
	lerp := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5) }
	return color.NRGBA{R: lerp(ca.R, cb.R), G: lerp(ca.G, cb.G), B: lerp(ca.B, cb.B), A: lerp(ca.A, cb.A)}
}
