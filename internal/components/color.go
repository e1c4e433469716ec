package components

import (
	"fmt"
	"strconv"
	"strings"

	"prefabforge/internal/prefab"
)

// Color is 8-bit RGBA.
type Color struct {
	R, G, B, A uint8
}

var White = Color{255, 255, 255, 255}

var colorByName = map[string]Color{
	"red":       {230, 41, 55, 255},
	"blue":      {0, 121, 241, 255},
	"green":     {0, 228, 48, 255},
	"purple":    {200, 122, 255, 255},
	"orange":    {255, 161, 0, 255},
	"yellow":    {253, 249, 0, 255},
	"gold":      {255, 203, 0, 255},
	"white":     {255, 255, 255, 255},
	"gray":      {130, 130, 130, 255},
	"lightgray": {200, 200, 200, 255},
	"darkgray":  {80, 80, 80, 255},
	"black":     {0, 0, 0, 255},
	"pink":      {255, 109, 194, 255},
	"maroon":    {190, 33, 55, 255},
	"brown":     {127, 106, 79, 255},
	"beige":     {211, 176, 131, 255},
	"skyblue":   {102, 191, 255, 255},
	"darkblue":  {0, 82, 172, 255},
	"lime":      {0, 158, 47, 255},
	"darkgreen": {0, 117, 44, 255},
}

// ParseColor accepts "#rgb", "#rrggbb", "#rrggbbaa", a color name, or an
// [r, g, b(, a)] array of 0-255 values.
func ParseColor(v any) (Color, bool) {
	switch c := v.(type) {
	case string:
		if strings.HasPrefix(c, "#") {
			return parseHex(c[1:])
		}
		named, ok := colorByName[strings.ToLower(c)]
		return named, ok
	case []any:
		if len(c) != 3 && len(c) != 4 {
			return White, false
		}
		out := [4]uint8{0, 0, 0, 255}
		for i, e := range c {
			f, ok := prefab.ToFloat(e)
			if !ok || f < 0 || f > 255 {
				return White, false
			}
			out[i] = uint8(f)
		}
		return Color{out[0], out[1], out[2], out[3]}, true
	}
	return White, false
}

// ColorOr parses v, returning fallback when it is not a color.
func ColorOr(v any, fallback Color) Color {
	if c, ok := ParseColor(v); ok {
		return c
	}
	return fallback
}

func parseHex(s string) (Color, bool) {
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) == 6 {
		s += "ff"
	}
	if len(s) != 8 {
		return White, false
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return White, false
	}
	return Color{uint8(n >> 24), uint8(n >> 16), uint8(n >> 8), uint8(n)}, true
}

// Hex formats the color as "#rrggbb", appending alpha only when not opaque.
func (c Color) Hex() string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// Floats returns the color scaled by intensity in 0-1 space.
func (c Color) Floats(intensity float32) [3]float32 {
	return [3]float32{
		float32(c.R) / 255 * intensity,
		float32(c.G) / 255 * intensity,
		float32(c.B) / 255 * intensity,
	}
}
