package matrix

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	SkyBlue = "#87CEEB"
	Violet  = "#8A2BE2"

	// ScaleMaxMM is the precipitation at which the cell colour saturates.
	ScaleMaxMM = 7.0

	tc1 = "#FFF2BD"
	tc2 = "#F4D797"
	tc3 = "#EBB58A"
	tc4 = "#DA7F7D"
	tc5 = "#B5728E"
	tc6 = "#776E99"

	PopWhite  = "#FFFFFF"
	PopGreen  = "#D1E7DD"
	PopYellow = "#FFF3CD"
	PopRed    = "#F8D7DA"
)

type colorStop struct {
	hour  float64
	color string
}

var timeStops = []colorStop{
	{0.0, tc6},
	{4.5, tc5},
	{6.5, tc4},
	{8.5, tc3},
	{11.0, tc2},
	{13.0, tc1},
	{15.5, tc2},
	{18.0, tc3},
	{19.5, tc4},
	{21.5, tc5},
	{24.0, tc6},
}

type rgb struct{ r, g, b float64 }

func parseHex(h string) rgb {
	h = strings.TrimPrefix(h, "#")
	ch := func(s string) float64 {
		v, _ := strconv.ParseUint(s, 16, 8)
		return float64(v)
	}
	return rgb{ch(h[0:2]), ch(h[2:4]), ch(h[4:6])}
}

func (c rgb) hex() string {
	return fmt.Sprintf("#%02X%02X%02X", int(c.r), int(c.g), int(c.b))
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

func smoothstep(t float64) float64 {
	t = clamp01(t)
	return t * t * (3.0 - 2.0*t)
}

// mix interpolates each channel linearly, rounding half to even.
func mix(c0, c1 string, t float64) string {
	a, b := parseHex(c0), parseHex(c1)
	lerp := func(x, y float64) float64 {
		return math.RoundToEven(x + (y-x)*t)
	}
	return rgb{lerp(a.r, b.r), lerp(a.g, b.g), lerp(a.b, b.b)}.hex()
}

// PrecipColor maps precipitation onto the sky blue to violet scale.
func PrecipColor(mm float64) string {
	p := math.Max(0, mm)
	if p >= ScaleMaxMM {
		return Violet
	}
	return mix(SkyBlue, Violet, p/ScaleMaxMM)
}

// TimeColor returns the day/night gradient colour for the hour column.
func TimeColor(t time.Time) string {
	h := float64(t.Hour()) + float64(t.Minute())/60.0

	for i := 0; i+1 < len(timeStops); i++ {
		s0, s1 := timeStops[i], timeStops[i+1]
		if s0.hour <= h && h <= s1.hour {
			if s1.hour == s0.hour {
				return s1.color
			}
			return mix(s0.color, s1.color, smoothstep((h-s0.hour)/(s1.hour-s0.hour)))
		}
	}
	return tc6
}

// PopColor picks the pill background for a probability of precipitation.
func PopColor(pop int) string {
	switch {
	case pop > 80:
		return PopRed
	case pop > 50:
		return PopYellow
	case pop >= 30:
		return PopGreen
	default:
		return PopWhite
	}
}
