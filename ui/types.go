// Package ui provides the raylib viewer for the live simulation: particle
// rendering, the HUD, the interaction-matrix editor and the control buttons.
// It never touches simulation state directly; everything it shows comes from
// worker snapshots and everything it changes goes out as worker commands.
package ui

import rl "github.com/gen2brain/raylib-go/raylib"

// Theme holds UI styling constants.
type Theme struct {
	PanelBg         rl.Color
	PanelBorder     rl.Color
	SectionHeader   rl.Color
	LabelColor      rl.Color
	ValueColor      rl.Color
	BarBg           rl.Color
	BarFill         rl.Color
	BarFillNegative rl.Color
	BarFillPositive rl.Color
	Padding         int32
	LineHeight      int32
	LabelWidth      int32
	BarHeight       int32
	FontSize        int32
	HeaderFontSize  int32
}

// DefaultTheme returns the default UI theme.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:         rl.Color{R: 20, G: 25, B: 30, A: 240},
		PanelBorder:     rl.Color{R: 60, G: 70, B: 80, A: 255},
		SectionHeader:   rl.Yellow,
		LabelColor:      rl.LightGray,
		ValueColor:      rl.LightGray,
		BarBg:           rl.Color{R: 40, G: 40, B: 40, A: 255},
		BarFill:         rl.Color{R: 100, G: 150, B: 200, A: 255},
		BarFillNegative: rl.Color{R: 200, G: 100, B: 100, A: 255},
		BarFillPositive: rl.Color{R: 100, G: 200, B: 100, A: 255},
		Padding:         10,
		LineHeight:      16,
		LabelWidth:      80,
		BarHeight:       12,
		FontSize:        12,
		HeaderFontSize:  14,
	}
}

// ClassHue returns the hue in degrees of class c out of n, spread evenly
// around the color wheel.
func ClassHue(c, n int) float32 {
	if n <= 0 {
		return 0
	}
	return 360 * float32(c) / float32(n)
}

// ClassColor returns the display color of class c out of n.
func ClassColor(c, n int) rl.Color {
	return rl.ColorFromHSV(ClassHue(c, n), 0.75, 0.95)
}

// ClassPalette returns the colors of all n classes.
func ClassPalette(n int) []rl.Color {
	colors := make([]rl.Color, n)
	for c := range colors {
		colors[c] = ClassColor(c, n)
	}
	return colors
}

// PowerColor maps a matrix power in [-limit, limit] to a cell color: green
// for attraction, red for repulsion, dark for zero.
func PowerColor(power, limit int8) rl.Color {
	if limit <= 0 {
		limit = 1
	}
	t := float32(power) / float32(limit)
	if t > 1 {
		t = 1
	}
	if t < -1 {
		t = -1
	}
	base := uint8(30)
	if t >= 0 {
		return rl.Color{R: base, G: base + uint8(t*200), B: base, A: 255}
	}
	return rl.Color{R: base + uint8(-t*200), G: base, B: base, A: 255}
}
