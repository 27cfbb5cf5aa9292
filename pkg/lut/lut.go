// Package lut holds the fixed palette of look-up tables used to colorize
// channel intensities. Every table is a linear ramp from black up to a
// single full-saturation color, the way fluorescence channels are
// conventionally displayed.
package lut

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// Map is one named black-to-color ramp.
type Map struct {
	Name string
	full colorful.Color
}

// Canonical is the palette in default draw order: when no -lut argument
// is given, channel N gets Canonical[N] (cycling past the end).
var Canonical = []string{"bf", "dapi", "red", "cyan", "green", "magenta", "orange", "yellow"}

var maps = map[string]Map{
	"bf":      {Name: "bf", full: colorful.Color{R: 1, G: 1, B: 1}}, // bright field
	"dapi":    {Name: "dapi", full: colorful.Color{R: 0, G: 0, B: 1}},
	"red":     {Name: "red", full: colorful.Color{R: 1, G: 0, B: 0}},
	"cyan":    {Name: "cyan", full: colorful.Color{R: 0, G: 1, B: 1}},
	"green":   {Name: "green", full: colorful.Color{R: 0, G: 1, B: 0}}, // lime, not X11 green
	"magenta": {Name: "magenta", full: colorful.Color{R: 1, G: 0, B: 1}},
	"orange":  {Name: "orange", full: colorful.Color{R: 1, G: 165.0 / 255.0, B: 0}},
	"yellow":  {Name: "yellow", full: colorful.Color{R: 1, G: 1, B: 0}},
}

var aliases = map[string]string{
	"blue": "dapi",
}

// Get looks a ramp up by name, resolving aliases ("blue" means dapi).
func Get(name string) (Map, error) {
	if canon, ok := aliases[name]; ok {
		name = canon
	}
	m, ok := maps[name]
	if !ok {
		return Map{}, fmt.Errorf("no LUT named '%s'", name)
	}
	return m, nil
}

// Names lists every accepted name, canonical order first, aliases last.
func Names() []string {
	names := append([]string{}, Canonical...)
	for a := range aliases {
		names = append(names, a)
	}
	return names
}

// At maps an intensity sample to a color. Values at or below low hit the
// black end of the ramp, values at or above high hit the full color, and
// everything between blends linearly. Callers guarantee low < high.
func (m Map) At(v, low, high float64) colorful.Color {
	t := (v - low) / (high - low)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return colorful.Color{}.BlendRgb(m.full, t)
}
