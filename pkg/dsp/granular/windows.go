package granular

import (
	"github.com/cwbudde/algo-dsp/dsp/window"
)

// Window selects the grain amplitude envelope.
type Window int

const (
	WindowHann Window = iota
	WindowTriangle
	WindowRectangle
	WindowTukey
)

// numWindows is the number of Window values, as a constant for array sizes.
const numWindows = int(WindowTukey) + 1

// WindowNames are display names indexed by Window.
var WindowNames = []string{"Hann", "Triangle", "Rectangle", "Tukey"}

// tableSize is the number of intervals in each window table.
const tableSize = 1024

// windowTables is built once at init and only read afterwards.
var windowTables = buildWindowTables()

func buildWindowTables() [numWindows][tableSize + 1]float32 {
	var tables [numWindows][tableSize + 1]float32
	gen := [numWindows][]float64{
		WindowHann:      window.Generate(window.TypeHann, tableSize+1),
		WindowTriangle:  window.Generate(window.TypeTriangle, tableSize+1, window.WithBartlett()),
		WindowRectangle: window.Generate(window.TypeRectangular, tableSize+1),
		WindowTukey:     window.Generate(window.TypeTukey, tableSize+1, window.WithAlpha(0.5)),
	}
	for w := range gen {
		for i, v := range gen[w] {
			tables[w][i] = float32(v)
		}
	}
	return tables
}

// WindowAt returns the window value at pos in [0, 1]; outside that range it is 0.
func WindowAt(w Window, pos float64) float32 {
	if pos < 0 || pos > 1 {
		return 0
	}
	if w < 0 || int(w) >= len(windowTables) {
		w = WindowHann
	}
	x := pos * tableSize
	i := int(x)
	if i >= tableSize {
		return windowTables[w][tableSize]
	}
	frac := float32(x - float64(i))
	t := &windowTables[w]
	return t[i] + frac*(t[i+1]-t[i])
}
