// Package debugvis draws threat layers in the terminal.
package debugvis

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nstehr/vimy/vimy-perception/threat"
)

// threatScale saturates the threat layers; the cloak layer saturates at
// threat.ThreatCloak.
const threatScale = 40

var (
	shades  = []rune(" ░▒▓█")
	palette = []lipgloss.Color{"8", "2", "3", "208", "1"}
)

// Scale is the value at which a layer renders fully saturated.
func Scale(k threat.LayerKind) float32 {
	if k == threat.LayerCloak {
		return threat.ThreatCloak
	}
	return threatScale
}

// Render draws a width x height layer, one character per cell, with values
// normalized by scale and clamped to 1. Row 0 is printed first.
func Render(layer []float32, width, height int, scale float32) string {
	if len(layer) < width*height {
		panic(fmt.Sprintf("debugvis: layer has %d cells, want %d", len(layer), width*height))
	}
	var b strings.Builder
	for z := 0; z < height; z++ {
		row := layer[z*width : (z+1)*width]
		// Runs of one shade share a style to keep escape codes down.
		for x := 0; x < width; {
			lvl := level(row[x], scale)
			n := 1
			for x+n < width && level(row[x+n], scale) == lvl {
				n++
			}
			run := strings.Repeat(string(shades[lvl]), n)
			if lvl == 0 {
				b.WriteString(run)
			} else {
				b.WriteString(lipgloss.NewStyle().Foreground(palette[lvl]).Render(run))
			}
			x += n
		}
		if z < height-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func level(v, scale float32) int {
	if scale <= 0 || v <= 0 {
		return 0
	}
	n := min(v/scale, 1)
	top := len(shades) - 1
	return max(1, int(n*float32(top)+0.5))
}

// Downsample keeps the maximum of each step x step block so that isolated
// hot cells survive shrinking.
func Downsample(layer []float32, width, height, step int) ([]float32, int, int) {
	if step <= 1 {
		return layer, width, height
	}
	w := (width + step - 1) / step
	h := (height + step - 1) / step
	out := make([]float32, w*h)
	for z := 0; z < height; z++ {
		for x := 0; x < width; x++ {
			i := (z/step)*w + x/step
			out[i] = max(out[i], layer[z*width+x])
		}
	}
	return out, w, h
}

// Legend names the shades of a layer.
func Legend(scale float32) string {
	parts := make([]string, 0, len(shades)-1)
	top := float32(len(shades) - 1)
	for i := 1; i < len(shades); i++ {
		sw := lipgloss.NewStyle().Foreground(palette[i]).Render(string(shades[i]))
		parts = append(parts, fmt.Sprintf("%s>=%.1f", sw, scale*(float32(i)-0.5)/top))
	}
	return strings.Join(parts, " ")
}
