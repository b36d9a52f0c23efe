package debugvis

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/nstehr/vimy/vimy-perception/threat"
)

func TestRenderShades(t *testing.T) {
	layer := []float32{
		0, 5, 20,
		40, 80, -1,
	}
	got := ansi.Strip(Render(layer, 3, 2, 40))
	want := " ░▒\n██ "
	if got != want {
		t.Errorf("Render:\n%q\nwant\n%q", got, want)
	}
}

func TestRenderZeroScale(t *testing.T) {
	got := ansi.Strip(Render([]float32{1, 2}, 2, 1, 0))
	if got != "  " {
		t.Errorf("zero scale: got %q", got)
	}
}

func TestRenderShortLayerPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	Render([]float32{1}, 2, 2, 40)
}

func TestScale(t *testing.T) {
	if Scale(threat.LayerCloak) != threat.ThreatCloak {
		t.Error("cloak layer must saturate at ThreatCloak")
	}
	if Scale(threat.LayerAir) != 40 {
		t.Errorf("air scale: got %v", Scale(threat.LayerAir))
	}
}

func TestDownsampleKeepsPeaks(t *testing.T) {
	layer := []float32{
		0, 0, 0, 0, 0,
		0, 9, 0, 0, 0,
		0, 0, 0, 0, 3,
	}
	out, w, h := Downsample(layer, 5, 3, 2)
	if w != 3 || h != 2 {
		t.Fatalf("size: got %dx%d", w, h)
	}
	want := []float32{9, 0, 0, 0, 0, 3}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("cell %d: got %v, want %v (%v)", i, out[i], want[i], out)
		}
	}
}

type fakeSource struct{ w, h int }

func (f fakeSource) Width() int  { return f.w }
func (f fakeSource) Height() int { return f.h }
func (f fakeSource) Layer(k threat.LayerKind) []float32 {
	out := make([]float32, f.w*f.h)
	out[0] = float32(k + 1)
	return out
}

func TestBrowserCyclesLayers(t *testing.T) {
	var m tea.Model = NewBrowser(fakeSource{4, 4}, "test")
	for i := 0; i < int(threat.LayerCount); i++ {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	}
	if k := m.(Browser).Kind(); k != threat.LayerAir {
		t.Errorf("after a full cycle: got %v", k)
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if k := m.(Browser).Kind(); k != threat.LayerInfluence {
		t.Errorf("shift+tab from air: got %v", k)
	}
	if v := ansi.Strip(m.View()); !strings.Contains(v, "layer: influence") {
		t.Errorf("view missing layer name:\n%s", v)
	}
}

func TestBrowserQuits(t *testing.T) {
	b := NewBrowser(fakeSource{2, 2}, "test")
	_, cmd := b.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("q did not quit")
	}
}

func TestBrowserFitsTerminal(t *testing.T) {
	var m tea.Model = NewBrowser(fakeSource{100, 100}, "test")
	m, _ = m.Update(tea.WindowSizeMsg{Width: 30, Height: 23})
	if step := m.(Browser).step(100, 100); step != 5 {
		t.Errorf("step: got %d, want 5", step)
	}
}
