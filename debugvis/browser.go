package debugvis

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nstehr/vimy/vimy-perception/threat"
)

// Source is the published field. *threat.Engine satisfies it.
type Source interface {
	Width() int
	Height() int
	Layer(k threat.LayerKind) []float32
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Browser is a bubbletea model showing one layer at a time.
type Browser struct {
	src    Source
	title  string
	kind   threat.LayerKind
	width  int // terminal size, zero until the first WindowSizeMsg
	height int
}

func NewBrowser(src Source, title string) Browser {
	return Browser{src: src, title: title}
}

// Kind is the layer on screen.
func (b Browser) Kind() threat.LayerKind { return b.kind }

func (b Browser) Init() tea.Cmd { return nil }

func (b Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width, b.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return b, tea.Quit
		case "tab", "right", "l":
			b.kind = (b.kind + 1) % threat.LayerCount
		case "shift+tab", "left", "h":
			b.kind = (b.kind + threat.LayerCount - 1) % threat.LayerCount
		}
	}
	return b, nil
}

func (b Browser) View() string {
	layer := b.src.Layer(b.kind)
	w, h := b.src.Width(), b.src.Height()
	step := b.step(w, h)
	small, sw, sh := Downsample(layer, w, h, step)

	var peak float32
	for _, v := range layer {
		peak = max(peak, v)
	}
	scale := Scale(b.kind)
	header := titleStyle.Render(fmt.Sprintf("%s  layer: %s", b.title, b.kind)) +
		helpStyle.Render(fmt.Sprintf("  max %.2f  1:%d", peak, step))
	footer := Legend(scale) + "\n" + helpStyle.Render("tab/shift+tab: layer  q: quit")
	return lipgloss.JoinVertical(lipgloss.Left, header, Render(small, sw, sh, scale), footer)
}

// step shrinks the map to the terminal, leaving room for header and footer.
func (b Browser) step(w, h int) int {
	if b.width <= 0 || b.height <= 3 {
		return 1
	}
	step := 1
	for (w+step-1)/step > b.width || (h+step-1)/step > b.height-3 {
		step++
	}
	return step
}

// Run blocks until the user quits.
func Run(src Source, title string) error {
	_, err := tea.NewProgram(NewBrowser(src, title), tea.WithAltScreen()).Run()
	return err
}
