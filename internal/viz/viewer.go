package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/hjmsim/internal/analysis"
	"github.com/san-kum/hjmsim/internal/hjm"
	"gonum.org/v1/gonum/mat"
)

type view int

const (
	viewRates view = iota
	viewDiscounts
	viewBonds
	viewBand
)

var viewNames = []string{"rates", "discounts", "bonds", "band"}

// Viewer pages through the sample paths of a simulation.
type Viewer struct {
	title   string
	paths   *hjm.Paths
	metrics map[string]float64
	samples int
	sample  int
	time    int
	view    view
	width   int
}

func NewViewer(title string, paths *hjm.Paths, metrics map[string]float64) Viewer {
	samples, _ := paths.Rates.Dims()
	return Viewer{
		title:   title,
		paths:   paths,
		metrics: metrics,
		samples: samples,
		time:    len(paths.Times) - 1,
		width:   80,
	}
}

func (v Viewer) Init() tea.Cmd { return nil }

func (v Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return v, tea.Quit
		case "l", "right":
			v.sample = (v.sample + 1) % v.samples
		case "h", "left":
			v.sample = (v.sample - 1 + v.samples) % v.samples
		case "k", "up":
			if v.time < len(v.paths.Times)-1 {
				v.time++
			}
		case "j", "down":
			if v.time > 0 {
				v.time--
			}
		case "tab":
			v.view = v.nextView()
		}
	}
	return v, nil
}

func (v Viewer) nextView() view {
	next := (v.view + 1) % view(len(viewNames))
	if next == viewBonds && v.paths.Bonds == nil {
		next++
	}
	return next
}

func (v Viewer) chart() string {
	row := func(m *mat.Dense) []float64 {
		return append([]float64(nil), m.RawRowView(v.sample)...)
	}
	switch v.view {
	case viewDiscounts:
		return PlotCurve(row(v.paths.Discounts), fmt.Sprintf("discount factor, sample %d", v.sample))
	case viewBonds:
		curve := make([]float64, len(v.paths.CurveTimes))
		for j := range curve {
			curve[j] = v.paths.Bonds.At(v.sample, j, v.time)
		}
		return PlotCurve(curve, Caption(fmt.Sprintf("P(t, t+tau), sample %d", v.sample), v.paths.Times[v.time]))
	case viewBand:
		return PlotBand(analysis.Summarize(v.paths.Rates, 0.05), "short rate mean with 5%-95% band")
	}
	return PlotCurve(row(v.paths.Rates), fmt.Sprintf("short rate, sample %d", v.sample))
}

func (v Viewer) View() string {
	var b strings.Builder

	tabs := make([]string, len(viewNames))
	for i, name := range viewNames {
		if view(i) == v.view {
			tabs[i] = Selected.Render("[" + name + "]")
		} else {
			tabs[i] = Subtle.Render(" " + name + " ")
		}
	}

	b.WriteString(HeaderStyle.Render(v.title))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n\n")
	b.WriteString(v.chart())
	b.WriteString("\n\n")
	b.WriteString(Sparkline(v.paths.Rates.RawRowView(v.sample)))
	b.WriteString("\n")
	b.WriteString(MetricsTable(v.metrics))
	b.WriteString("\n")
	b.WriteString(KeyHint.Render(fmt.Sprintf("sample %d/%d  h/l sample  j/k time  tab view  q quit", v.sample+1, v.samples)))
	return b.String()
}
