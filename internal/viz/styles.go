package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	colorAccent  = lipgloss.Color("#5fd7ff")
	colorTab     = lipgloss.Color("#ffaf00")
	colorMuted   = lipgloss.Color("#6c6c80")
	colorBorder  = lipgloss.Color("#3a3a4e")
	colorValue   = lipgloss.Color("#87ffaf")
	colorAlert   = lipgloss.Color("#ff5f5f")
	colorNeutral = lipgloss.Color("#d0d0d0")
)

var (
	Title       = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	Subtle      = lipgloss.NewStyle().Foreground(colorMuted)
	Selected    = lipgloss.NewStyle().Bold(true).Foreground(colorTab)
	Warning     = lipgloss.NewStyle().Bold(true).Foreground(colorAlert)
	MetricValue = lipgloss.NewStyle().Foreground(colorValue)
	MetricLabel = lipgloss.NewStyle().Foreground(colorNeutral)
	KeyHint     = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)

	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(colorBorder)

	// spark bars: values at or above zero, below zero
	sparkPositive = lipgloss.NewStyle().Foreground(colorValue)
	sparkNegative = lipgloss.NewStyle().Foreground(colorAlert)
)

var sparkBars = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders values as a one-line bar chart scaled to their finite
// range. Negative values are drawn in the alert colour and non-finite values
// as blanks.
func Sparkline(values []float64) string {
	lo, hi, ok := finiteRange(values)
	if !ok {
		return strings.Repeat(" ", len(values))
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	var b strings.Builder
	for _, v := range values {
		if !isFinite(v) {
			b.WriteRune(' ')
			continue
		}
		bar := string(sparkBars[int((v-lo)/span*float64(len(sparkBars)-1))])
		if v < 0 {
			b.WriteString(sparkNegative.Render(bar))
		} else {
			b.WriteString(sparkPositive.Render(bar))
		}
	}
	return b.String()
}
