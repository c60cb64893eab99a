package viz

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// MetricsTable renders metrics sorted by name.
func MetricsTable(metrics map[string]float64) string {
	if len(metrics) == 0 {
		return Subtle.Render("no metrics")
	}
	names := make([]string, 0, len(metrics))
	width := 0
	for name := range metrics {
		names = append(names, name)
		if len(name) > width {
			width = len(name)
		}
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		label := MetricLabel.Render(name + strings.Repeat(" ", width-len(name)))
		lines = append(lines, label+"  "+MetricValue.Render(FormatNumber(metrics[name])))
	}
	return Panel.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// FormatNumber prints v with eight decimals, or its special spelling when
// v is not finite.
func FormatNumber(v float64) string {
	if !isFinite(v) {
		return Warning.Render(nonFinite(v))
	}
	return decimal.NewFromFloat(v).StringFixed(8)
}

func nonFinite(v float64) string {
	switch {
	case v > 0:
		return "+Inf"
	case v < 0:
		return "-Inf"
	}
	return "NaN"
}
