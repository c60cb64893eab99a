package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/san-kum/hjmsim/internal/analysis"
	"gonum.org/v1/gonum/mat"
)

// Point is one vertex of a polyline in data coordinates.
type Point struct{ X, Y float64 }

// Palette cycles through these stroke colours for sample paths.
var Palette = []string{"#00d7ff", "#ffaf00", "#5fff87", "#ff5f87", "#af87ff", "#d7d7d7"}

type bounds struct {
	minX, maxX, minY, maxY float64
}

func (b *bounds) add(p Point) {
	if math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
		return
	}
	b.minX = math.Min(b.minX, p.X)
	b.maxX = math.Max(b.maxX, p.X)
	b.minY = math.Min(b.minY, p.Y)
	b.maxY = math.Max(b.maxY, p.Y)
}

func newBounds() *bounds {
	return &bounds{minX: math.Inf(1), maxX: math.Inf(-1), minY: math.Inf(1), maxY: math.Inf(-1)}
}

// pad widens the box by 10% and guards degenerate ranges.
func (b *bounds) pad() {
	rangeX := b.maxX - b.minX
	rangeY := b.maxY - b.minY
	if !(rangeX > 0) {
		rangeX = 1
	}
	if !(rangeY > 0) {
		rangeY = math.Max(math.Abs(b.maxY), 1e-4)
	}
	b.minX -= rangeX * 0.1
	b.maxX += rangeX * 0.1
	b.minY -= rangeY * 0.1
	b.maxY += rangeY * 0.1
}

type canvas struct {
	sb            strings.Builder
	width, height int
	b             *bounds
}

func newCanvas(width, height int, b *bounds) *canvas {
	c := &canvas{width: width, height: height, b: b}
	fmt.Fprintf(&c.sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)
	return c
}

func (c *canvas) project(p Point) (float64, float64) {
	x := (p.X - c.b.minX) / (c.b.maxX - c.b.minX) * float64(c.width)
	y := float64(c.height) - (p.Y-c.b.minY)/(c.b.maxY-c.b.minY)*float64(c.height)
	return x, y
}

// segments splits points at non-finite values.
func segments(points []Point) [][]Point {
	var out [][]Point
	var cur []Point
	for _, p := range points {
		if math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
			if len(cur) > 0 {
				out = append(out, cur)
			}
			cur = nil
			continue
		}
		cur = append(cur, p)
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// polyline draws one path per finite segment of points.
func (c *canvas) polyline(points []Point, stroke string, dashed bool) {
	dash := ""
	if dashed {
		dash = ` stroke-dasharray="4 3"`
	}
	for _, seg := range segments(points) {
		fmt.Fprintf(&c.sb, `<path fill="none" stroke="%s" stroke-width="1.5"%s d="`, stroke, dash)
		for i, p := range seg {
			x, y := c.project(p)
			if i == 0 {
				fmt.Fprintf(&c.sb, "M%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&c.sb, " L%.1f,%.1f", x, y)
			}
		}
		c.sb.WriteString("\"/>\n")
	}
}

func (c *canvas) caption(text string) {
	if text == "" {
		return
	}
	fmt.Fprintf(&c.sb, `<text x="8" y="16" fill="#d7d7d7" font-family="monospace" font-size="12">%s</text>
`, escape(text))
}

func (c *canvas) String() string {
	return c.sb.String() + "</svg>\n"
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escape(s string) string { return escaper.Replace(s) }

// TrajectoryToSVG renders a single polyline.
func TrajectoryToSVG(points []Point, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}
	b := newBounds()
	for _, p := range points {
		b.add(p)
	}
	if math.IsInf(b.minY, 1) {
		return ""
	}
	b.pad()

	c := newCanvas(width, height, b)
	c.polyline(points, strokeColor, false)
	return c.String()
}

func row(times []float64, m *mat.Dense, i int) []Point {
	pts := make([]Point, len(times))
	for j, t := range times {
		pts[j] = Point{X: t, Y: m.At(i, j)}
	}
	return pts
}

// PathsToSVG renders the first n sample paths of m, which is
// [samples, len(times)], together with the dashed column mean.
func PathsToSVG(w io.Writer, times []float64, m *mat.Dense, n, width, height int, caption string) error {
	samples, cols := m.Dims()
	if cols != len(times) {
		return fmt.Errorf("svg: %d columns for %d times", cols, len(times))
	}
	if len(times) < 2 {
		return fmt.Errorf("svg: need at least two times, got %d", len(times))
	}
	if n > samples {
		n = samples
	}

	mean := analysis.ColumnMeans(m)
	meanPts := make([]Point, len(times))
	b := newBounds()
	for j, t := range times {
		meanPts[j] = Point{X: t, Y: mean[j]}
		b.add(meanPts[j])
	}
	paths := make([][]Point, n)
	for i := range paths {
		paths[i] = row(times, m, i)
		for _, p := range paths[i] {
			b.add(p)
		}
	}
	if math.IsInf(b.minY, 1) {
		return fmt.Errorf("svg: no finite values")
	}
	b.pad()

	c := newCanvas(width, height, b)
	for i, pts := range paths {
		c.polyline(pts, Palette[i%len(Palette)], false)
	}
	c.polyline(meanPts, "#ffffff", true)
	c.caption(caption)

	_, err := io.WriteString(w, c.String())
	return err
}

// BandToSVG renders the mean of band with its quantile bounds dashed.
func BandToSVG(w io.Writer, times []float64, band analysis.Band, width, height int, caption string) error {
	if len(band.Mean) != len(times) || len(band.Lower) != len(times) || len(band.Upper) != len(times) {
		return fmt.Errorf("svg: band length does not match %d times", len(times))
	}
	series := [][]float64{band.Mean, band.Lower, band.Upper}
	pts := make([][]Point, len(series))
	b := newBounds()
	for s, values := range series {
		pts[s] = make([]Point, len(times))
		for j, t := range times {
			pts[s][j] = Point{X: t, Y: values[j]}
			b.add(pts[s][j])
		}
	}
	if math.IsInf(b.minY, 1) {
		return fmt.Errorf("svg: no finite values")
	}
	b.pad()

	c := newCanvas(width, height, b)
	c.polyline(pts[0], Palette[0], false)
	c.polyline(pts[1], Palette[1], true)
	c.polyline(pts[2], Palette[1], true)
	c.caption(caption)

	_, err := io.WriteString(w, c.String())
	return err
}
