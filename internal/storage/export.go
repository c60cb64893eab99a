package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"strconv"

	"github.com/san-kum/hjmsim/internal/hjm"
	"gonum.org/v1/gonum/mat"
)

// jsonFloat encodes non-finite values as null.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

type ExportData struct {
	Run        *RunMetadata    `json:"run,omitempty"`
	Times      []float64       `json:"times"`
	CurveTimes []float64       `json:"curve_times,omitempty"`
	Rates      [][]jsonFloat   `json:"rates"`
	Discounts  [][]jsonFloat   `json:"discounts"`
	Bonds      [][][]jsonFloat `json:"bonds,omitempty"`
}

func rows(m *mat.Dense) [][]jsonFloat {
	r, c := m.Dims()
	out := make([][]jsonFloat, r)
	for i := range out {
		out[i] = make([]jsonFloat, c)
		for j, v := range m.RawRowView(i) {
			out[i][j] = jsonFloat(v)
		}
	}
	return out
}

// ExportJSON writes paths as indented JSON. Bonds are indexed
// [sample][tenor][time].
func ExportJSON(w io.Writer, meta *RunMetadata, paths *hjm.Paths) error {
	data := ExportData{
		Run:        meta,
		Times:      paths.Times,
		CurveTimes: paths.CurveTimes,
		Rates:      rows(paths.Rates),
		Discounts:  rows(paths.Discounts),
	}
	if paths.Bonds != nil {
		data.Bonds = make([][][]jsonFloat, paths.Bonds.Samples)
		for s := range data.Bonds {
			data.Bonds[s] = rows(paths.Bonds.Sample(s))
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportCSV writes one row per (sample, time) with the short rate and the
// discount factor.
func ExportCSV(w io.Writer, paths *hjm.Paths) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"sample", "time", "rate", "discount"}); err != nil {
		return err
	}
	samples, _ := paths.Rates.Dims()
	for s := 0; s < samples; s++ {
		for i, t := range paths.Times {
			row := []string{
				strconv.Itoa(s),
				formatTime(t),
				FormatValue(paths.Rates.At(s, i)),
				FormatValue(paths.Discounts.At(s, i)),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
