package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/hjmsim/internal/config"
	"github.com/san-kum/hjmsim/internal/hjm"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/mat"
)

// Precision is the number of decimal places written to CSV files.
const Precision = 12

const (
	metadataFile  = "metadata.json"
	configFile    = "config.yaml"
	ratesFile     = "rates.csv"
	discountsFile = "discounts.csv"
	bondsFile     = "bonds.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Timestamp    time.Time          `json:"timestamp"`
	Factors      int                `json:"factors"`
	Seed         uint64             `json:"seed"`
	NumSamples   int                `json:"num_samples"`
	TimeStep     float64            `json:"time_step"`
	Steps        int                `json:"steps"`
	RandomType   string             `json:"random_type"`
	DiscountMode string             `json:"discount_mode"`
	Times        []float64          `json:"times"`
	CurveTimes   []float64          `json:"curve_times,omitempty"`
	Metrics      map[string]float64 `json:"metrics"`
}

// Save writes a run directory holding metadata.json, config.yaml and the
// rate, discount and (when present) bond CSV files. It returns the run id.
func (s *Store) Save(cfg *config.Config, paths *hjm.Paths, metrics map[string]float64) (string, error) {
	name := cfg.Name
	if name == "" {
		name = "run"
	}
	runID := fmt.Sprintf("%s_%s", name, uuid.NewString()[:8])
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	samples, _ := paths.Rates.Dims()
	meta := RunMetadata{
		ID:           runID,
		Name:         name,
		Timestamp:    time.Now(),
		Factors:      len(cfg.MeanReversion),
		Seed:         cfg.Seed,
		NumSamples:   samples,
		TimeStep:     cfg.TimeStep,
		Steps:        paths.Steps,
		RandomType:   cfg.RandomType,
		DiscountMode: cfg.DiscountMode,
		Times:        paths.Times,
		CurveTimes:   paths.CurveTimes,
		Metrics:      finiteMetrics(metrics),
	}

	if err := writeRun(runDir, meta, cfg, paths); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}
	return runID, nil
}

func writeRun(runDir string, meta RunMetadata, cfg *config.Config, paths *hjm.Paths) error {
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return err
	}
	if err := config.Save(filepath.Join(runDir, configFile), cfg); err != nil {
		return err
	}
	if err := writeMatrix(filepath.Join(runDir, ratesFile), paths.Times, paths.Rates); err != nil {
		return err
	}
	if err := writeMatrix(filepath.Join(runDir, discountsFile), paths.Times, paths.Discounts); err != nil {
		return err
	}
	if paths.Bonds != nil {
		return writeSurface(filepath.Join(runDir, bondsFile), paths)
	}
	return nil
}

// finiteMetrics drops values JSON cannot represent.
func finiteMetrics(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatValue renders v with Precision decimals. Non-finite values keep
// their strconv spelling so they survive a round trip.
func FormatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return decimal.NewFromFloat(v).StringFixed(Precision)
}

func formatTime(t float64) string {
	return strconv.FormatFloat(t, 'g', -1, 64)
}

// writeMatrix writes one row per sample with a "sample" column followed by
// one column per output time.
func writeMatrix(path string, times []float64, m *mat.Dense) error {
	if _, cols := m.Dims(); cols != len(times) {
		return fmt.Errorf("%s: %d columns for %d times", filepath.Base(path), cols, len(times))
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"sample"}
	for _, t := range times {
		header = append(header, formatTime(t))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	rows, _ := m.Dims()
	for r := 0; r < rows; r++ {
		row := []string{strconv.Itoa(r)}
		for _, v := range m.RawRowView(r) {
			row = append(row, FormatValue(v))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// writeSurface writes bond prices in long format:
// sample, tenor, time, price.
func writeSurface(path string, paths *hjm.Paths) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"sample", "tenor", "time", "price"}); err != nil {
		return err
	}
	b := paths.Bonds
	for s := 0; s < b.Samples; s++ {
		for j, tau := range paths.CurveTimes {
			for i, t := range paths.Times {
				row := []string{strconv.Itoa(s), formatTime(tau), formatTime(t), FormatValue(b.At(s, j, i))}
				if err := w.Write(row); err != nil {
					return err
				}
			}
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the stored runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadConfig returns the configuration the run was produced with.
func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.baseDir, runID, configFile))
}

// LoadPaths reads the stored rates, discount factors and bond surface.
// States are not stored and stay nil.
func (s *Store) LoadPaths(runID string) (*hjm.Paths, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(s.baseDir, runID)

	rates, err := readMatrix(filepath.Join(dir, ratesFile), len(meta.Times))
	if err != nil {
		return nil, fmt.Errorf("rates: %w", err)
	}
	discounts, err := readMatrix(filepath.Join(dir, discountsFile), len(meta.Times))
	if err != nil {
		return nil, fmt.Errorf("discounts: %w", err)
	}

	paths := &hjm.Paths{
		Times:      meta.Times,
		CurveTimes: meta.CurveTimes,
		Rates:      rates,
		Discounts:  discounts,
		Steps:      meta.Steps,
	}

	samples, _ := rates.Dims()
	bonds, err := readSurface(filepath.Join(dir, bondsFile), samples, len(meta.CurveTimes), len(meta.Times))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("bonds: %w", err)
	default:
		paths.Bonds = bonds
	}
	return paths, nil
}

var errMalformed = errors.New("storage: malformed csv")

func readRecords(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

func readMatrix(path string, cols int) (*mat.Dense, error) {
	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: %s has no samples", errMalformed, path)
	}

	m := mat.NewDense(len(records)-1, cols, nil)
	for i, record := range records[1:] {
		if len(record) != cols+1 {
			return nil, fmt.Errorf("%w: row %d has %d fields, want %d", errMalformed, i+1, len(record), cols+1)
		}
		for j, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: %v", errMalformed, i+1, err)
			}
			m.Set(i, j, v)
		}
	}
	return m, nil
}

func readSurface(path string, samples, maturities, times int) (*hjm.Surface, error) {
	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}
	if len(records)-1 != samples*maturities*times {
		return nil, fmt.Errorf("%w: %d bond rows, want %d", errMalformed, len(records)-1, samples*maturities*times)
	}

	surface := hjm.NewSurface(samples, maturities, times)
	n := 0
	for s := 0; s < samples; s++ {
		for j := 0; j < maturities; j++ {
			for i := 0; i < times; i++ {
				n++
				record := records[n]
				if len(record) != 4 {
					return nil, fmt.Errorf("%w: bond row %d has %d fields", errMalformed, n, len(record))
				}
				v, err := strconv.ParseFloat(record[3], 64)
				if err != nil {
					return nil, fmt.Errorf("%w: bond row %d: %v", errMalformed, n, err)
				}
				surface.Set(s, j, i, v)
			}
		}
	}
	return surface, nil
}
