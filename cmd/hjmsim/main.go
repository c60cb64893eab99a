package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/hjmsim/internal/analysis"
	"github.com/san-kum/hjmsim/internal/automation"
	"github.com/san-kum/hjmsim/internal/config"
	"github.com/san-kum/hjmsim/internal/experiment"
	"github.com/san-kum/hjmsim/internal/export"
	"github.com/san-kum/hjmsim/internal/optim"
	"github.com/san-kum/hjmsim/internal/storage"
	"github.com/san-kum/hjmsim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir      string
	verbose      bool
	configFile   string
	preset       string
	numSamples   int
	timeStep     float64
	seed         uint64
	randomType   string
	discountMode string
	workers      int
	validate     bool
	noSave       bool
	view         bool
	numPaths     int
	alpha        float64
	timeSteps    []float64
	benchWorkers []int
	outFile      string
	svgBand      bool
	svgPaths     int
	scanParams   []string
	scanMetric   string
	scanTarget   float64

	env    config.Env
	logger *slog.Logger
)

func main() {
	var err error
	env, err = config.ParseEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:          "hjmsim",
		Short:        "quasi-gaussian hjm short rate simulator",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", env.DataDir, "data directory (HJM_DATA_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "simulate and store a run",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addModelFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().BoolVar(&view, "view", false, "open the interactive viewer after the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot rate and discount paths",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&numPaths, "paths", 5, "number of sample paths to draw")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "mean and quantile band of the short rate",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().Float64Var(&alpha, "alpha", 0.05, "lower quantile of the band")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export rates and discounts as csv",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export the full run as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render rate paths as svg",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")
	exportSVGCmd.Flags().IntVar(&svgPaths, "paths", 10, "number of sample paths to draw")
	exportSVGCmd.Flags().BoolVar(&svgBand, "band", false, "draw the mean and quantile band instead of paths")
	exportSVGCmd.Flags().Float64Var(&alpha, "alpha", 0.05, "lower quantile of the band")

	viewCmd := &cobra.Command{
		Use:   "view [run_id]",
		Short: "browse a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  viewRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list presets and registered components",
		RunE:  listPresets,
	}

	convergeCmd := &cobra.Command{
		Use:   "converge",
		Short: "mean short rate error across time steps",
		Args:  cobra.NoArgs,
		RunE:  runConverge,
	}
	addModelFlags(convergeCmd)
	convergeCmd.Flags().Float64SliceVar(&timeSteps, "steps", []float64{0.5, 0.25, 0.1, 0.05, 0.025}, "time steps to compare")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "time a configuration across worker counts",
		Args:  cobra.NoArgs,
		RunE:  benchRun,
	}
	addModelFlags(benchCmd)
	benchCmd.Flags().IntSliceVar(&benchWorkers, "workers-list", []int{1, 2, 4, runtime.NumCPU()}, "worker counts to time")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "metric sensitivity over a grid of model parameters",
		Args:  cobra.NoArgs,
		RunE:  runScan,
	}
	addModelFlags(scanCmd)
	scanCmd.Flags().StringArrayVar(&scanParams, "param", nil, "grid axis as name=v1,v2,... (k0, sigma0, level0, skew0)")
	scanCmd.Flags().StringVar(&scanMetric, "metric", "repricing_error", "metric to report and rank by")
	scanCmd.Flags().Float64Var(&scanTarget, "target", 0, "rank points by distance to this value")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a yaml scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, analyzeCmd, exportCmd, exportCSVCmd,
		exportJSONCmd, exportSVGCmd, viewCmd, presetsCmd, convergeCmd, benchCmd, scanCmd, scenarioCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().IntVar(&numSamples, "samples", config.DefaultNumSamples, "number of sample paths")
	cmd.Flags().Float64Var(&timeStep, "dt", config.DefaultTimeStep, "euler time step")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().StringVar(&randomType, "random", config.DefaultRandomType, "normal generator (pseudo, antithetic, halton)")
	cmd.Flags().StringVar(&discountMode, "discount", config.DefaultDiscountMode, "discount mode (sequential, matmul)")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker goroutines (0 = all cpus)")
	cmd.Flags().BoolVar(&validate, "validate", false, "fail on non-finite states")
}

// resolveConfig layers preset, config file, environment and changed flags,
// in that order. Without a preset the config file must set time_step itself.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	switch {
	case configFile != "" && cfg != nil:
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	case cfg == nil:
		cfg = config.DefaultConfig()
	}

	env.Apply(cfg)

	flags := cmd.Flags()
	if flags.Changed("samples") {
		cfg.NumSamples = numSamples
	}
	if flags.Changed("dt") {
		cfg.TimeStep = timeStep
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("random") {
		cfg.RandomType = randomType
	}
	if flags.Changed("discount") {
		cfg.DiscountMode = discountMode
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("validate") {
		cfg.ValidateState = validate
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	exp := experiment.New(cfg).WithLogger(logger)
	if err := exp.Setup(experiment.NewRegistry()); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("running %s (%d factors, %d samples)...\n", cfg.Name, exp.Plan().Model.Factors(), cfg.NumSamples)
	out, err := exp.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", out.Elapsed)
	fmt.Printf("steps: %d\n", out.Paths.Steps)

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(cfg, out.Paths, out.Metrics)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	fmt.Println()
	fmt.Println(viz.MetricsTable(out.Metrics))

	if view {
		_, err := tea.NewProgram(viz.NewViewer(cfg.Name, out.Paths, out.Metrics), tea.WithAltScreen()).Run()
		return err
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tFACTORS\tSAMPLES\tDT\tRANDOM\tSEED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.4f\t%s\t%d\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Factors,
			run.NumSamples,
			run.TimeStep,
			run.RandomType,
			run.Seed,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	paths, err := st.LoadPaths(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("name: %s\n", meta.Name)
	fmt.Printf("samples: %d\n\n", meta.NumSamples)

	fmt.Println(viz.PlotPaths(paths.Rates, numPaths, "short rate r(t)"))
	fmt.Println()
	fmt.Println(viz.PlotPaths(paths.Discounts, numPaths, "discount factor D(t)"))
	fmt.Println()

	if paths.Bonds != nil {
		last := len(paths.Times) - 1
		curve := make([]float64, len(paths.CurveTimes))
		for j := range curve {
			curve[j] = paths.Bonds.At(0, j, last)
		}
		fmt.Println(viz.PlotCurve(curve, viz.Caption("bond curve, sample 0", paths.Times[last])))
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	paths, err := st.LoadPaths(runID)
	if err != nil {
		return err
	}

	band := analysis.Summarize(paths.Rates, alpha)
	stderr := analysis.StdErrors(paths.Rates)
	discounts := analysis.ColumnMeans(paths.Discounts)

	fmt.Println(viz.Title.Render("short rate summary"))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tMEAN\tSTDERR\tLOWER\tUPPER\tE[D]")
	for i, t := range paths.Times {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			viz.FormatNumber(t),
			viz.FormatNumber(band.Mean[i]),
			viz.FormatNumber(stderr[i]),
			viz.FormatNumber(band.Lower[i]),
			viz.FormatNumber(band.Upper[i]),
			viz.FormatNumber(discounts[i]),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(viz.PlotBand(band, fmt.Sprintf("mean and %.0f%% band", 100*(1-2*alpha))))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	paths, err := st.LoadPaths(args[0])
	if err != nil {
		return err
	}
	return storage.ExportCSV(os.Stdout, paths)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	paths, err := st.LoadPaths(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, meta, paths)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	paths, err := st.LoadPaths(args[0])
	if err != nil {
		return err
	}

	w := io.Writer(os.Stdout)
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if svgBand {
		band := analysis.Summarize(paths.Rates, alpha)
		return export.BandToSVG(w, paths.Times, band, 800, 400, meta.Name+" short rate band")
	}
	return export.PathsToSVG(w, paths.Times, paths.Rates, svgPaths, 800, 400, meta.Name+" short rate")
}

func viewRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	paths, err := st.LoadPaths(args[0])
	if err != nil {
		return err
	}

	_, err = tea.NewProgram(viz.NewViewer(meta.ID, paths, meta.Metrics), tea.WithAltScreen()).Run()
	return err
}

func listPresets(cmd *cobra.Command, args []string) error {
	reg := experiment.NewRegistry()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tFACTORS\tCURVE\tVOLATILITY\tRANDOM\tSAMPLES\tDT")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%d\t%g\n",
			name, len(p.MeanReversion), p.Curve.Kind, p.Volatility.Kind, p.RandomType, p.NumSamples, p.TimeStep)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("curves: %v\n", reg.ListCurves())
	fmt.Printf("volatilities: %v\n", reg.ListVolatilities())
	fmt.Printf("random types: %v\n", reg.ListRandomTypes())
	return nil
}

func runConverge(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	// bond surfaces are not needed for the mean rate
	cfg.CurveTimes = nil

	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunSweep(ctx, &automation.TimeStepSweep{Base: cfg, TimeSteps: timeSteps}, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}

	reference := "finest step"
	if automation.HasClosedForm(cfg) {
		reference = "hull-white"
	}
	fmt.Printf("reference (%s): %s\n\n", reference, viz.FormatNumber(results[0].Reference))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DT\tSTEPS\tMEAN\tSTDERR\tERROR")
	errs := make([]float64, len(results))
	for i, r := range results {
		errs[i] = r.Error
		fmt.Fprintf(w, "%g\t%d\t%s\t%s\t%s\n", r.TimeStep, r.Steps,
			viz.FormatNumber(r.MeanRate), viz.FormatNumber(r.StdErr), viz.FormatNumber(r.Error))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nerror %s\n", viz.Sparkline(errs))
	return nil
}

func benchRun(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	reg := experiment.NewRegistry()
	quiet := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	fmt.Printf("benchmarking %s: %d samples, dt %g\n\n", cfg.Name, cfg.NumSamples, cfg.TimeStep)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WORKERS\tELAPSED\tPATHS/S")
	for _, n := range benchWorkers {
		run := cfg.Clone()
		run.Workers = n

		exp := experiment.New(run).WithLogger(quiet)
		if err := exp.Setup(reg); err != nil {
			return err
		}
		out, err := exp.Run(ctx)
		if err != nil {
			return err
		}
		rate := float64(run.NumSamples) / out.Elapsed.Seconds()
		fmt.Fprintf(w, "%d\t%v\t%.0f\n", n, out.Elapsed.Round(time.Microsecond), rate)
	}
	return w.Flush()
}

func parseAxis(axis string) (string, []float64, error) {
	name, list, ok := strings.Cut(axis, "=")
	if !ok || name == "" {
		return "", nil, fmt.Errorf("invalid --param %q, want name=v1,v2", axis)
	}
	var values []float64
	for _, field := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return "", nil, fmt.Errorf("invalid --param %q: %w", axis, err)
		}
		values = append(values, v)
	}
	return name, values, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	if len(scanParams) == 0 {
		return fmt.Errorf("at least one --param is required")
	}
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(scanParams))
	ranges := make([][]float64, 0, len(scanParams))
	for _, axis := range scanParams {
		name, values, err := parseAxis(axis)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}

	ctx, cancel := signalContext()
	defer cancel()

	gs := optim.NewGridSearch(names, ranges)
	res, err := gs.Search(ctx, optim.ConfigBuilder(cfg, experiment.NewRegistry()), optim.TargetMetric(scanMetric, scanTarget))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(names, "\t"))+"\t"+strings.ToUpper(scanMetric)+"\tDISTANCE")
	for _, p := range res.Points {
		for _, name := range names {
			fmt.Fprintf(w, "%g\t", p.Params[name])
		}
		if p.Err != nil {
			fmt.Fprintf(w, "error\t%v\n", p.Err)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", viz.FormatNumber(p.Metrics[scanMetric]), viz.FormatNumber(p.Score))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d points, %d failed; closest to %g:", res.Evaluated, res.Failed, scanTarget)
	for _, name := range names {
		fmt.Printf(" %s=%g", name, res.Params[name])
	}
	fmt.Println()
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("scenario: %s\n", sc.Name)
	if sc.Description != "" {
		fmt.Println(sc.Description)
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunScenario(ctx, sc, experiment.NewRegistry(), logger)

	var st *storage.Store
	if !noSave {
		st = storage.New(dataDir)
		if initErr := st.Init(); initErr != nil {
			return initErr
		}
	}
	for i, res := range results {
		line := fmt.Sprintf("[%d] %s: %v", i+1, res.Config.Name, res.Outcome.Elapsed.Round(time.Millisecond))
		if st != nil {
			runID, saveErr := st.Save(res.Config, res.Outcome.Paths, res.Outcome.Metrics)
			if saveErr != nil {
				return saveErr
			}
			line += " -> " + runID
		}
		fmt.Println(line)
	}
	return err
}
