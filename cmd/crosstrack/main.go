package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/crosstrack/internal/analysis"
	"github.com/san-kum/crosstrack/internal/automation"
	"github.com/san-kum/crosstrack/internal/config"
	"github.com/san-kum/crosstrack/internal/dynamo"
	"github.com/san-kum/crosstrack/internal/export"
	"github.com/san-kum/crosstrack/internal/logging"
	"github.com/san-kum/crosstrack/internal/metrics"
	"github.com/san-kum/crosstrack/internal/optim"
	"github.com/san-kum/crosstrack/internal/storage"
	"github.com/san-kum/crosstrack/internal/viz"
)

const (
	settleBand   = 1.0
	divergeBound = 500.0
)

var (
	dataDir    string
	logLevel   string
	logFormat  string
	configFile string
	preset     string
	dt         float64
	duration   float64
	seed       int64
	kp         float64
	ki         float64
	kd         float64
	noise      bool
	scale      bool
	targetKind string
	targetX    float64
	targetY    float64
	output     string
	axisName   string
	metricName string
	kpRange    string
	kiRange    string
	kdRange    string
	sweepParam string
	sweepFrom  float64
	sweepTo    float64
	sweepSteps int
	saveConfig string
	svgWidth   int
	svgHeight  int
	braille    bool
	noSave     bool
	mcTrials   int
	mcPerturb  float64
	mcBound    float64
)

var log = zap.NewNop()

func main() {
	rootCmd := &cobra.Command{
		Use:   "crosstrack",
		Short: "four-sensor cross tracking a point with two PID loops",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(logLevel, logFormat)
			if err != nil {
				return err
			}
			logging.SetDefault(l)
			log = l
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".crosstrack", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console, json)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a headless simulation and store it",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run trace as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and trace as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "draw the array and target paths of a run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "image width (braille: canvas columns)")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 600, "image height (braille: canvas rows)")
	exportSVGCmd.Flags().BoolVar(&braille, "braille", false, "render through the terminal braille canvas")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "look for sustained oscillation in a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	phaseCmd := &cobra.Command{
		Use:   "phase",
		Short: "plot one axis error against its derivative",
		Args:  cobra.NoArgs,
		RunE:  phasePlot,
	}
	addConfigFlags(phaseCmd)
	phaseCmd.Flags().StringVar(&axisName, "axis", "y", "axis to plot (x or y)")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "interactive tracking in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search PID gains",
		Args:  cobra.NoArgs,
		RunE:  tuneGains,
	}
	addConfigFlags(tuneCmd)
	tuneCmd.Flags().StringVar(&kpRange, "kp-range", "0.25:2:8", "kp values as lo:hi:n")
	tuneCmd.Flags().StringVar(&kiRange, "ki-range", "0", "ki values as lo:hi:n or a single value")
	tuneCmd.Flags().StringVar(&kdRange, "kd-range", "0.25:2:8", "kd values as lo:hi:n")
	tuneCmd.Flags().StringVar(&metricName, "metric", "tracking_error", "metric to minimise")
	tuneCmd.Flags().StringVar(&saveConfig, "save", "", "write the best configuration to this yaml file")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "oscillation amplitude across one gain",
		Args:  cobra.NoArgs,
		RunE:  sweepGain,
	}
	addConfigFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "kp", "gain to sweep (kp, ki, kd)")
	sweepCmd.Flags().Float64Var(&sweepFrom, "from", 0.1, "first value")
	sweepCmd.Flags().Float64Var(&sweepTo, "to", 2.0, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 20, "number of values")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run every step of a yaml scenario and store the runs",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&noSave, "no-save", false, "print results without storing runs")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "repeat a run from perturbed start positions with fresh noise seeds",
		Args:  cobra.NoArgs,
		RunE:  runMonteCarlo,
	}
	addConfigFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&mcTrials, "trials", 50, "number of trials")
	monteCarloCmd.Flags().Float64Var(&mcPerturb, "perturb", 50, "start offset range on each axis")
	monteCarloCmd.Flags().Float64Var(&mcBound, "bound", 5, "final distance still counted as tracking")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PRESET\tGAINS\tNOISE\tSCALE\tTARGET")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%s\t%v\t%v\t%s\n", name, cfg.Controller.X, cfg.Noise.Enabled, cfg.Scale.Enabled, cfg.Target.Kind)
			}
			return w.Flush()
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd,
		analyzeCmd, phaseCmd, liveCmd, tuneCmd, sweepCmd, scenarioCmd, monteCarloCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "reference", "preset configuration")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().Int64Var(&seed, "seed", 1, "noise seed")
	cmd.Flags().Float64Var(&kp, "kp", config.DefaultKp, "proportional gain, both axes")
	cmd.Flags().Float64Var(&ki, "ki", config.DefaultKi, "integral gain, both axes")
	cmd.Flags().Float64Var(&kd, "kd", config.DefaultKd, "derivative gain, both axes")
	cmd.Flags().BoolVar(&noise, "noise", false, "add sensor noise")
	cmd.Flags().BoolVar(&scale, "scale", false, "scale velocity by signal strength")
	cmd.Flags().StringVar(&targetKind, "target", "static", "target trajectory (static, step, circle, lissajous, waypoints)")
	cmd.Flags().Float64Var(&targetX, "target-x", 640, "target x (center for moving targets)")
	cmd.Flags().Float64Var(&targetY, "target-y", 460, "target y (center for moving targets)")
}

// buildConfig starts from the preset, or the config file when given, and
// applies only the flags the user set.
func buildConfig(cmd *cobra.Command) (*config.Config, string, error) {
	name := preset
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if !cmd.Flags().Changed("preset") {
			name = "custom"
		}
	}

	f := cmd.Flags()
	if f.Changed("dt") {
		cfg.Run.Dt = dt
	}
	if f.Changed("time") {
		cfg.Run.Duration = duration
	}
	if f.Changed("seed") {
		cfg.Noise.Seed = seed
	}
	if f.Changed("kp") || f.Changed("ki") || f.Changed("kd") {
		g := cfg.Controller.X
		if f.Changed("kp") {
			g.P = kp
		}
		if f.Changed("ki") {
			g.I = ki
		}
		if f.Changed("kd") {
			g.D = kd
		}
		cfg.SetGains(g)
	}
	if f.Changed("noise") {
		cfg.Noise.Enabled = noise
	}
	if f.Changed("scale") {
		cfg.Scale.Enabled = scale
	}
	if f.Changed("target") {
		cfg.Target.Kind = targetKind
	}
	if f.Changed("target-x") || f.Changed("target-y") {
		c := cfg.Target.Center
		if f.Changed("target-x") {
			c.X = targetX
		}
		if f.Changed("target-y") {
			c.Y = targetY
		}
		cfg.Target.Center = c
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, name, nil
}

func newSimulator(cfg *config.Config) (*dynamo.Simulator, error) {
	loop, err := dynamo.NewLoop(cfg.LoopConfig())
	if err != nil {
		return nil, err
	}
	loop.SetLogger(log.Named("loop"))
	return dynamo.NewSimulator(loop), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, name, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	sim, err := newSimulator(cfg)
	if err != nil {
		return err
	}
	for _, m := range metrics.Standard(settleBand, divergeBound) {
		sim.AddMetric(m)
	}
	traj, err := cfg.Trajectory()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	log.Info("run started", zap.String("preset", name), zap.Stringer("gains", cfg.Controller.X),
		zap.Float64("dt", cfg.Run.Dt), zap.Float64("duration", cfg.Run.Duration))
	start := time.Now()

	result, err := sim.Run(ctx, traj, cfg.RunSettings(true))
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	for _, e := range result.Errors {
		log.Warn("run stopped early", zap.Error(e))
	}

	runID, err := st.Save(name, cfg, result)
	if err != nil {
		return err
	}
	log.Info("run stored", zap.String("id", runID), zap.Duration("elapsed", elapsed))

	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Printf("final position: %s\n", result.Final.Position)
	fmt.Println("\nmetrics:")
	printMetrics(os.Stdout, result.Metrics)

	return nil
}

func printMetrics(w io.Writer, m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %.6f\n", name, m[name])
	}
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
	fmt.Fprintln(w, "ID\tPRESET\tTIME\tDURATION\tDT\tGAINS\tRMS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%.3f\n",
			run.ID,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.GainsX,
			run.Metrics["tracking_error"],
		)
	}

	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, []dynamo.Snapshot, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	snaps, err := st.LoadTrace(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(snaps) < 2 {
		return nil, nil, fmt.Errorf("no data to plot")
	}
	return meta, snaps, nil
}

func column(snaps []dynamo.Snapshot, f func(dynamo.Snapshot) float64) []float64 {
	out := make([]float64, 0, len(snaps))
	for _, s := range snaps[1:] {
		out = append(out, f(s))
	}
	return out
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, snaps, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("preset: %s\n", meta.Preset)
	fmt.Printf("samples: %d\n\n", len(snaps))

	plots := []struct {
		caption string
		f       func(dynamo.Snapshot) float64
	}{
		{"distance to target", dynamo.Snapshot.Distance},
		{"error x", func(s dynamo.Snapshot) float64 { return s.ErrorX }},
		{"error y", func(s dynamo.Snapshot) float64 { return s.ErrorY }},
		{"velocity", func(s dynamo.Snapshot) float64 { return s.Velocity.Len() }},
	}

	for _, p := range plots {
		graph := asciigraph.Plot(column(snaps, p.f),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(p.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	return writeJSON(os.Stdout, meta)
}

func outputWriter() (io.WriteCloser, error) {
	if output == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(output)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func exportCSV(cmd *cobra.Command, args []string) error {
	w, err := outputWriter()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := storage.New(dataDir).ExportCSV(w, args[0]); err != nil {
		return err
	}
	if output != "" {
		fmt.Printf("exported %s to %s\n", args[0], output)
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	w, err := outputWriter()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := storage.New(dataDir).ExportJSON(w, args[0]); err != nil {
		return err
	}
	if output != "" {
		fmt.Printf("exported %s to %s\n", args[0], output)
	}
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	meta, snaps, err := loadRun(args[0])
	if err != nil {
		return err
	}

	var svg string
	if braille {
		canvas, err := export.RunToCanvas(snaps, svgWidth, svgHeight)
		if err != nil {
			return err
		}
		svg = export.CanvasToSVG(canvas, 4)
	} else {
		svg, err = export.RunToSVG(snaps, meta.Offset, svgWidth, svgHeight)
		if err != nil {
			return err
		}
	}

	w, err := outputWriter()
	if err != nil {
		return err
	}
	defer w.Close()

	if _, err := io.WriteString(w, svg); err != nil {
		return err
	}
	if output != "" {
		fmt.Printf("exported %s to %s\n", meta.ID, output)
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, snaps, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s (%s, gains %s)\n\n", meta.ID, meta.Preset, meta.GainsX)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AXIS\tFREQ (Hz)\tAMPLITUDE\tGROWTH (1/s)\tVERDICT")
	series := map[string][]float64{
		"x": column(snaps, func(s dynamo.Snapshot) float64 { return s.ErrorX }),
		"y": column(snaps, func(s dynamo.Snapshot) float64 { return s.ErrorY }),
	}
	for _, axis := range []string{"x", "y"} {
		freq, amp := analysis.DominantFrequency(series[axis], meta.Dt)
		growth := analysis.GrowthRate(series[axis], meta.Dt)
		fmt.Fprintf(w, "%s\t%.3f\t%.3f\t%+.3f\t%s\n", axis, freq, amp, growth, verdict(amp, growth))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	ps := analysis.PowerSpectrum(series["y"])
	if len(ps) > 100 {
		ps = ps[:100]
	}
	fmt.Println()
	fmt.Println(asciigraph.Plot(ps,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption("power spectrum (error y)")))
	return nil
}

func verdict(amp, growth float64) string {
	switch {
	case growth > 0.05:
		return "growing oscillation"
	case amp > 1 && growth > -0.05:
		return "sustained oscillation"
	default:
		return "settling"
	}
}

func parseAxis(name string) (dynamo.Axis, error) {
	switch strings.ToLower(name) {
	case "x":
		return dynamo.AxisX, nil
	case "y":
		return dynamo.AxisY, nil
	default:
		return 0, fmt.Errorf("unknown axis %q (x or y)", name)
	}
}

func phasePlot(cmd *cobra.Command, args []string) error {
	axis, err := parseAxis(axisName)
	if err != nil {
		return err
	}
	cfg, _, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	sim, err := newSimulator(cfg)
	if err != nil {
		return err
	}
	traj, err := cfg.Trajectory()
	if err != nil {
		return err
	}

	result, err := sim.Run(context.Background(), traj, cfg.RunSettings(true))
	if err != nil {
		return err
	}

	fmt.Printf("error %s vs derivative (gains %s)\n\n", axis, cfg.Controller.X)
	fmt.Print(analysis.PhasePortraitToASCII(analysis.ErrorPortrait(result.Snapshots, axis), 80, 24))
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, _, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	loop, err := dynamo.NewLoop(cfg.LoopConfig())
	if err != nil {
		return err
	}
	// stderr output would corrupt the alt screen
	return viz.Run(loop, cfg.Run.Dt, zap.NewNop())
}

// parseRange reads "lo:hi:n" or a single value.
func parseRange(s string) ([]float64, error) {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		v, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("range %q: %w", s, err)
		}
		return []float64{v}, nil
	case 3:
		lo, err1 := strconv.ParseFloat(parts[0], 64)
		hi, err2 := strconv.ParseFloat(parts[1], 64)
		n, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil || n < 1 {
			return nil, fmt.Errorf("range %q: want lo:hi:n", s)
		}
		return optim.Linspace(lo, hi, n), nil
	default:
		return nil, fmt.Errorf("range %q: want lo:hi:n or a single value", s)
	}
}

func tuneGains(cmd *cobra.Command, args []string) error {
	cfg, _, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if _, ok := metrics.ByName(metricName, settleBand, divergeBound); !ok {
		return fmt.Errorf("unknown metric: %s", metricName)
	}

	names := []string{"kp", "ki", "kd"}
	var ranges [][]float64
	for _, r := range []string{kpRange, kiRange, kdRange} {
		vals, err := parseRange(r)
		if err != nil {
			return err
		}
		ranges = append(ranges, vals)
	}

	traj, err := cfg.Trajectory()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	g := optim.NewGridSearch(names, ranges)
	total := len(ranges[0]) * len(ranges[1]) * len(ranges[2])
	log.Info("tuning", zap.Int("candidates", total), zap.String("metric", metricName))
	start := time.Now()

	res, err := g.Search(ctx, cfg.LoopConfig(), traj, cfg.RunSettings(false), metricName, func() []dynamo.Metric {
		m, _ := metrics.ByName(metricName, settleBand, divergeBound)
		return []dynamo.Metric{m}
	})
	if err != nil {
		return err
	}
	log.Info("tuning done", zap.Duration("elapsed", time.Since(start)))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RANK\tKP\tKI\tKD\t%s\n", strings.ToUpper(metricName))
	for i, c := range res.Top(10) {
		fmt.Fprintf(w, "%d\t%.3f\t%.3f\t%.3f\t%.6f\n", i+1, c.Gains.P, c.Gains.I, c.Gains.D, c.Score)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if saveConfig != "" {
		cfg.SetGains(res.Best.Gains)
		if err := config.Save(saveConfig, cfg); err != nil {
			return err
		}
		fmt.Printf("\nbest gains written to %s\n", saveConfig)
	}
	return nil
}

func sweepGain(cmd *cobra.Command, args []string) error {
	cfg, _, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	traj, err := cfg.Trajectory()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	points, err := analysis.GainSweep(ctx, cfg.LoopConfig(), traj, cfg.RunSettings(true), sweepParam, sweepFrom, sweepTo, sweepSteps)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tAMPLITUDE\tGROWTH\n", strings.ToUpper(sweepParam))
	for _, p := range points {
		if p.Diverged {
			fmt.Fprintf(w, "%.3f\tdiverged\t-\n", p.Param)
			continue
		}
		fmt.Fprintf(w, "%.3f\t%.3f\t%+.3f\n", p.Param, p.Amplitude, p.Growth)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Print(analysis.SweepToASCII(points, 60, 12))
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunScenario(ctx, sc, func() []dynamo.Metric {
		return metrics.Standard(settleBand, divergeBound)
	}, log.Named("scenario"))
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if !noSave {
		if err := st.Init(); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tLABEL\tGAINS\tRMS\tSETTLING\tRUN")
	for i, r := range results {
		id := "-"
		if !noSave {
			id, err = st.Save(r.Step.Label(), r.Config, r.Result)
			if err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%.3f\t%.2fs\t%s\n", i+1, r.Step.Label(), r.Config.Controller.X,
			r.Result.Metrics["tracking_error"], r.Result.Metrics["settling_time"], id)
	}
	return w.Flush()
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, _, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	log.Info("monte carlo", zap.Int("trials", mcTrials), zap.Float64("perturb", mcPerturb))
	results, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Base:         cfg,
		Perturbation: mcPerturb,
		NumTrials:    mcTrials,
		StableBound:  mcBound,
		Seed:         cfg.Noise.Seed,
	})
	if err != nil {
		return err
	}

	stable, unstable := automation.MonteCarloStats(results)
	worst := results[0]
	for _, r := range results[1:] {
		if !(r.Distance <= worst.Distance) {
			worst = r
		}
	}

	fmt.Printf("trials: %d\n", len(results))
	fmt.Printf("tracking: %d (%.1f%%)\n", stable, 100*float64(stable)/float64(len(results)))
	fmt.Printf("lost: %d\n", unstable)
	fmt.Printf("worst: trial %d from %s, final distance %.3f\n", worst.TrialID, worst.Start, worst.Distance)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
