package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/san-kum/powerchain/internal/automation"
	"github.com/san-kum/powerchain/internal/config"
	"github.com/san-kum/powerchain/internal/export"
	"github.com/san-kum/powerchain/internal/logging"
	"github.com/san-kum/powerchain/internal/metrics"
	"github.com/san-kum/powerchain/internal/powerchain"
	"github.com/san-kum/powerchain/internal/server"
	"github.com/san-kum/powerchain/internal/sim"
	"github.com/san-kum/powerchain/internal/storage"
	"github.com/san-kum/powerchain/internal/viz"
)

var (
	dataDir  string
	logLevel string
	logger   *slog.Logger

	dt         float64
	duration   float64
	configFile string
	preset     string
	jsonOut    string
	noSave     bool

	redisAddr   string
	redisPrefix string
	redisEvery  int

	plotPart string
	addr     string
	svgOut   string

	sweepMotor string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "powerchain",
		Short: "gear train propagation simulator",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logger = logging.New(level)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive(logger)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".powerchain", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug|info|warn|error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "simulate a network and store the run",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	networkFlags(runCmd)
	runCmd.Flags().StringVar(&jsonOut, "json", "", "also write the run as JSON to this file")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	redisFlags(runCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot part speeds of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotPart, "part", "", "plot only this part")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run speeds to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "chart run speeds as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVar(&plotPart, "part", "", "chart only this part")
	exportSVGCmd.Flags().StringVarP(&svgOut, "out", "o", "-", "output file")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "simulate a network and draw its final state as SVG",
		Args:  cobra.NoArgs,
		RunE:  snapshot,
	}
	networkFlags(snapshotCmd)
	snapshotCmd.Flags().StringVarP(&svgOut, "out", "o", "-", "output file")

	liveCmd := &cobra.Command{
		Use:   "live [scenario.yaml]",
		Short: "run a network with live visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	networkFlags(liveCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve a ticking network over HTTP",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	networkFlags(serveCmd)
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in networks",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	validateCmd := &cobra.Command{
		Use:   "validate [config.yaml]",
		Short: "check a network file",
		Args:  cobra.ExactArgs(1),
		RunE:  validateConfig,
	}

	scenarioCmd := &cobra.Command{
		Use:   "scenario [scenario.yaml]",
		Short: "run a scripted wiring scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	redisFlags(scenarioCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run a network across a range of motor speeds",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	networkFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepMotor, "motor", "motor", "motor to sweep")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 10, "lowest speed (rpm)")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 120, "highest speed (rpm)")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of speeds")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark tick throughput",
		Args:  cobra.NoArgs,
		RunE:  benchNetwork,
	}
	networkFlags(benchCmd)

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd, snapshotCmd, liveCmd, serveCmd, presetsCmd, validateCmd, scenarioCmd, sweepCmd, benchCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func networkFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "network file (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "reduction", "built-in network")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep (s)")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration (s)")
}

func redisFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&redisAddr, "redis", "", "publish live state to this redis address")
	cmd.Flags().StringVar(&redisPrefix, "redis-prefix", "powerchain", "redis key prefix")
	cmd.Flags().IntVar(&redisEvery, "redis-every", 1, "publish every n-th tick")
}

// loadNetwork resolves --config or --preset. --dt and --time override the
// file only when set explicitly.
func loadNetwork(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	} else {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func redisObserver(ctx context.Context, run string) (*storage.RedisPublisher, func(), error) {
	if redisAddr == "" {
		return nil, func() {}, nil
	}
	client := backend.NewClient(&backend.Options{Addr: redisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis %s: %w", redisAddr, err)
	}
	pub := storage.NewRedisPublisher(client, run,
		storage.WithKeyPrefix(redisPrefix),
		storage.WithEvery(redisEvery),
		storage.WithContext(ctx),
	)
	return pub, func() { _ = client.Close() }, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadNetwork(cmd)
	if err != nil {
		return err
	}

	net, err := cfg.Build(powerchain.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	s := sim.New(net, nil)
	s.AddMetric(metrics.NewPeakRPM(""))
	s.AddMetric(metrics.NewDisabledParts())
	for _, n := range net.Nodes() {
		if !n.IsMotor() && len(n.Outputs()) == 0 {
			s.AddMetric(metrics.NewRevolutions(n.Name()))
		}
	}

	pub, closeRedis, err := redisObserver(ctx, cfg.Name)
	if err != nil {
		return err
	}
	defer closeRedis()
	if pub != nil {
		s.AddObserver(pub)
	}

	simCfg := sim.Config{Dt: cfg.Dt, Duration: cfg.Duration}
	fmt.Printf("running %s...\n", cfg.Name)
	start := time.Now()

	result, err := s.Run(ctx, simCfg)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if pub != nil && pub.Err() != nil {
		logger.Warn("redis publishing stopped", "err", pub.Err())
	}

	if jsonOut != "" {
		if err := storage.ExportJSONFile(jsonOut, cfg.Name, "none", simCfg, result); err != nil {
			return err
		}
	}

	fmt.Printf("completed in %v\n", elapsed)
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(cfg.Name, simCfg, "none", result)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}
	printSummary(result)
	return nil
}

func printSummary(result *sim.Result) {
	fmt.Printf("steps: %d  passes: %d  conflicts: %d\n\n", result.StepsTaken, result.Stats.Passes, result.Stats.Conflicts)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PART\tRPM\tSTATUS")
	last := result.Samples[len(result.Samples)-1]
	for i, p := range result.Parts {
		status := "enabled"
		if !last.Enabled[i] {
			status = "disabled"
		}
		fmt.Fprintf(w, "%s\t%.3f\t%s\n", p, last.RPM[i], status)
	}
	_ = w.Flush()

	if len(result.Metrics) > 0 {
		fmt.Println("\nmetrics:")
		for name, val := range result.Metrics {
			fmt.Printf("  %s: %.6f\n", name, val)
		}
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
	fmt.Fprintln(w, "ID\tNETWORK\tTIME\tDURATION\tDT\tPARTS\tDISABLED\tCTRL")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%d\t%s\n",
			run.ID,
			run.Network,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			len(run.Parts),
			len(run.Disabled),
			run.Controller,
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

	series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}
	if len(series.RPM) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("network: %s\n", meta.Network)
	fmt.Printf("samples: %d\n\n", len(series.Times))

	parts := series.Parts
	if plotPart != "" {
		parts = []string{plotPart}
	}
	const maxPlots = 6
	if len(parts) > maxPlots {
		parts = parts[:maxPlots]
	}

	for _, p := range parts {
		data := series.Column(p)
		if data == nil {
			return fmt.Errorf("no part %q in run %s", p, runID)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(p+" (rpm)"),
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

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	series, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}
	if len(series.RPM) == 0 {
		return fmt.Errorf("no data to export")
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	if err := w.Write(append([]string{"time"}, series.Parts...)); err != nil {
		return err
	}
	for i, row := range series.RPM {
		rec := []string{strconv.FormatFloat(series.Times[i], 'f', 6, 64)}
		for _, v := range row {
			rec = append(rec, strconv.FormatFloat(v, 'f', 6, 64))
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}

	cfg := sim.Config{Dt: meta.Dt, Duration: meta.Duration}
	return storage.ExportJSON(os.Stdout, meta.Network, meta.Controller, cfg, series.Result(meta))
}

func exportSVG(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	series, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}

	var parts []string
	if plotPart != "" {
		parts = []string{plotPart}
	}
	return export.WriteFile(svgOut, export.SeriesToSVG(series, parts, 800, 300))
}

func snapshot(cmd *cobra.Command, args []string) error {
	cfg, err := loadNetwork(cmd)
	if err != nil {
		return err
	}
	net, err := cfg.Build(powerchain.WithLogger(logger))
	if err != nil {
		return err
	}
	if _, err := sim.New(net, nil).Run(context.Background(), sim.Config{Dt: cfg.Dt, Duration: cfg.Duration}); err != nil {
		return err
	}
	return export.WriteFile(svgOut, export.NetworkToSVG(net, 60, 20, 4))
}

func runLive(cmd *cobra.Command, args []string) error {
	var (
		cfg  *config.Config
		opts []viz.ModelOption
		err  error
	)
	if len(args) == 1 {
		scenario, err := automation.LoadScenario(args[0])
		if err != nil {
			return err
		}
		if cfg, err = scenario.Config(); err != nil {
			return err
		}
		opts = append(opts, viz.WithController(automation.NewScript(scenario.Events, logger)))
	} else if cfg, err = loadNetwork(cmd); err != nil {
		return err
	}

	net, err := cfg.Build(powerchain.WithLogger(logger))
	if err != nil {
		return err
	}
	return viz.RunLive(viz.NewModel(net, cfg.Name, cfg.Dt, opts...))
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := loadNetwork(cmd)
	if err != nil {
		return err
	}
	net, err := cfg.Build(powerchain.WithLogger(logger))
	if err != nil {
		return err
	}
	srv, err := server.New(net, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("serving %s on %s\n", cfg.Name, addr)
	if err := srv.ListenAndServe(ctx, addr, cfg.Dt); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPARTS\tMOTORS\tDURATION")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		motors := 0
		for _, p := range cfg.Parts {
			if p.Motor != nil {
				motors++
			}
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%.1fs\n", name, len(cfg.Parts), motors, cfg.Duration)
	}
	return w.Flush()
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Println("  " + line)
		}
		return fmt.Errorf("%s is invalid", args[0])
	}
	fmt.Printf("%s: %d parts, %d steps, ok\n", cfg.Name, len(cfg.Parts), cfg.Steps())
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	var observers []sim.Observer
	pub, closeRedis, err := redisObserver(ctx, scenario.Name)
	if err != nil {
		return err
	}
	defer closeRedis()
	if pub != nil {
		observers = append(observers, pub)
	}

	fmt.Printf("running scenario %s (%d events)...\n", scenario.Name, len(scenario.Events))
	result, err := automation.RunScenario(ctx, scenario, logger, observers...)
	if err != nil {
		return err
	}

	if !noSave {
		cfg, _ := scenario.Config()
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(scenario.Name, sim.Config{Dt: cfg.Dt, Duration: cfg.Duration}, "scenario", result)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}
	printSummary(result)
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadNetwork(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunSweep(ctx, &automation.SpeedSweep{
		Config:   cfg,
		Motor:    sweepMotor,
		MinRPM:   sweepMin,
		MaxRPM:   sweepMax,
		NumSteps: sweepSteps,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := []string{"RPM"}
	for _, p := range cfg.Parts {
		header = append(header, strings.ToUpper(p.Name))
	}
	fmt.Fprintln(w, strings.Join(append(header, "DISABLED"), "\t"))
	for _, r := range results {
		row := []string{fmt.Sprintf("%.1f", r.RPM)}
		for _, p := range cfg.Parts {
			row = append(row, fmt.Sprintf("%.2f", r.Final[p.Name]))
		}
		row = append(row, strconv.Itoa(len(r.Disabled)))
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

func benchNetwork(cmd *cobra.Command, args []string) error {
	cfg, err := loadNetwork(cmd)
	if err != nil {
		return err
	}

	durations := []float64{1.0, 5.0, 10.0}
	dts := []float64{0.001, 0.01, 1.0 / 60}

	fmt.Printf("benchmarking %s\n\n", cfg.Name)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DURATION\tDT\tSTEPS\tPASSES\tTIME\tSTEPS/SEC")

	for _, dur := range durations {
		for _, step := range dts {
			net, err := cfg.Build()
			if err != nil {
				return err
			}

			start := time.Now()
			result, err := sim.New(net, nil).Run(context.Background(), sim.Config{Dt: step, Duration: dur})
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			fmt.Fprintf(w, "%.1fs\t%.4fs\t%d\t%d\t%v\t%.0f\n",
				dur, step, result.StepsTaken, result.Stats.Passes, elapsed, float64(result.StepsTaken)/elapsed.Seconds())
		}
	}

	return w.Flush()
}
