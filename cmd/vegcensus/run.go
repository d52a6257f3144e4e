package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vegcensus/internal/blob"
	"vegcensus/internal/config"
	"vegcensus/internal/export"
	"vegcensus/internal/infra/persistence"
	"vegcensus/internal/metrics"
	"vegcensus/internal/pipeline"
	"vegcensus/internal/source"
)

var metricsAddr string

var runCmd = &cobra.Command{
	Use:   "run [site...]",
	Short: "Process sites and export their biomass tables",
	Long: `run loads each site's survey snapshot, executes the reconstruction
pipeline, writes the output tables under the output directory, stores them
as run artifacts, and records the results in the result store. Sites given
as arguments override the configured site list.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		applyRunFlags(cmd, &cfg)

		sites := args
		if len(sites) == 0 {
			sites = cfg.Sites
		}
		if len(sites) == 0 {
			return errors.New("no sites: pass site codes as arguments or set sites in the config")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		recorder := metrics.New()
		recorder.PublishExpvar("vegcensus_metrics")
		if metricsAddr != "" {
			serveMetrics(metricsAddr, recorder, log)
		}

		store, err := openBlob(ctx, cfg.Blob)
		if err != nil {
			return fmt.Errorf("open artifact store: %w", err)
		}
		results, err := persistence.Open(persistence.Driver(cfg.Storage.Driver),
			cfg.Storage.SQLitePath, cfg.Storage.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open result store: %w", err)
		}
		defer func() { _ = results.Close() }()

		runner := pipeline.Runner{
			Loader: source.Loader{
				DataDir:         cfg.DataDir,
				MassDir:         cfg.MassDir,
				PlotPolygonPath: cfg.PlotPolygons,
				Logger:          log,
			},
			Config: pipeline.Config{
				GrowthThreshold:     cfg.GrowthThreshold,
				ShrinkThreshold:     cfg.ShrinkThreshold,
				SkipGapFilling:      cfg.SkipGapFilling,
				SkipDeadCorrections: cfg.SkipDeadCorrections,
				Logger:              log,
				Metrics:             recorder,
			},
			Workers: cfg.Workers,
		}

		started := time.Now()
		batch, err := runner.Run(ctx, sites)
		if err != nil {
			return err
		}

		dirWriter := export.DirWriter{Root: cfg.OutputDir, Format: export.Format(cfg.OutputFormat), Logger: log}
		artifacts := export.ArtifactWriter{Store: store, Format: export.Format(cfg.OutputFormat), Logger: log}
		for _, res := range batch.Results {
			if _, err := dirWriter.WriteSite(res); err != nil {
				return fmt.Errorf("site %s: %w", res.SiteID, err)
			}
			if _, err := artifacts.WriteSite(ctx, res); err != nil {
				return fmt.Errorf("site %s: %w", res.SiteID, err)
			}
			if err := results.SaveResult(ctx, res); err != nil {
				return fmt.Errorf("site %s: %w", res.SiteID, err)
			}
		}

		for _, outcome := range batch.Ledger {
			if outcome.Err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tFAILED\t%s\n", outcome.SiteID, outcome.Error)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tok\tplots=%d plot_years=%d unaccounted=%d filled_outliers=%d\n",
				outcome.SiteID, outcome.Stats.Plots, outcome.Stats.PlotYears,
				outcome.Stats.Unaccounted, outcome.Stats.OutliersFlagged)
		}
		log.Info("batch finished",
			zap.Int("sites", len(sites)),
			zap.Int("succeeded", len(batch.Results)),
			zap.Duration("elapsed", time.Since(started)))

		if failed := batch.Failed(); len(failed) > 0 {
			return fmt.Errorf("%d of %d sites failed: %s", len(failed), len(sites), strings.Join(failed, ", "))
		}
		return nil
	},
}

func init() {
	runCmd.Flags().String("data-dir", "", "site snapshot directory")
	runCmd.Flags().String("mass-dir", "", "mass estimate directory")
	runCmd.Flags().String("plot-polygons", "", "plot polygon GeoJSON path")
	runCmd.Flags().String("output-dir", "", "table output directory")
	runCmd.Flags().String("format", "", "output format: csv|json")
	runCmd.Flags().Int("workers", 0, "concurrent sites")
	runCmd.Flags().Float64("growth-threshold", 0, "diameter spike growth threshold, cm/yr")
	runCmd.Flags().Float64("shrink-threshold", 0, "diameter spike shrink threshold, cm/yr")
	runCmd.Flags().Bool("skip-gap-filling", false, "disable year grid expansion and trend fill")
	runCmd.Flags().Bool("skip-dead-corrections", false, "disable status reconciliation and dead zeroing")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")
	rootCmd.AddCommand(runCmd)
}

// applyRunFlags overlays explicitly set command flags on the loaded config.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("mass-dir") {
		cfg.MassDir, _ = flags.GetString("mass-dir")
	}
	if flags.Changed("plot-polygons") {
		cfg.PlotPolygons, _ = flags.GetString("plot-polygons")
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir, _ = flags.GetString("output-dir")
	}
	if flags.Changed("format") {
		cfg.OutputFormat, _ = flags.GetString("format")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("growth-threshold") {
		cfg.GrowthThreshold, _ = flags.GetFloat64("growth-threshold")
	}
	if flags.Changed("shrink-threshold") {
		cfg.ShrinkThreshold, _ = flags.GetFloat64("shrink-threshold")
	}
	if flags.Changed("skip-gap-filling") {
		cfg.SkipGapFilling, _ = flags.GetBool("skip-gap-filling")
	}
	if flags.Changed("skip-dead-corrections") {
		cfg.SkipDeadCorrections, _ = flags.GetBool("skip-dead-corrections")
	}
}

func openBlob(ctx context.Context, cfg config.BlobConfig) (blob.Store, error) {
	switch blob.Driver(cfg.Driver) {
	case blob.DriverFilesystem, "":
		return blob.NewFilesystem(cfg.FSRoot)
	case blob.DriverS3:
		return blob.OpenS3FromEnv(ctx)
	case blob.DriverMemory:
		return blob.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}

func serveMetrics(addr string, recorder *metrics.Recorder, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(recorder.Registry(), promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))
}
