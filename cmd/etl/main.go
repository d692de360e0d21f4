package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"retail-analytics/internal/config"
	apperrors "retail-analytics/internal/errors"
	"retail-analytics/internal/observability"
)

type cliFlags struct {
	dataDir         string
	outDir          string
	unknownProducts string
	skipCharts      bool
	skipReport      bool
	metrics         bool
	trace           bool
}

var flags cliFlags

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retail-etl",
		Short: "Clean retail transactions, compute monthly KPIs, forecast revenue and score customers",
		Long: `retail-etl reads transactions.csv, customers.csv, products.csv and stores.csv
from the data directory and writes:

  clean_transactions.parquet    cleaned transactions with recomputed amounts
  kpis_monthly.csv              orders, revenue, discount and customers per month
  forecast_next_month.csv       next month's revenue forecast
  rfm_scores.csv                recency, frequency and monetary scores per customer
  retail_analysis_outputs.xlsx  all four tables as sheets
  *.png, report.html            charts and a summary page

Outputs are committed together; a failed run leaves the output directory as it was.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runE,
	}

	cmd.Flags().StringVar(&flags.dataDir, "data-dir", "", "Input directory (overrides DATA_DIR)")
	cmd.Flags().StringVar(&flags.outDir, "out-dir", "", "Output directory (overrides OUT_DIR)")
	cmd.Flags().StringVar(&flags.unknownProducts, "unknown-products", "", "Unknown product policy: drop or fail (overrides UNKNOWN_PRODUCT_POLICY)")
	cmd.Flags().BoolVar(&flags.skipCharts, "skip-charts", false, "Do not render charts")
	cmd.Flags().BoolVar(&flags.skipReport, "skip-report", false, "Do not render report.html")
	cmd.Flags().BoolVar(&flags.metrics, "metrics", false, "Write pipeline.prom metrics")
	cmd.Flags().BoolVar(&flags.trace, "trace", false, "Print stage spans to stderr")
	return cmd
}

func runE(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return apperrors.Validation(err.Error())
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return apperrors.Validation(err.Error())
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return apperrors.InternalWrap(err, "build logger")
	}
	defer logger.Sync()

	runID := observability.NewRunID()
	logger = logger.With(zap.String("run_id", runID))
	ctx := observability.WithRunID(cmd.Context(), runID)

	if cfg.Telemetry.TracingEnabled {
		shutdown, err := observability.InitTracer(os.Stderr)
		if err != nil {
			return apperrors.InternalWrap(err, "init tracer")
		}
		defer shutdown(context.Background())
	}

	logger.Info("starting run",
		zap.String("data_dir", cfg.Paths.DataDir),
		zap.String("out_dir", cfg.Paths.OutDir),
		zap.String("unknown_product_policy", cfg.Pipeline.UnknownProductPolicy),
	)

	if _, err := run(ctx, cfg, logger); err != nil {
		apperrors.Log(logger, err, runID)
		return err
	}
	return nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if flags.dataDir != "" {
		cfg.Paths.DataDir = flags.dataDir
	}
	if flags.outDir != "" {
		cfg.Paths.OutDir = flags.outDir
	}
	if flags.unknownProducts != "" {
		cfg.Pipeline.UnknownProductPolicy = flags.unknownProducts
	}
	if flags.skipCharts {
		cfg.Outputs.ChartsEnabled = false
	}
	if flags.skipReport {
		cfg.Outputs.ReportEnabled = false
	}
	if cmd.Flags().Changed("metrics") {
		cfg.Telemetry.MetricsEnabled = flags.metrics
	}
	if cmd.Flags().Changed("trace") {
		cfg.Telemetry.TracingEnabled = flags.trace
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "retail-etl:", err)
	}
	stop()
	os.Exit(apperrors.ExitCode(err))
}
