package main

import (
	"context"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"retail-analytics/internal/charts"
	"retail-analytics/internal/config"
	"retail-analytics/internal/export"
	"retail-analytics/internal/loader"
	"retail-analytics/internal/models"
	"retail-analytics/internal/observability"
	"retail-analytics/internal/services"
	"retail-analytics/internal/ui/templates"
)

const metricsFile = "pipeline.prom"

// run executes load, compute and export once and returns the committed
// output paths.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) ([]string, error) {
	metrics := observability.NewMetrics()

	start := time.Now()
	loadCtx, span := observability.StartSpan(ctx, "load")
	ds, err := loader.New(cfg.Paths.DataDir, logger).Load(loadCtx)
	observability.FinishSpan(span, err)
	if err != nil {
		return nil, err
	}
	metrics.ObserveStage("load", start)

	analytics := services.NewAnalytics(services.Options{
		UnknownProductPolicy: cfg.Pipeline.UnknownProductPolicy,
		RegressionEnabled:    cfg.Pipeline.RegressionEnabled,
	}, metrics, logger)

	res, err := analytics.Process(ctx, ds)
	if err != nil {
		return nil, err
	}

	files, err := export.NewExporter(cfg.Paths.OutDir, logger).Export(ctx, res, presentationSteps(cfg, res, metrics)...)
	if err != nil {
		return nil, err
	}

	logger.Info("run complete",
		zap.Int("files", len(files)),
		zap.Duration("duration", time.Since(start)),
		zap.Any("stats", services.Stats(res)),
	)
	return files, nil
}

func presentationSteps(cfg *config.Config, res *models.Results, metrics *observability.Metrics) []export.Step {
	var steps []export.Step
	var links []templates.ChartLink

	if cfg.Outputs.ChartsEnabled {
		steps = append(steps, export.Step{Name: "charts", Write: func(ctx context.Context, dir string) error {
			return charts.RenderAll(ctx, dir, res)
		}})
		links = []templates.ChartLink{
			{Title: "Monthly revenue with forecast", File: charts.RevenueTrendFile},
			{Title: "Top 5 customers by monetary value", File: charts.TopCustomersFile},
			{Title: "Customer segmentation (RFM)", File: charts.RFMScatterFile},
		}
	}

	if cfg.Outputs.ReportEnabled {
		steps = append(steps, export.Step{Name: "report", Write: func(ctx context.Context, dir string) error {
			return templates.WriteReport(ctx, filepath.Join(dir, templates.ReportFile), templates.ReportData{
				RunID:   res.RunID,
				Results: res,
				Charts:  links,
			})
		}})
	}

	if cfg.Telemetry.MetricsEnabled {
		steps = append(steps, export.Step{Name: "metrics", Write: func(_ context.Context, dir string) error {
			metrics.LastSuccess.SetToCurrentTime()
			return metrics.WriteTextfile(filepath.Join(dir, metricsFile))
		}})
	}

	return steps
}
