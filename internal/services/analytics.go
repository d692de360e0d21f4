package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"retail-analytics/internal/models"
	"retail-analytics/internal/observability"
)

type Options struct {
	UnknownProductPolicy string
	RegressionEnabled    bool
}

// Analytics runs the compute stages of the pipeline: clean, aggregate,
// forecast and segment.
type Analytics struct {
	cleaner    *Cleaner
	forecaster *Forecaster
	metrics    *observability.Metrics
	logger     *zap.Logger
}

func NewAnalytics(opts Options, metrics *observability.Metrics, logger *zap.Logger) *Analytics {
	if metrics == nil {
		metrics = observability.NewMetrics()
	}
	return &Analytics{
		cleaner:    NewCleaner(opts.UnknownProductPolicy, logger),
		forecaster: NewForecaster(opts.RegressionEnabled),
		metrics:    metrics,
		logger:     logger,
	}
}

func (a *Analytics) Process(ctx context.Context, ds *models.Dataset) (*models.Results, error) {
	res := &models.Results{
		RunID:        observability.GetRunID(ctx),
		LoadedRows:   len(ds.Transactions),
		CustomerRows: len(ds.Customers),
		StoreRows:    len(ds.Stores),
	}
	a.metrics.RowsLoaded.WithLabelValues("transactions").Add(float64(len(ds.Transactions)))
	a.metrics.RowsLoaded.WithLabelValues("customers").Add(float64(len(ds.Customers)))
	a.metrics.RowsLoaded.WithLabelValues("products").Add(float64(len(ds.Products)))
	a.metrics.RowsLoaded.WithLabelValues("stores").Add(float64(len(ds.Stores)))

	err := a.stage(ctx, "clean", func() error {
		clean, dropped, err := a.cleaner.Clean(ds.Transactions, ds.Products)
		if err != nil {
			return err
		}
		res.Clean, res.Dropped = clean, dropped
		a.metrics.RowsCleaned.Add(float64(len(clean)))
		a.metrics.RowsDropped.WithLabelValues("non_positive_quantity").Add(float64(dropped.NonPositiveQuantity))
		a.metrics.RowsDropped.WithLabelValues("discount_out_of_range").Add(float64(dropped.DiscountOutOfRange))
		a.metrics.RowsDropped.WithLabelValues("unknown_product").Add(float64(dropped.UnknownProduct))
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = a.stage(ctx, "aggregate", func() error {
		res.KPIs = MonthlyKPIs(res.Clean)
		a.metrics.MonthsAggregated.Set(float64(len(res.KPIs)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = a.stage(ctx, "forecast", func() error {
		fc, err := a.forecaster.Forecast(res.KPIs)
		if err != nil {
			return err
		}
		res.Forecast = fc
		a.metrics.ForecastRevenue.WithLabelValues(fc.Method).Set(fc.ForecastRevenue)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = a.stage(ctx, "segment", func() error {
		rfm, err := ScoreRFM(res.Clean)
		if err != nil {
			return err
		}
		res.RFM = rfm
		a.metrics.CustomersScored.Set(float64(len(rfm)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info("analytics complete", zap.Any("stats", Stats(res)))
	return res, nil
}

// stage runs fn under a span named after the stage. A cancelled context
// stops the run before fn starts.
func (a *Analytics) stage(ctx context.Context, name string, fn func() error) error {
	_, span := observability.StartSpan(ctx, name)
	start := time.Now()

	err := ctx.Err()
	if err == nil {
		err = fn()
	}

	a.metrics.ObserveStage(name, start)
	observability.FinishSpan(span, err)
	a.logger.Debug("stage finished",
		zap.String("stage", name),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err),
	)
	return err
}

// Stats summarises a run for logs and the report.
func Stats(res *models.Results) map[string]any {
	return map[string]any{
		"run_id":           res.RunID,
		"transactions":     res.LoadedRows,
		"cleaned":          len(res.Clean),
		"dropped":          res.Dropped.Total(),
		"months":           len(res.KPIs),
		"customers_scored": len(res.RFM),
		"forecast_month":   res.Forecast.ForecastMonth,
		"forecast_method":  res.Forecast.Method,
		"forecast_revenue": res.Forecast.ForecastRevenue,
	}
}
