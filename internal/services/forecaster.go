package services

import (
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	apperrors "retail-analytics/internal/errors"
	"retail-analytics/internal/models"
)

const (
	// MinRegressionMonths is the shortest history fitted with a trend line.
	MinRegressionMonths = 6
	// NaiveWindow is how many trailing months the fallback averages.
	NaiveWindow = 3

	forecastMonthLayout = "2006-01"
)

type Forecaster struct {
	regressionEnabled bool
}

func NewForecaster(regressionEnabled bool) *Forecaster {
	return &Forecaster{regressionEnabled: regressionEnabled}
}

// Forecast predicts revenue for the month after the last KPI row. The
// series must be in ascending month order.
func (f *Forecaster) Forecast(kpis []models.MonthlyKPI) (models.Forecast, error) {
	if len(kpis) == 0 {
		return models.Forecast{}, apperrors.EmptyKPISeries("no monthly KPIs to forecast from")
	}

	revenue := make([]float64, len(kpis))
	for i, k := range kpis {
		revenue[i] = k.Revenue
	}

	method := models.MethodRegression
	var value float64
	if !f.regressionEnabled || len(kpis) < MinRegressionMonths {
		method = models.MethodNaive
		value = naiveMean(revenue)
	} else {
		value = linearTrend(revenue)
	}

	last := kpis[len(kpis)-1].Month
	return models.Forecast{
		ForecastMonth:   last.AddDate(0, 1, 0).Format(forecastMonthLayout),
		Method:          method,
		ForecastRevenue: round2(value),
	}, nil
}

func naiveMean(revenue []float64) float64 {
	window := revenue[max(0, len(revenue)-NaiveWindow):]
	return stat.Mean(window, nil)
}

// linearTrend fits revenue = alpha + beta*t for t = 0..n-1 and evaluates
// the line at t = n.
func linearTrend(revenue []float64) float64 {
	t := make([]float64, len(revenue))
	for i := range t {
		t[i] = float64(i)
	}
	alpha, beta := stat.LinearRegression(t, revenue, nil, false)
	return alpha + beta*float64(len(revenue))
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
