package services

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"retail-analytics/internal/config"
	apperrors "retail-analytics/internal/errors"
	"retail-analytics/internal/models"
	"retail-analytics/internal/observability"
)

func tx(id, customer, product string, date models.Date, qty int, discount float64) models.Transaction {
	return models.Transaction{
		TransactionID:   id,
		CustomerID:      customer,
		ProductID:       product,
		TransactionDate: date,
		Quantity:        qty,
		DiscountPct:     discount,
	}
}

// newTestDataset is 3 customers, 4 products and 8 transactions over two
// months, with one zero-quantity row and one 95% discount row.
func newTestDataset() *models.Dataset {
	return &models.Dataset{
		Transactions: []models.Transaction{
			tx("T1", "C1", "P1", models.NewDate(2024, time.January, 5), 2, 0),
			tx("T2", "C2", "P2", models.NewDate(2024, time.January, 10), 1, 0.1),
			tx("T3", "C3", "P3", models.NewDate(2024, time.January, 20), 3, 0),
			tx("T4", "C1", "P4", models.NewDate(2024, time.January, 25), 1, 0.2),
			tx("T5", "C2", "P1", models.NewDate(2024, time.February, 2), 0, 0),
			tx("T6", "C3", "P2", models.NewDate(2024, time.February, 8), 2, 0.95),
			tx("T7", "C1", "P3", models.NewDate(2024, time.February, 14), 4, 0.05),
			tx("T8", "C2", "P4", models.NewDate(2024, time.February, 20), 1, 0),
		},
		Customers: []models.Customer{
			{CustomerID: "C1", SignupDate: models.NewDate(2023, time.March, 1)},
			{CustomerID: "C2", SignupDate: models.NewDate(2023, time.June, 1)},
			{CustomerID: "C3", SignupDate: models.NewDate(2023, time.September, 1)},
		},
		Products: []models.Product{
			{ProductID: "P1", Price: 10.00},
			{ProductID: "P2", Price: 25.50},
			{ProductID: "P3", Price: 4.99},
			{ProductID: "P4", Price: 100.00},
		},
		Stores: []models.Store{{"store_id": "S1", "city": "Leeds"}},
	}
}

func newTestAnalytics(metrics *observability.Metrics) *Analytics {
	return NewAnalytics(Options{
		UnknownProductPolicy: config.PolicyDrop,
		RegressionEnabled:    true,
	}, metrics, zap.NewNop())
}

func TestAnalytics_Process_EndToEnd(t *testing.T) {
	metrics := observability.NewMetrics()
	a := newTestAnalytics(metrics)
	ctx := observability.WithRunID(context.Background(), "run-e2e")

	res, err := a.Process(ctx, newTestDataset())
	require.NoError(t, err)

	assert.Equal(t, "run-e2e", res.RunID)
	assert.Len(t, res.Clean, 6)
	assert.Equal(t, 1, res.Dropped.NonPositiveQuantity)
	assert.Equal(t, 1, res.Dropped.DiscountOutOfRange)

	require.Len(t, res.KPIs, 2)
	assert.Equal(t, models.NewDate(2024, time.January, 1), res.KPIs[0].Month)
	assert.Equal(t, 4, res.KPIs[0].Orders)
	assert.InDelta(t, 137.92, res.KPIs[0].Revenue, 1e-9)
	assert.Equal(t, 3, res.KPIs[0].Customers)
	assert.Equal(t, 2, res.KPIs[1].Orders)
	assert.InDelta(t, 118.96, res.KPIs[1].Revenue, 1e-9)

	assert.Equal(t, models.Forecast{
		ForecastMonth:   "2024-03",
		Method:          models.MethodNaive,
		ForecastRevenue: 128.44,
	}, res.Forecast)

	require.Len(t, res.RFM, 3)
	for _, r := range res.RFM {
		assert.GreaterOrEqual(t, r.Score, 111)
		assert.LessOrEqual(t, r.Score, 555)
	}
	scores := map[string]int{}
	for _, r := range res.RFM {
		scores[r.CustomerID] = r.Score
	}
	assert.Equal(t, map[string]int{"C1": 353, "C2": 535, "C3": 111}, scores)

	assert.Equal(t, 6.0, testutil.ToFloat64(metrics.RowsCleaned))
	assert.Equal(t, 8.0, testutil.ToFloat64(metrics.RowsLoaded.WithLabelValues("transactions")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RowsDropped.WithLabelValues("discount_out_of_range")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.MonthsAggregated))

	stats := Stats(res)
	assert.Equal(t, 2, stats["dropped"])
	assert.Equal(t, models.MethodNaive, stats["forecast_method"])
}

func TestAnalytics_Process_AllRowsFiltered(t *testing.T) {
	ds := newTestDataset()
	for i := range ds.Transactions {
		ds.Transactions[i].Quantity = 0
	}

	_, err := newTestAnalytics(nil).Process(context.Background(), ds)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeEmptyKPISeries))
}

func TestAnalytics_Process_UnknownProductPolicy(t *testing.T) {
	ds := newTestDataset()
	ds.Transactions[0].ProductID = "P404"

	res, err := newTestAnalytics(nil).Process(context.Background(), ds)
	require.NoError(t, err)
	assert.Len(t, res.Clean, 5)
	assert.Equal(t, 1, res.Dropped.UnknownProduct)

	strict := NewAnalytics(Options{UnknownProductPolicy: config.PolicyFail}, nil, zap.NewNop())
	_, err = strict.Process(context.Background(), newTestDatasetWithUnknownProduct())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeUnknownProduct))
}

func newTestDatasetWithUnknownProduct() *models.Dataset {
	ds := newTestDataset()
	ds.Transactions[3].ProductID = "P404"
	return ds
}

func TestAnalytics_Process_SingleCustomerIsDegenerate(t *testing.T) {
	ds := newTestDataset()
	for i := range ds.Transactions {
		ds.Transactions[i].CustomerID = "C1"
	}

	_, err := newTestAnalytics(nil).Process(context.Background(), ds)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeDegenerateDistribution))
}

func TestAnalytics_Process_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newTestAnalytics(nil).Process(ctx, newTestDataset())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestAnalytics_Stage_PropagatesError(t *testing.T) {
	a := newTestAnalytics(observability.NewMetrics())
	want := apperrors.EmptyKPISeries("nothing to aggregate")

	err := a.stage(context.Background(), "aggregate", func() error { return want })
	assert.Same(t, want, err)

	ran := false
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = a.stage(ctx, "aggregate", func() error { ran = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}
