package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	apperrors "retail-analytics/internal/errors"
	"retail-analytics/internal/models"
)

func testResults() *models.Results {
	jan := models.NewDate(2024, time.January, 1)
	feb := models.NewDate(2024, time.February, 1)
	return &models.Results{
		RunID: "run-export",
		Clean: []models.CleanedTransaction{
			{
				Transaction: models.Transaction{TransactionID: "T1", CustomerID: "C1", ProductID: "P1",
					TransactionDate: models.NewDate(2024, time.January, 5), Quantity: 2, DiscountPct: 0},
				UnitPrice: 10, ComputedAmount: 20, Amount: 20, Month: jan,
			},
			{
				Transaction: models.Transaction{TransactionID: "T7", CustomerID: "C2", ProductID: "P3",
					TransactionDate: models.NewDate(2024, time.February, 14), Quantity: 4, DiscountPct: 0.05},
				UnitPrice: 4.99, ComputedAmount: 18.96, Amount: 18.96, Month: feb,
			},
		},
		KPIs: []models.MonthlyKPI{
			{Month: jan, Orders: 1, Revenue: 20, AvgDiscount: 0, Customers: 1},
			{Month: feb, Orders: 1, Revenue: 18.96, AvgDiscount: 0.05, Customers: 1},
		},
		Forecast: models.Forecast{ForecastMonth: "2024-03", Method: models.MethodNaive, ForecastRevenue: 19.48},
		RFM: []models.RFMRecord{
			{CustomerID: "C1", Recency: 40, Frequency: 1, Monetary: 20, R: 1, F: 1, M: 5, Score: 115, Segment: "Hibernating"},
			{CustomerID: "C2", Recency: 0, Frequency: 1, Monetary: 18.96, R: 5, F: 5, M: 1, Score: 551, Segment: "Champions"},
		},
	}
}

func TestExporter_RoundTrip(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "outputs")
	res := testResults()

	files, err := NewExporter(outDir, zap.NewNop()).Export(context.Background(), res)
	require.NoError(t, err)
	assert.Len(t, files, 5)

	clean, err := ReadCleanTransactions(filepath.Join(outDir, CleanTransactionsFile))
	require.NoError(t, err)
	assert.Equal(t, cleanRows(res.Clean), clean)

	var kpis []models.MonthlyKPI
	require.NoError(t, ReadCSV(filepath.Join(outDir, KPIsMonthlyFile), &kpis))
	assert.Equal(t, res.KPIs, kpis)

	var forecast []models.Forecast
	require.NoError(t, ReadCSV(filepath.Join(outDir, ForecastFile), &forecast))
	assert.Equal(t, []models.Forecast{res.Forecast}, forecast)

	var rfm []models.RFMRecord
	require.NoError(t, ReadCSV(filepath.Join(outDir, RFMScoresFile), &rfm))
	assert.Equal(t, res.RFM, rfm)
}

func TestExporter_WorkbookSheets(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "outputs")
	_, err := NewExporter(outDir, zap.NewNop()).Export(context.Background(), testResults())
	require.NoError(t, err)

	f, err := excelize.OpenFile(filepath.Join(outDir, WorkbookFile))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, SheetOrder, f.GetSheetList())

	rows, err := f.GetRows(SheetForecast)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"forecast_month", "method", "forecast_revenue"}, rows[0])
	assert.Equal(t, []string{"2024-03", "naive_mean_last3", "19.48"}, rows[1])

	rows, err = f.GetRows(SheetRFMScores)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, "551", rows[2][7])
}

func TestExporter_NoPartialCommit(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "outputs")
	failing := Step{Name: "charts", Write: func(context.Context, string) error {
		return errors.New("render failed")
	}}

	_, err := NewExporter(outDir, zap.NewNop()).Export(context.Background(), testResults(), failing)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeExportFailed))

	_, statErr := os.Stat(outDir)
	assert.True(t, os.IsNotExist(statErr))

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(outDir), ".staging-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestExporter_OverwritesPreviousRun(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "outputs")
	require.NoError(t, os.MkdirAll(outDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outDir, ForecastFile), []byte("stale"), 0o644))

	extra := Step{Name: "note", Write: func(_ context.Context, dir string) error {
		return os.WriteFile(filepath.Join(dir, "note.txt"), []byte("ok"), 0o644)
	}}
	files, err := NewExporter(outDir, zap.NewNop()).Export(context.Background(), testResults(), extra)
	require.NoError(t, err)
	assert.Contains(t, files, filepath.Join(outDir, "note.txt"))

	var forecast []models.Forecast
	require.NoError(t, ReadCSV(filepath.Join(outDir, ForecastFile), &forecast))
	assert.Equal(t, "2024-03", forecast[0].ForecastMonth)
}

func TestExporter_FailedCommitRestoresPreviousRun(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "outputs")
	require.NoError(t, os.MkdirAll(outDir, 0o755))
	previous := map[string]string{
		CleanTransactionsFile: "old parquet",
		ForecastFile:          "old forecast",
		RFMScoresFile:         "old rfm",
	}
	for name, content := range previous {
		require.NoError(t, os.WriteFile(filepath.Join(outDir, name), []byte(content), 0o644))
	}

	exporter := NewExporter(outDir, zap.NewNop())
	exporter.rename = func(oldpath, newpath string) error {
		if filepath.Base(oldpath) == KPIsMonthlyFile && filepath.Dir(newpath) == outDir {
			return errors.New("disk full")
		}
		return os.Rename(oldpath, newpath)
	}

	_, err := exporter.Export(context.Background(), testResults())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeExportFailed))

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{CleanTransactionsFile, ForecastFile, RFMScoresFile}, names)

	for name, content := range previous {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err)
		assert.Equal(t, content, string(data), name)
	}

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(outDir), ".*-outputs-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestExporter_FailedCommitRemovesNewOutDir(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "outputs")
	exporter := NewExporter(outDir, zap.NewNop())
	exporter.rename = func(oldpath, newpath string) error {
		if filepath.Base(oldpath) == WorkbookFile {
			return errors.New("disk full")
		}
		return os.Rename(oldpath, newpath)
	}

	_, err := exporter.Export(context.Background(), testResults())
	require.Error(t, err)

	_, statErr := os.Stat(outDir)
	assert.True(t, os.IsNotExist(statErr))
}
