package charts

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"

	"retail-analytics/internal/models"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func chartResults() *models.Results {
	return &models.Results{
		KPIs: []models.MonthlyKPI{
			{Month: models.NewDate(2024, time.January, 1), Revenue: 137.92},
			{Month: models.NewDate(2024, time.February, 1), Revenue: 118.96},
		},
		Forecast: models.Forecast{ForecastMonth: "2024-03", Method: models.MethodNaive, ForecastRevenue: 128.44},
		RFM: []models.RFMRecord{
			{CustomerID: "C1", Recency: 6, Frequency: 3, Monetary: 118.96, Score: 353},
			{CustomerID: "C2", Recency: 0, Frequency: 2, Monetary: 122.95, Score: 535},
			{CustomerID: "C3", Recency: 31, Frequency: 1, Monetary: 14.97, Score: 111},
		},
	}
}

func TestRenderAll(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, RenderAll(context.Background(), dir, chartResults()))

	for _, name := range []string{RevenueTrendFile, TopCustomersFile, RFMScatterFile} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.True(t, bytes.HasPrefix(data, pngMagic), "%s is not a PNG", name)
	}
}

func TestRevenueTrend_RequiresKPIs(t *testing.T) {
	err := RevenueTrend(filepath.Join(t.TempDir(), RevenueTrendFile), nil, models.Forecast{})
	assert.Error(t, err)
}

func TestGlyphRadius(t *testing.T) {
	assert.Equal(t, vg.Points(1), GlyphRadius(0))
	assert.Equal(t, vg.Points(1), GlyphRadius(-20))
	assert.Greater(t, GlyphRadius(50000), GlyphRadius(5000))
}
