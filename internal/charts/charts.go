// Package charts renders the exploratory PNG charts from computed tables.
// Nothing here feeds back into the pipeline.
package charts

import (
	"context"
	"image/color"
	"math"
	"path/filepath"
	"slices"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"retail-analytics/internal/models"
)

const (
	RevenueTrendFile = "revenue_trend.png"
	TopCustomersFile = "top5_customers.png"
	RFMScatterFile   = "rfm_scatter.png"

	topCustomers = 5
)

var (
	forecastRed = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	skyBlue     = color.RGBA{R: 135, G: 206, B: 235, A: 255}
	dividerGray = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

// RenderAll writes the three charts into dir.
func RenderAll(ctx context.Context, dir string, res *models.Results) error {
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		return RevenueTrend(filepath.Join(dir, RevenueTrendFile), res.KPIs, res.Forecast)
	})
	g.Go(func() error {
		return TopCustomers(filepath.Join(dir, TopCustomersFile), res.RFM)
	})
	g.Go(func() error {
		return RFMScatter(filepath.Join(dir, RFMScatterFile), res.RFM)
	})
	return g.Wait()
}

// RevenueTrend plots monthly revenue with the forecast point after a
// dashed divider at the last observed month.
func RevenueTrend(path string, kpis []models.MonthlyKPI, fc models.Forecast) error {
	if len(kpis) == 0 {
		return pkgerrors.New("no monthly KPIs to plot")
	}

	p := plot.New()
	p.Title.Text = "Monthly Revenue with Forecast"
	p.X.Label.Text = "Month"
	p.Y.Label.Text = "Revenue"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Add(plotter.NewGrid())

	history := make(plotter.XYs, len(kpis))
	for i, k := range kpis {
		history[i].X = float64(k.Month.Unix())
		history[i].Y = k.Revenue
	}
	line, points, err := plotter.NewLinePoints(history)
	if err != nil {
		return pkgerrors.Wrap(err, "revenue line")
	}
	points.Shape = draw.CircleGlyph{}

	lastX := history[len(history)-1].X
	minY, maxY := revenueRange(kpis, fc.ForecastRevenue)
	divider, err := plotter.NewLine(plotter.XYs{{X: lastX, Y: minY}, {X: lastX, Y: maxY}})
	if err != nil {
		return pkgerrors.Wrap(err, "divider line")
	}
	divider.Color = dividerGray
	divider.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	fcMonth, err := models.ParseDate(fc.ForecastMonth + "-01")
	if err != nil {
		return pkgerrors.Wrap(err, "forecast month")
	}
	forecast, err := plotter.NewScatter(plotter.XYs{{X: float64(fcMonth.Unix()), Y: fc.ForecastRevenue}})
	if err != nil {
		return pkgerrors.Wrap(err, "forecast point")
	}
	forecast.Color = forecastRed
	forecast.Shape = draw.CircleGlyph{}
	forecast.Radius = vg.Points(4)

	p.Add(line, points, divider, forecast)
	p.Legend.Add("Historical Revenue", line, points)
	p.Legend.Add("Forecast", forecast)
	p.Legend.Top = true

	return save(p, 8, 5, path)
}

// TopCustomers draws a bar chart of the highest monetary customers.
func TopCustomers(path string, rfm []models.RFMRecord) error {
	top := slices.Clone(rfm)
	slices.SortStableFunc(top, func(a, b models.RFMRecord) int {
		switch {
		case a.Monetary > b.Monetary:
			return -1
		case a.Monetary < b.Monetary:
			return 1
		default:
			return 0
		}
	})
	top = top[:min(topCustomers, len(top))]

	values := make(plotter.Values, len(top))
	names := make([]string, len(top))
	for i, r := range top {
		values[i] = r.Monetary
		names[i] = r.CustomerID
	}

	p := plot.New()
	p.Title.Text = "Top 5 Customers by Monetary Value"
	p.X.Label.Text = "Customer ID"
	p.Y.Label.Text = "Monetary Value"

	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return pkgerrors.Wrap(err, "top customers bars")
	}
	bars.Color = skyBlue
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(names...)

	return save(p, 7, 5, path)
}

// RFMScatter plots recency against frequency. Glyph area follows
// monetary value and colour follows the RFM score.
func RFMScatter(path string, rfm []models.RFMRecord) error {
	xys := make(plotter.XYs, len(rfm))
	for i, r := range rfm {
		xys[i].X = float64(r.Recency)
		xys[i].Y = float64(r.Frequency)
	}

	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return pkgerrors.Wrap(err, "rfm scatter")
	}

	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(111)
	cmap.SetMax(555)
	scatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		c, err := cmap.At(float64(rfm[i].Score))
		if err != nil {
			c = dividerGray
		}
		return draw.GlyphStyle{
			Color:  withAlpha(c, 0.6),
			Radius: GlyphRadius(rfm[i].Monetary),
			Shape:  draw.CircleGlyph{},
		}
	}

	p := plot.New()
	p.Title.Text = "Customer Segmentation (RFM)"
	p.X.Label.Text = "Recency (days since last purchase)"
	p.Y.Label.Text = "Frequency (# transactions)"
	p.Add(plotter.NewGrid(), scatter)

	return save(p, 7, 5, path)
}

// GlyphRadius turns a monetary value into a marker radius whose area is
// monetary/50 square points, never smaller than one point.
func GlyphRadius(monetary float64) vg.Length {
	area := math.Max(monetary, 0) / 50
	return vg.Points(math.Max(1, math.Sqrt(area/math.Pi)))
}

func revenueRange(kpis []models.MonthlyKPI, forecast float64) (float64, float64) {
	lo, hi := forecast, forecast
	for _, k := range kpis {
		lo = math.Min(lo, k.Revenue)
		hi = math.Max(hi, k.Revenue)
	}
	return lo, hi
}

func withAlpha(c color.Color, alpha float64) color.Color {
	r, g, b, _ := c.RGBA()
	a := uint16(alpha * 0xffff)
	return color.RGBA64{
		R: uint16(uint32(r) * uint32(a) / 0xffff),
		G: uint16(uint32(g) * uint32(a) / 0xffff),
		B: uint16(uint32(b) * uint32(a) / 0xffff),
		A: a,
	}
}

func save(p *plot.Plot, widthIn, heightIn float64, path string) error {
	if err := p.Save(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch, path); err != nil {
		return pkgerrors.Wrapf(err, "save %s", filepath.Base(path))
	}
	return nil
}
