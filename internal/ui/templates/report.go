package templates

//go:generate templ generate

import (
	"context"
	"os"
	"slices"
	"strconv"
	"strings"

	"retail-analytics/internal/models"
)

const (
	ReportFile      = "report.html"
	maxTopCustomers = 10
)

// ReportData is everything the summary page shows.
type ReportData struct {
	RunID   string
	Results *models.Results
	Charts  []ChartLink
}

type ChartLink struct {
	Title string
	File  string
}

type segmentCount struct {
	Name  string
	Count int
}

// WriteReport renders the report page to path.
func WriteReport(ctx context.Context, path string, data ReportData) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Report(data).Render(ctx, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// segmentCounts tallies customers per segment, largest first.
func segmentCounts(rfm []models.RFMRecord) []segmentCount {
	byName := map[string]int{}
	for _, r := range rfm {
		byName[r.Segment]++
	}
	counts := make([]segmentCount, 0, len(byName))
	for name, n := range byName {
		counts = append(counts, segmentCount{Name: name, Count: n})
	}
	slices.SortFunc(counts, func(a, b segmentCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.Name, b.Name)
	})
	return counts
}

// topCustomers returns the highest RFM scores, keeping input order on ties.
func topCustomers(rfm []models.RFMRecord) []models.RFMRecord {
	top := slices.Clone(rfm)
	slices.SortStableFunc(top, func(a, b models.RFMRecord) int {
		return b.Score - a.Score
	})
	return top[:min(maxTopCustomers, len(top))]
}

func count(n int) string {
	return strconv.Itoa(n)
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func ratio(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
