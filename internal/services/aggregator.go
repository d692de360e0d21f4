package services

import (
	"slices"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"retail-analytics/internal/models"
)

type monthGroup struct {
	month        models.Date
	transactions map[string]struct{}
	customers    map[string]struct{}
	revenue      decimal.Decimal
	discounts    []float64
}

// MonthlyKPIs groups cleaned transactions by calendar month. Only months
// that occur in the input are returned, oldest first.
func MonthlyKPIs(txs []models.CleanedTransaction) []models.MonthlyKPI {
	groups := make(map[models.Date]*monthGroup)

	for _, tx := range txs {
		g := groups[tx.Month]
		if g == nil {
			g = &monthGroup{
				month:        tx.Month,
				transactions: make(map[string]struct{}),
				customers:    make(map[string]struct{}),
			}
			groups[tx.Month] = g
		}
		g.transactions[tx.TransactionID] = struct{}{}
		g.customers[tx.CustomerID] = struct{}{}
		g.revenue = g.revenue.Add(decimal.NewFromFloat(tx.Amount))
		g.discounts = append(g.discounts, tx.DiscountPct)
	}

	result := make([]models.MonthlyKPI, 0, len(groups))
	for _, g := range groups {
		result = append(result, models.MonthlyKPI{
			Month:       g.month,
			Orders:      len(g.transactions),
			Revenue:     g.revenue.Round(2).InexactFloat64(),
			AvgDiscount: stat.Mean(g.discounts, nil),
			Customers:   len(g.customers),
		})
	}
	slices.SortFunc(result, func(a, b models.MonthlyKPI) int {
		return a.Month.Compare(b.Month.Time)
	})
	return result
}
