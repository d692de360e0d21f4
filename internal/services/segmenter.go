package services

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "retail-analytics/internal/errors"
	"retail-analytics/internal/models"
)

var (
	recencyLabels   = []int{5, 4, 3, 2, 1}
	ascendingLabels = []int{1, 2, 3, 4, 5}
)

type customerAgg struct {
	id           string
	last         models.Date
	transactions map[string]struct{}
	monetary     decimal.Decimal
}

// ScoreRFM computes recency, frequency and monetary value per customer and
// ranks each metric into quintiles. Recency is measured against the latest
// transaction date in txs, not the wall clock.
func ScoreRFM(txs []models.CleanedTransaction) ([]models.RFMRecord, error) {
	if len(txs) == 0 {
		return nil, apperrors.DegenerateDistribution("customers", "no cleaned transactions")
	}

	reference := txs[0].TransactionDate
	byCustomer := make(map[string]*customerAgg)
	for _, tx := range txs {
		if tx.TransactionDate.After(reference.Time) {
			reference = tx.TransactionDate
		}
		agg := byCustomer[tx.CustomerID]
		if agg == nil {
			agg = &customerAgg{
				id:           tx.CustomerID,
				last:         tx.TransactionDate,
				transactions: make(map[string]struct{}),
			}
			byCustomer[tx.CustomerID] = agg
		}
		if tx.TransactionDate.After(agg.last.Time) {
			agg.last = tx.TransactionDate
		}
		agg.transactions[tx.TransactionID] = struct{}{}
		agg.monetary = agg.monetary.Add(decimal.NewFromFloat(tx.Amount))
	}

	customers := make([]*customerAgg, 0, len(byCustomer))
	ids := make([]string, 0, len(byCustomer))
	for id, agg := range byCustomer {
		customers = append(customers, agg)
		ids = append(ids, id)
	}
	order := customerOrder(ids)
	slices.SortFunc(customers, func(a, b *customerAgg) int {
		return order(a.id, b.id)
	})

	records := make([]models.RFMRecord, len(customers))
	recency := make([]float64, len(customers))
	frequency := make([]float64, len(customers))
	monetary := make([]float64, len(customers))
	for i, c := range customers {
		records[i] = models.RFMRecord{
			CustomerID: c.id,
			Recency:    c.last.DaysUntil(reference),
			Frequency:  len(c.transactions),
			Monetary:   c.monetary.Round(2).InexactFloat64(),
		}
		recency[i] = float64(records[i].Recency)
		frequency[i] = float64(records[i].Frequency)
		monetary[i] = records[i].Monetary
	}

	r, err := scoreQuintiles("recency", recency, recencyLabels)
	if err != nil {
		return nil, err
	}
	// Frequency counts tie heavily, so rank them first to get distinct edges.
	f, err := scoreQuintiles("frequency", rankFirst(frequency), ascendingLabels)
	if err != nil {
		return nil, err
	}
	m, err := scoreQuintiles("monetary", monetary, ascendingLabels)
	if err != nil {
		return nil, err
	}

	for i := range records {
		records[i].R = r[i]
		records[i].F = f[i]
		records[i].M = m[i]
		records[i].Score = 100*r[i] + 10*f[i] + m[i]
		records[i].Segment = Segment(r[i], f[i])
	}
	return records, nil
}

func scoreQuintiles(metric string, values []float64, labels []int) ([]int, error) {
	bins, err := qcut(values, quintiles)
	if err != nil {
		return nil, apperrors.DegenerateDistribution(metric, err.Error())
	}
	scores := make([]int, len(bins))
	for i, b := range bins {
		scores[i] = labels[b]
	}
	return scores, nil
}

// customerOrder returns a comparator over ids: numeric when every id is
// an integer, lexical otherwise.
func customerOrder(ids []string) func(a, b string) int {
	nums := make(map[string]int64, len(ids))
	for _, id := range ids {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return strings.Compare
		}
		nums[id] = n
	}
	return func(a, b string) int {
		if c := cmp.Compare(nums[a], nums[b]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	}
}

// Segment names the customer group for an R/F score pair.
func Segment(r, f int) string {
	switch {
	case r <= 2 && f <= 2:
		return "Hibernating"
	case r <= 2 && f <= 4:
		return "At Risk"
	case r <= 2:
		return "Can't Lose Them"
	case r == 3 && f <= 2:
		return "About to Sleep"
	case r == 3 && f == 3:
		return "Need Attention"
	case r <= 4 && f >= 4:
		return "Loyal Customers"
	case r == 4 && f == 1:
		return "Promising"
	case r == 5 && f == 1:
		return "New Customers"
	case f <= 3:
		return "Potential Loyalists"
	default:
		return "Champions"
	}
}
