package services

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "retail-analytics/internal/errors"
	"retail-analytics/internal/models"
)

func purchase(id, customer string, date models.Date, amount float64) models.CleanedTransaction {
	return models.CleanedTransaction{
		Transaction: tx(id, customer, "P1", date, 1, 0),
		Amount:      amount,
		Month:       date.MonthStart(),
	}
}

func TestScoreRFM_MonetaryQuintiles(t *testing.T) {
	var txs []models.CleanedTransaction
	for i := 1; i <= 10; i++ {
		customer := fmt.Sprintf("%d", i)
		day := models.NewDate(2024, time.January, i)
		txs = append(txs, purchase("T"+customer, customer, day, float64(i*i)*10))
	}

	records, err := ScoreRFM(txs)
	require.NoError(t, err)
	require.Len(t, records, 10)

	counts := map[int]int{}
	for i, r := range records {
		assert.Equal(t, fmt.Sprintf("%d", i+1), r.CustomerID)
		counts[r.M]++
		if i > 0 {
			assert.GreaterOrEqual(t, r.M, records[i-1].M)
		}
	}
	assert.Equal(t, map[int]int{1: 2, 2: 2, 3: 2, 4: 2, 5: 2}, counts)
}

func TestScoreRFM_MostRecentCustomerHasTopRecency(t *testing.T) {
	records, err := ScoreRFM(cleanedTestTransactions(t))
	require.NoError(t, err)

	byID := map[string]models.RFMRecord{}
	for _, r := range records {
		byID[r.CustomerID] = r
	}

	c2 := byID["C2"]
	assert.Equal(t, 0, c2.Recency)
	assert.Equal(t, 5, c2.R)
	assert.Equal(t, 2, c2.Frequency)
	assert.Equal(t, 122.95, c2.Monetary)

	c1 := byID["C1"]
	assert.Equal(t, 6, c1.Recency)
	assert.Equal(t, 3, c1.Frequency)
	assert.Equal(t, 118.96, c1.Monetary)
	assert.Equal(t, 353, c1.Score)

	c3 := byID["C3"]
	assert.Equal(t, 31, c3.Recency)
	assert.Equal(t, 1, c3.R)
	assert.Equal(t, 111, c3.Score)
	assert.Equal(t, "Hibernating", c3.Segment)
}

func TestScoreRFM_FrequencyTiesBrokenByCustomerOrder(t *testing.T) {
	var txs []models.CleanedTransaction
	for i := 1; i <= 5; i++ {
		customer := fmt.Sprintf("C%d", i)
		day := models.NewDate(2024, time.March, i)
		txs = append(txs, purchase("T"+customer, customer, day, float64(i)))
	}

	records, err := ScoreRFM(txs)
	require.NoError(t, err)

	for i, r := range records {
		assert.Equal(t, 1, r.Frequency)
		assert.Equal(t, i+1, r.F, "customer %s", r.CustomerID)
		assert.Equal(t, i+1, r.R, "customer %s", r.CustomerID)
	}
}

func TestScoreRFM_DegenerateMonetary(t *testing.T) {
	var txs []models.CleanedTransaction
	for i := 1; i <= 6; i++ {
		customer := fmt.Sprintf("C%d", i)
		txs = append(txs, purchase("T"+customer, customer, models.NewDate(2024, time.March, i), 25))
	}

	_, err := ScoreRFM(txs)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeDegenerateDistribution))
	assert.Contains(t, err.Error(), "monetary")
}

func TestScoreRFM_Empty(t *testing.T) {
	_, err := ScoreRFM(nil)
	assert.True(t, apperrors.Is(err, apperrors.CodeDegenerateDistribution))
}

func TestQcut(t *testing.T) {
	bins, err := qcut([]float64{0, 6, 31}, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 4}, bins)

	_, err = qcut([]float64{1, 1, 1, 2}, 5)
	assert.Error(t, err)
}

func TestRankFirst(t *testing.T) {
	assert.Equal(t, []float64{3, 1, 4, 2, 5}, rankFirst([]float64{2, 1, 2, 1, 7}))
}

func TestCustomerOrder(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		want []string
	}{
		{"all integers sort numerically", []string{"10", "2", "33", "007"}, []string{"2", "007", "10", "33"}},
		{"all strings sort lexically", []string{"C10", "C09", "A1"}, []string{"A1", "C09", "C10"}},
		{"mixed ids sort lexically", []string{"7", "C1", "10"}, []string{"10", "7", "C1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := slices.Clone(tt.ids)
			slices.SortFunc(ids, customerOrder(ids))
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestScoreRFM_MixedIDsBreakFrequencyTiesLexically(t *testing.T) {
	txs := []models.CleanedTransaction{
		purchase("T1", "C1", models.NewDate(2024, time.January, 10), 10),
		purchase("T2", "7", models.NewDate(2024, time.January, 11), 20),
		purchase("T3", "10", models.NewDate(2024, time.January, 12), 30),
		purchase("T4", "B2", models.NewDate(2024, time.January, 13), 40),
		purchase("T5", "A9", models.NewDate(2024, time.January, 14), 50),
	}

	records, err := ScoreRFM(txs)
	require.NoError(t, err)

	var ids []string
	for _, r := range records {
		ids = append(ids, r.CustomerID)
	}
	assert.Equal(t, []string{"10", "7", "A9", "B2", "C1"}, ids)
	for i, r := range records {
		assert.Equal(t, i+1, r.F, "customer %s", r.CustomerID)
	}
}

func TestSegment(t *testing.T) {
	tests := []struct {
		r, f int
		want string
	}{
		{5, 5, "Champions"},
		{4, 4, "Loyal Customers"},
		{5, 1, "New Customers"},
		{4, 1, "Promising"},
		{5, 2, "Potential Loyalists"},
		{3, 3, "Need Attention"},
		{3, 1, "About to Sleep"},
		{2, 3, "At Risk"},
		{1, 5, "Can't Lose Them"},
		{1, 1, "Hibernating"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Segment(tt.r, tt.f), "R=%d F=%d", tt.r, tt.f)
	}
}
