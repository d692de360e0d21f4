package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "retail-analytics/internal/errors"
	"retail-analytics/internal/models"
)

var validInputs = map[string]string{
	TransactionsFile: "transaction_id,customer_id,product_id,transaction_date,quantity,discount_pct\n" +
		"T1,C1,P1,2024-01-05,2,0.0\n" +
		"T2,C2,P2,2024-01-10 14:30:00,1,0.1\n",
	CustomersFile: "customer_id,name,signup_date\nC1,Ada,2023-03-01\nC2,Grace,2023-06-01\n",
	ProductsFile:  "product_id,price\nP1,10.00\nP2,25.50\n",
	StoresFile:    "store_id,city\nS1,Leeds\nS2,York\n",
}

func writeInputs(t *testing.T, overrides map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range validInputs {
		if o, ok := overrides[name]; ok {
			content = o
		}
		if content == "-" {
			continue
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestLoad(t *testing.T) {
	ds, err := New(writeInputs(t, nil), zap.NewNop()).Load(context.Background())
	require.NoError(t, err)

	require.Len(t, ds.Transactions, 2)
	assert.Equal(t, models.Transaction{
		TransactionID:   "T1",
		CustomerID:      "C1",
		ProductID:       "P1",
		TransactionDate: models.NewDate(2024, time.January, 5),
		Quantity:        2,
		DiscountPct:     0,
	}, ds.Transactions[0])
	assert.Equal(t, "2024-01-10", ds.Transactions[1].TransactionDate.String())
	assert.Equal(t, 0.1, ds.Transactions[1].DiscountPct)

	require.Len(t, ds.Customers, 2)
	assert.Equal(t, "C2", ds.Customers[1].CustomerID)
	assert.Equal(t, models.NewDate(2023, time.June, 1), ds.Customers[1].SignupDate)

	require.Len(t, ds.Products, 2)
	assert.Equal(t, 25.5, ds.Products[1].Price)

	require.Len(t, ds.Stores, 2)
	assert.Equal(t, models.Store{"store_id": "S2", "city": "York"}, ds.Stores[1])
}

func TestLoad_StripsBOM(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		ProductsFile: "\xef\xbb\xbfproduct_id,price\nP1,10.00\n",
	})

	ds, err := New(dir, zap.NewNop()).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, ds.Products, 1)
	assert.Equal(t, "P1", ds.Products[0].ProductID)
}

func TestLoad_Failures(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]string
	}{
		{
			name:      "missing transactions file",
			overrides: map[string]string{TransactionsFile: "-"},
		},
		{
			name:      "missing stores file",
			overrides: map[string]string{StoresFile: "-"},
		},
		{
			name:      "empty customers file",
			overrides: map[string]string{CustomersFile: ""},
		},
		{
			name:      "missing price column",
			overrides: map[string]string{ProductsFile: "product_id,cost\nP1,10.00\n"},
		},
		{
			name: "unparseable date",
			overrides: map[string]string{TransactionsFile: "transaction_id,customer_id,product_id,transaction_date,quantity,discount_pct\n" +
				"T1,C1,P1,05/01/2024,2,0.0\n"},
		},
		{
			name: "blank discount",
			overrides: map[string]string{TransactionsFile: "transaction_id,customer_id,product_id,transaction_date,quantity,discount_pct\n" +
				"T1,C1,P1,2024-01-05,2,\n"},
		},
		{
			name: "blank quantity",
			overrides: map[string]string{TransactionsFile: "transaction_id,customer_id,product_id,transaction_date,quantity,discount_pct\n" +
				"T1,C1,P1,2024-01-05,2,0.0\n" +
				"T2,C1,P1,2024-01-06, ,0.1\n"},
		},
		{
			name:      "blank price",
			overrides: map[string]string{ProductsFile: "product_id,price\nP1,10.00\nP2,\n"},
		},
		{
			name:      "ragged row",
			overrides: map[string]string{StoresFile: "store_id,city\nS1\n"},
		},
		{
			name: "non-numeric quantity",
			overrides: map[string]string{TransactionsFile: "transaction_id,customer_id,product_id,transaction_date,quantity,discount_pct\n" +
				"T1,C1,P1,2024-01-05,two,0.0\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := New(writeInputs(t, tt.overrides), zap.NewNop()).Load(context.Background())
			require.Error(t, err)
			assert.Nil(t, ds)
			assert.True(t, apperrors.Is(err, apperrors.CodeMissingInput), "got %v", err)
		})
	}
}

func TestLoad_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(writeInputs(t, nil), zap.NewNop()).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckRequired(t *testing.T) {
	err := checkRequired([]byte("a,b\n1,2\n"), []string{"a", "b", "c", "d"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "c, d")

	err = checkRequired([]byte("b,a,note\n1,2,\n3,,x\n"), []string{"a", "b"})
	require.Error(t, err)
	assert.Equal(t, "row 2: blank a", err.Error())

	assert.NoError(t, checkRequired([]byte("b,a,extra\n1,2,\n"), []string{"a", "b"}))
}
