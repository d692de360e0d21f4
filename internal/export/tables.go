package export

import (
	"os"

	"github.com/gocarina/gocsv"
	"github.com/parquet-go/parquet-go"
	pkgerrors "github.com/pkg/errors"

	"retail-analytics/internal/models"
)

// CleanRow is the persisted shape of a cleaned transaction.
type CleanRow struct {
	TransactionID   string  `parquet:"transaction_id" csv:"transaction_id"`
	CustomerID      string  `parquet:"customer_id" csv:"customer_id"`
	ProductID       string  `parquet:"product_id" csv:"product_id"`
	TransactionDate string  `parquet:"transaction_date" csv:"transaction_date"`
	Quantity        int64   `parquet:"quantity" csv:"quantity"`
	DiscountPct     float64 `parquet:"discount_pct" csv:"discount_pct"`
	UnitPrice       float64 `parquet:"unit_price" csv:"unit_price"`
	ComputedAmount  float64 `parquet:"computed_amount" csv:"computed_amount"`
	Amount          float64 `parquet:"amount" csv:"amount"`
	Month           string  `parquet:"month" csv:"month"`
}

func cleanRows(txs []models.CleanedTransaction) []CleanRow {
	rows := make([]CleanRow, len(txs))
	for i, tx := range txs {
		rows[i] = CleanRow{
			TransactionID:   tx.TransactionID,
			CustomerID:      tx.CustomerID,
			ProductID:       tx.ProductID,
			TransactionDate: tx.TransactionDate.String(),
			Quantity:        int64(tx.Quantity),
			DiscountPct:     tx.DiscountPct,
			UnitPrice:       tx.UnitPrice,
			ComputedAmount:  tx.ComputedAmount,
			Amount:          tx.Amount,
			Month:           tx.Month.String(),
		}
	}
	return rows
}

func writeParquet(path string, rows []CleanRow) error {
	if err := parquet.WriteFile(path, rows); err != nil {
		return pkgerrors.Wrapf(err, "write %s", path)
	}
	return nil
}

// ReadCleanTransactions reads a clean_transactions parquet file.
func ReadCleanTransactions(path string) ([]CleanRow, error) {
	rows, err := parquet.ReadFile[CleanRow](path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "read %s", path)
	}
	return rows, nil
}

func writeCSV(path string, rows any) error {
	f, err := os.Create(path)
	if err != nil {
		return pkgerrors.Wrapf(err, "create %s", path)
	}
	if err := gocsv.MarshalFile(rows, f); err != nil {
		f.Close()
		return pkgerrors.Wrapf(err, "write %s", path)
	}
	return pkgerrors.Wrapf(f.Close(), "close %s", path)
}

// ReadCSV reads a table written by the exporter back into out, which must
// be a pointer to a slice of a gocsv-tagged struct.
func ReadCSV(path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return pkgerrors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return pkgerrors.Wrapf(gocsv.UnmarshalFile(f, out), "read %s", path)
}
