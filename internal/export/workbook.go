package export

import (
	pkgerrors "github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"retail-analytics/internal/models"
)

const (
	SheetCleanTransactions = "Clean_Transactions"
	SheetKPIsMonthly       = "KPIs_Monthly"
	SheetForecast          = "Forecast"
	SheetRFMScores         = "RFM_Scores"
)

// SheetOrder is the order sheets appear in the workbook.
var SheetOrder = []string{SheetCleanTransactions, SheetKPIsMonthly, SheetForecast, SheetRFMScores}

type sheet struct {
	name   string
	header []any
	rows   [][]any
}

func writeWorkbook(path string, res *models.Results) error {
	f := excelize.NewFile()
	defer f.Close()

	sheets := workbookSheets(res)
	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return pkgerrors.Wrap(err, "rename first sheet")
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return pkgerrors.Wrapf(err, "add sheet %s", s.name)
		}

		if err := f.SetSheetRow(s.name, "A1", &s.header); err != nil {
			return pkgerrors.Wrapf(err, "write %s header", s.name)
		}
		for r, row := range s.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(s.name, cell, &row); err != nil {
				return pkgerrors.Wrapf(err, "write %s row %d", s.name, r+1)
			}
		}
	}
	f.SetActiveSheet(0)

	return pkgerrors.Wrapf(f.SaveAs(path), "save %s", path)
}

func workbookSheets(res *models.Results) []sheet {
	clean := sheet{
		name: SheetCleanTransactions,
		header: []any{"transaction_id", "customer_id", "product_id", "transaction_date", "quantity",
			"discount_pct", "unit_price", "computed_amount", "amount", "month"},
	}
	for _, r := range cleanRows(res.Clean) {
		clean.rows = append(clean.rows, []any{r.TransactionID, r.CustomerID, r.ProductID, r.TransactionDate,
			r.Quantity, r.DiscountPct, r.UnitPrice, r.ComputedAmount, r.Amount, r.Month})
	}

	kpis := sheet{
		name:   SheetKPIsMonthly,
		header: []any{"month", "orders", "revenue", "avg_discount", "customers"},
	}
	for _, k := range res.KPIs {
		kpis.rows = append(kpis.rows, []any{k.Month.String(), k.Orders, k.Revenue, k.AvgDiscount, k.Customers})
	}

	forecast := sheet{
		name:   SheetForecast,
		header: []any{"forecast_month", "method", "forecast_revenue"},
		rows:   [][]any{{res.Forecast.ForecastMonth, res.Forecast.Method, res.Forecast.ForecastRevenue}},
	}

	rfm := sheet{
		name:   SheetRFMScores,
		header: []any{"customer_id", "recency", "frequency", "monetary", "R", "F", "M", "RFM_Score", "segment"},
	}
	for _, r := range res.RFM {
		rfm.rows = append(rfm.rows, []any{r.CustomerID, r.Recency, r.Frequency, r.Monetary, r.R, r.F, r.M, r.Score, r.Segment})
	}

	return []sheet{clean, kpis, forecast, rfm}
}
