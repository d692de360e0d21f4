package models

const (
	MethodNaive      = "naive_mean_last3"
	MethodRegression = "linear_regression"
)

type MonthlyKPI struct {
	Month       Date    `csv:"month" json:"month"`
	Orders      int     `csv:"orders" json:"orders"`
	Revenue     float64 `csv:"revenue" json:"revenue"`
	AvgDiscount float64 `csv:"avg_discount" json:"avg_discount"`
	Customers   int     `csv:"customers" json:"customers"`
}

type Forecast struct {
	ForecastMonth   string  `csv:"forecast_month" json:"forecast_month"`
	Method          string  `csv:"method" json:"method"`
	ForecastRevenue float64 `csv:"forecast_revenue" json:"forecast_revenue"`
}

type RFMRecord struct {
	CustomerID string  `csv:"customer_id" json:"customer_id"`
	Recency    int     `csv:"recency" json:"recency"`
	Frequency  int     `csv:"frequency" json:"frequency"`
	Monetary   float64 `csv:"monetary" json:"monetary"`
	R          int     `csv:"R" json:"r"`
	F          int     `csv:"F" json:"f"`
	M          int     `csv:"M" json:"m"`
	Score      int     `csv:"RFM_Score" json:"rfm_score"`
	Segment    string  `csv:"segment" json:"segment"`
}

// DropReport counts transaction rows removed by the cleaner, per reason.
type DropReport struct {
	NonPositiveQuantity int `json:"non_positive_quantity"`
	DiscountOutOfRange  int `json:"discount_out_of_range"`
	UnknownProduct      int `json:"unknown_product"`
}

func (d DropReport) Total() int {
	return d.NonPositiveQuantity + d.DiscountOutOfRange + d.UnknownProduct
}

// Dataset is the raw loader output.
type Dataset struct {
	Transactions []Transaction
	Customers    []Customer
	Products     []Product
	Stores       []Store
}

// Results holds every table the pipeline computes in a run.
type Results struct {
	RunID        string
	Clean        []CleanedTransaction
	Dropped      DropReport
	KPIs         []MonthlyKPI
	Forecast     Forecast
	RFM          []RFMRecord
	LoadedRows   int
	CustomerRows int
	StoreRows    int
}
