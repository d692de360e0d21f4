package models

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// Date is a calendar date read from and written to CSV cells.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{t.UTC()}, nil
		}
	}
	return Date{}, fmt.Errorf("unrecognised date %q", s)
}

func (d *Date) UnmarshalCSV(s string) error {
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalCSV() (string, error) {
	return d.String(), nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// MonthStart returns the first calendar day of the date's month.
func (d Date) MonthStart() Date {
	return Date{time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)}
}

// DaysUntil counts whole days from d to later, ignoring time of day.
func (d Date) DaysUntil(later Date) int {
	from := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(later.Year(), later.Month(), later.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

type Transaction struct {
	TransactionID   string  `csv:"transaction_id"`
	CustomerID      string  `csv:"customer_id"`
	ProductID       string  `csv:"product_id"`
	TransactionDate Date    `csv:"transaction_date"`
	Quantity        int     `csv:"quantity"`
	DiscountPct     float64 `csv:"discount_pct"`
}

type Customer struct {
	CustomerID string `csv:"customer_id"`
	SignupDate Date   `csv:"signup_date"`
}

type Product struct {
	ProductID string  `csv:"product_id"`
	Price     float64 `csv:"price"`
}

// Store rows are kept keyed by header; no stage consumes them yet.
type Store map[string]string

type CleanedTransaction struct {
	Transaction
	UnitPrice      float64
	ComputedAmount float64
	Amount         float64
	Month          Date
}
