package services

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"retail-analytics/internal/config"
	apperrors "retail-analytics/internal/errors"
	"retail-analytics/internal/models"
)

const (
	minDiscount = 0.0
	maxDiscount = 0.9
)

type Cleaner struct {
	unknownProductPolicy string
	logger               *zap.Logger
}

func NewCleaner(unknownProductPolicy string, logger *zap.Logger) *Cleaner {
	return &Cleaner{
		unknownProductPolicy: unknownProductPolicy,
		logger:               logger,
	}
}

// Clean filters invalid rows and recomputes line amounts from the product
// price list. Input order is preserved.
func (c *Cleaner) Clean(txs []models.Transaction, products []models.Product) ([]models.CleanedTransaction, models.DropReport, error) {
	prices := c.priceLookup(products)

	var report models.DropReport
	cleaned := make([]models.CleanedTransaction, 0, len(txs))

	for _, tx := range txs {
		if tx.Quantity <= 0 {
			report.NonPositiveQuantity++
			continue
		}
		if tx.DiscountPct < minDiscount || tx.DiscountPct > maxDiscount {
			report.DiscountOutOfRange++
			continue
		}

		price, ok := prices[tx.ProductID]
		if !ok {
			if c.unknownProductPolicy == config.PolicyFail {
				return nil, report, apperrors.UnknownProduct(tx.TransactionID, tx.ProductID)
			}
			c.logger.Warn("dropping transaction with unknown product",
				zap.String("transaction_id", tx.TransactionID),
				zap.String("product_id", tx.ProductID),
			)
			report.UnknownProduct++
			continue
		}

		amount := LineAmount(price, tx.Quantity, tx.DiscountPct)
		cleaned = append(cleaned, models.CleanedTransaction{
			Transaction:    tx,
			UnitPrice:      price,
			ComputedAmount: amount,
			Amount:         amount,
			Month:          tx.TransactionDate.MonthStart(),
		})
	}

	c.logger.Info("transactions cleaned",
		zap.Int("input", len(txs)),
		zap.Int("retained", len(cleaned)),
		zap.Int("non_positive_quantity", report.NonPositiveQuantity),
		zap.Int("discount_out_of_range", report.DiscountOutOfRange),
		zap.Int("unknown_product", report.UnknownProduct),
	)
	return cleaned, report, nil
}

// LineAmount is unitPrice × quantity × (1 − discount) rounded half away
// from zero to cents. The product is exact, so half-cent results round up
// where float half-to-even rounding would not: 10.05 at 50% off is 5.03.
func LineAmount(unitPrice float64, quantity int, discount float64) float64 {
	return decimal.NewFromFloat(unitPrice).
		Mul(decimal.NewFromInt(int64(quantity))).
		Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(discount))).
		Round(2).
		InexactFloat64()
}

func (c *Cleaner) priceLookup(products []models.Product) map[string]float64 {
	prices := make(map[string]float64, len(products))
	for _, p := range products {
		if _, dup := prices[p.ProductID]; dup {
			c.logger.Warn("duplicate product id, keeping last price", zap.String("product_id", p.ProductID))
		}
		prices[p.ProductID] = p.Price
	}
	return prices
}
