package loader

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gocarina/gocsv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apperrors "retail-analytics/internal/errors"
	"retail-analytics/internal/models"
)

const (
	TransactionsFile = "transactions.csv"
	CustomersFile    = "customers.csv"
	ProductsFile     = "products.csv"
	StoresFile       = "stores.csv"
)

var utf8BOM = []byte("\xef\xbb\xbf")

var (
	transactionColumns = []string{"transaction_id", "customer_id", "product_id", "transaction_date", "quantity", "discount_pct"}
	customerColumns    = []string{"customer_id", "signup_date"}
	productColumns     = []string{"product_id", "price"}
)

type Loader struct {
	dataDir string
	logger  *zap.Logger
}

func New(dataDir string, logger *zap.Logger) *Loader {
	return &Loader{dataDir: dataDir, logger: logger}
}

// Load reads the four input tables. Files are read concurrently; the
// first failure cancels the rest and is returned as a MissingInput error.
func (l *Loader) Load(ctx context.Context) (*models.Dataset, error) {
	ds := &models.Dataset{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return readTable(ctx, l.path(TransactionsFile), transactionColumns, &ds.Transactions)
	})
	g.Go(func() error {
		return readTable(ctx, l.path(CustomersFile), customerColumns, &ds.Customers)
	})
	g.Go(func() error {
		return readTable(ctx, l.path(ProductsFile), productColumns, &ds.Products)
	})
	g.Go(func() error {
		stores, err := readStores(ctx, l.path(StoresFile))
		ds.Stores = stores
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	l.logger.Info("inputs loaded",
		zap.String("data_dir", l.dataDir),
		zap.Int("transactions", len(ds.Transactions)),
		zap.Int("customers", len(ds.Customers)),
		zap.Int("products", len(ds.Products)),
		zap.Int("stores", len(ds.Stores)),
	)
	return ds, nil
}

func (l *Loader) path(name string) string {
	return filepath.Join(l.dataDir, name)
}

func readTable[T any](ctx context.Context, path string, required []string, out *[]T) error {
	data, err := readInput(ctx, path)
	if err != nil {
		return err
	}

	if err := checkRequired(data, required); err != nil {
		return apperrors.MissingInputWrap(err, "malformed input "+filepath.Base(path))
	}

	var rows []T
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return apperrors.MissingInputWrap(err, "malformed input "+filepath.Base(path))
	}
	*out = rows
	return nil
}

func readStores(ctx context.Context, path string) ([]models.Store, error) {
	data, err := readInput(ctx, path)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(data))
	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.MissingInputWrap(err, "malformed input "+filepath.Base(path))
	}

	var stores []models.Store
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.MissingInputWrap(err, "malformed input "+filepath.Base(path))
		}
		store := make(models.Store, len(header))
		for i, col := range header {
			if i < len(record) {
				store[strings.TrimSpace(col)] = record[i]
			}
		}
		stores = append(stores, store)
	}
	return stores, nil
}

func readInput(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.MissingInputWrap(err, "cannot read "+filepath.Base(path))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, apperrors.MissingInput("empty input " + filepath.Base(path))
	}
	return bytes.TrimPrefix(data, utf8BOM), nil
}

// checkRequired verifies that every required column is present and that
// no row leaves one of them blank. gocsv reads a blank numeric cell as
// zero, so blanks have to be caught before it sees the bytes.
func checkRequired(data []byte, required []string) error {
	reader := csv.NewReader(bytes.NewReader(data))
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(required))
	var missing []string
	for _, col := range required {
		i := slices.Index(header, col)
		if i < 0 {
			missing = append(missing, col)
			continue
		}
		index[col] = i
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}

	for row := 1; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("row %d: %w", row, err)
		}
		for _, col := range required {
			if strings.TrimSpace(record[index[col]]) == "" {
				return fmt.Errorf("row %d: blank %s", row, col)
			}
		}
	}
}
