package export

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	apperrors "retail-analytics/internal/errors"
	"retail-analytics/internal/models"
	"retail-analytics/internal/observability"
)

const (
	CleanTransactionsFile = "clean_transactions.parquet"
	KPIsMonthlyFile       = "kpis_monthly.csv"
	ForecastFile          = "forecast_next_month.csv"
	RFMScoresFile         = "rfm_scores.csv"
	WorkbookFile          = "retail_analysis_outputs.xlsx"
)

// Step writes one or more extra artifacts into the staging directory.
type Step struct {
	Name  string
	Write func(ctx context.Context, dir string) error
}

type Exporter struct {
	outDir string
	logger *zap.Logger
	rename func(oldpath, newpath string) error
}

func NewExporter(outDir string, logger *zap.Logger) *Exporter {
	return &Exporter{outDir: outDir, logger: logger, rename: os.Rename}
}

// Export writes every output into a staging directory beside outDir and
// moves the files into outDir only after all of them were written. On
// error outDir is left untouched.
func (e *Exporter) Export(ctx context.Context, res *models.Results, extra ...Step) ([]string, error) {
	ctx, span := observability.StartSpan(ctx, "export")
	files, err := e.export(ctx, res, extra)
	observability.FinishSpan(span, err)
	return files, err
}

func (e *Exporter) export(ctx context.Context, res *models.Results, extra []Step) ([]string, error) {
	parent := filepath.Dir(filepath.Clean(e.outDir))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, apperrors.ExportWrap(err, "create output parent directory")
	}

	staging, err := os.MkdirTemp(parent, ".staging-"+filepath.Base(e.outDir)+"-*")
	if err != nil {
		return nil, apperrors.ExportWrap(err, "create staging directory")
	}
	defer os.RemoveAll(staging)

	steps := append([]Step{
		{Name: "clean_transactions", Write: func(_ context.Context, dir string) error {
			return writeParquet(filepath.Join(dir, CleanTransactionsFile), cleanRows(res.Clean))
		}},
		{Name: "kpis_monthly", Write: func(_ context.Context, dir string) error {
			return writeCSV(filepath.Join(dir, KPIsMonthlyFile), &res.KPIs)
		}},
		{Name: "forecast", Write: func(_ context.Context, dir string) error {
			return writeCSV(filepath.Join(dir, ForecastFile), &[]models.Forecast{res.Forecast})
		}},
		{Name: "rfm_scores", Write: func(_ context.Context, dir string) error {
			return writeCSV(filepath.Join(dir, RFMScoresFile), &res.RFM)
		}},
		{Name: "workbook", Write: func(_ context.Context, dir string) error {
			return writeWorkbook(filepath.Join(dir, WorkbookFile), res)
		}},
	}, extra...)

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.ExportWrap(err, "export cancelled")
		}
		start := time.Now()
		if err := step.Write(ctx, staging); err != nil {
			return nil, apperrors.ExportWrap(err, "write "+step.Name)
		}
		e.logger.Debug("artifact staged", zap.String("artifact", step.Name), zap.Duration("duration", time.Since(start)))
	}

	return e.commit(staging)
}

// commit moves the staged files into outDir. Files it replaces are parked
// in a backup directory; if any move fails, every file already moved is
// taken back out and the parked originals are restored.
func (e *Exporter) commit(staging string) ([]string, error) {
	entries, err := os.ReadDir(staging)
	if err != nil {
		return nil, apperrors.ExportWrap(err, "list staged files")
	}

	_, statErr := os.Stat(e.outDir)
	createdOutDir := os.IsNotExist(statErr)
	if err := os.MkdirAll(e.outDir, 0o755); err != nil {
		return nil, apperrors.ExportWrap(err, "create output directory")
	}

	backup, err := os.MkdirTemp(filepath.Dir(staging), ".backup-"+filepath.Base(e.outDir)+"-*")
	if err != nil {
		return nil, apperrors.ExportWrap(err, "create backup directory")
	}
	defer os.RemoveAll(backup)

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		dst := filepath.Join(e.outDir, name)
		if err := e.replace(filepath.Join(staging, name), dst, filepath.Join(backup, name)); err != nil {
			e.rollback(files, backup, createdOutDir)
			return nil, apperrors.ExportWrap(err, "commit "+name)
		}
		files = append(files, dst)
	}

	e.logger.Info("outputs committed", zap.String("out_dir", e.outDir), zap.Int("files", len(files)))
	return files, nil
}

func (e *Exporter) replace(src, dst, parked string) error {
	if err := e.rename(dst, parked); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := e.rename(src, dst); err != nil {
		if _, statErr := os.Stat(parked); statErr == nil {
			_ = e.rename(parked, dst)
		}
		return err
	}
	return nil
}

func (e *Exporter) rollback(committed []string, backup string, removeOutDir bool) {
	for _, dst := range committed {
		if err := os.Remove(dst); err != nil {
			e.logger.Warn("rollback: remove committed file", zap.String("file", dst), zap.Error(err))
			continue
		}
		parked := filepath.Join(backup, filepath.Base(dst))
		if _, err := os.Stat(parked); err != nil {
			continue
		}
		if err := e.rename(parked, dst); err != nil {
			e.logger.Warn("rollback: restore previous file", zap.String("file", dst), zap.Error(err))
		}
	}
	if removeOutDir {
		_ = os.Remove(e.outDir)
	}
}
