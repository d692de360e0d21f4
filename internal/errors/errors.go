package errors

import (
	stderrors "errors"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

type ErrorCode string

const (
	CodeInternal               ErrorCode = "INTERNAL_ERROR"
	CodeValidation             ErrorCode = "VALIDATION_ERROR"
	CodeMissingInput           ErrorCode = "MISSING_INPUT"
	CodeUnknownProduct         ErrorCode = "UNKNOWN_PRODUCT_REFERENCE"
	CodeEmptyKPISeries         ErrorCode = "EMPTY_KPI_SERIES"
	CodeDegenerateDistribution ErrorCode = "DEGENERATE_DISTRIBUTION"
	CodeExportFailed           ErrorCode = "EXPORT_FAILED"
)

type AppError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Cause     error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails returns e with Details set.
func (e *AppError) WithDetails(format string, args ...any) *AppError {
	e.Details = fmt.Sprintf(format, args...)
	return e
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Cause:     pkgerrors.WithStack(err),
		Timestamp: time.Now().UTC(),
	}
}

func InternalWrap(err error, message string) *AppError {
	return Wrap(err, CodeInternal, message)
}

func Validation(message string) *AppError {
	return New(CodeValidation, message)
}

func MissingInput(message string) *AppError {
	return New(CodeMissingInput, message)
}

func MissingInputWrap(err error, message string) *AppError {
	return Wrap(err, CodeMissingInput, message)
}

func UnknownProduct(transactionID, productID string) *AppError {
	return New(CodeUnknownProduct, "transaction references unknown product").
		WithDetails("transaction_id=%s product_id=%s", transactionID, productID)
}

func EmptyKPISeries(message string) *AppError {
	return New(CodeEmptyKPISeries, message)
}

func DegenerateDistribution(metric, reason string) *AppError {
	return New(CodeDegenerateDistribution, "cannot split "+metric+" into quintiles").
		WithDetails("%s", reason)
}

func ExportWrap(err error, message string) *AppError {
	return Wrap(err, CodeExportFailed, message)
}

// CodeOf reports the code of the first AppError in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

func Is(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch CodeOf(err) {
	case CodeValidation:
		return 2
	case CodeMissingInput:
		return 3
	case CodeUnknownProduct, CodeEmptyKPISeries, CodeDegenerateDistribution:
		return 4
	case CodeExportFailed:
		return 5
	default:
		return 1
	}
}

// Log writes err to logger with its code and details.
func Log(logger *zap.Logger, err error, runID string) {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		appErr = InternalWrap(err, "An unexpected error occurred")
	}
	appErr.RunID = runID

	level := zap.ErrorLevel
	if appErr.Code == CodeValidation {
		level = zap.WarnLevel
	}

	if ce := logger.Check(level, "pipeline failed"); ce != nil {
		ce.Write(
			zap.String("error_code", string(appErr.Code)),
			zap.String("error_message", appErr.Message),
			zap.String("details", appErr.Details),
			zap.String("run_id", runID),
			zap.Int("exit_code", ExitCode(appErr)),
			zap.Error(appErr.Cause),
		)
	}
}
