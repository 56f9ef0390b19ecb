package model

import (
	"errors"
	"fmt"
)

// Run-level failures. Only ErrSourceUnreadable, ErrSchemaViolation,
// ErrSinkUnwritable and ErrConfigInvalid abort a run.
var (
	ErrSourceUnavailable = errors.New("no input provided")
	ErrSourceUnreadable  = errors.New("input is not readable")
	ErrSchemaViolation   = errors.New("input does not match the dataset schema")
	ErrSinkUnwritable    = errors.New("output cannot be written")
	ErrConfigInvalid     = errors.New("invalid configuration")
	ErrSheetProcessing   = errors.New("sheet cannot be processed")
)

// SheetError reports why a single sheet was skipped. It matches
// ErrSheetProcessing with errors.Is.
type SheetError struct {
	Sheet  string
	Reason string
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("sheet %q: %s", e.Sheet, e.Reason)
}

// Is makes errors.Is(err, ErrSheetProcessing) hold for any SheetError.
func (e *SheetError) Is(target error) bool {
	return target == ErrSheetProcessing
}

// NewSheetError builds a SheetError with a formatted reason.
func NewSheetError(sheet, format string, args ...any) error {
	return &SheetError{Sheet: sheet, Reason: fmt.Sprintf(format, args...)}
}
