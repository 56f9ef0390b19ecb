package report

import (
	"fmt"
	"io"
)

// SheetStatus is the outcome of one sheet.
type SheetStatus string

const (
	SheetConverted SheetStatus = "converted"
	SheetSkipped   SheetStatus = "skipped"
	SheetFailed    SheetStatus = "failed"
)

// Outcome records what happened to one sheet during a run.
type Outcome struct {
	Sheet        string
	Status       SheetStatus
	Err          error // set when Status is SheetFailed
	Reason       string
	RowsIn       int
	RowsKept     int
	BlankDropped int
	DeadDropped  int
	Fallbacks    int
}

// Detail returns a one-line description for logs and summaries.
func (o Outcome) Detail() string {
	switch o.Status {
	case SheetFailed:
		if o.Err != nil {
			return o.Err.Error()
		}
		return o.Reason
	case SheetSkipped:
		return o.Reason
	default:
		return fmt.Sprintf("%d of %d rows kept (%d blank, %d without anchor), %d fallback value(s)",
			o.RowsKept, o.RowsIn, o.BlankDropped, o.DeadDropped, o.Fallbacks)
	}
}

// RunStatus aggregates sheet outcomes.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunPartial RunStatus = "partial"
	RunFailed  RunStatus = "failed"
)

// Summary is the end-of-run report.
type Summary struct {
	Status    RunStatus
	Converted int
	Skipped   int
	Failed    int
	RowsKept  int
	Dropped   int
	Fallbacks int
	Warnings  []string
}

// Summarize aggregates outcomes. A run with no failures succeeds, one with
// failures and at least one conversion is partial, otherwise it failed.
// Skipped sheets never count as failures.
func Summarize(outcomes []Outcome) Summary {
	var s Summary
	for _, o := range outcomes {
		switch o.Status {
		case SheetConverted:
			s.Converted++
			s.RowsKept += o.RowsKept
			s.Dropped += o.BlankDropped + o.DeadDropped
			s.Fallbacks += o.Fallbacks
			if o.Fallbacks > 0 {
				s.Warnings = append(s.Warnings, fmt.Sprintf("sheet %q: %d value(s) replaced by defaults", o.Sheet, o.Fallbacks))
			}
		case SheetSkipped:
			s.Skipped++
		case SheetFailed:
			s.Failed++
			s.Warnings = append(s.Warnings, o.Detail())
		}
	}

	switch {
	case s.Failed == 0:
		s.Status = RunSuccess
	case s.Converted > 0:
		s.Status = RunPartial
	default:
		s.Status = RunFailed
	}
	return s
}

// Write renders the summary for humans.
func (s Summary) Write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Status: %s\n", s.Status); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Sheets: %d converted, %d skipped, %d failed\n", s.Converted, s.Skipped, s.Failed); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Rows: %d kept, %d dropped, %d fallback value(s)\n", s.RowsKept, s.Dropped, s.Fallbacks); err != nil {
		return err
	}
	if len(s.Warnings) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Warnings:"); err != nil {
		return err
	}
	for _, warn := range s.Warnings {
		if _, err := fmt.Fprintf(w, "  - %s\n", warn); err != nil {
			return err
		}
	}
	return nil
}
