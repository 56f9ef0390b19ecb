package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Entry is one row in the run log.
type Entry struct {
	Timestamp time.Time
	Command   string
	Input     string
	Sheet     string
	Status    SheetStatus
	Detail    string
}

// Header is the CSV header of a run log.
const Header = "timestamp,command,input,sheet,status,detail"

const (
	numFields    = 6
	colTimestamp = 0
	colCommand   = 1
	colInput     = 2
	colSheet     = 3
	colStatus    = 4
	colDetail    = 5
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colCommand] = e.Command
	row[colInput] = e.Input
	row[colSheet] = e.Sheet
	row[colStatus] = string(e.Status)
	row[colDetail] = e.Detail
	return row
}

func parseEntry(row []string) (Entry, error) {
	if len(row) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(row))
	}
	ts, err := time.Parse(time.RFC3339, row[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", row[colTimestamp], err)
	}
	status := SheetStatus(row[colStatus])
	switch status {
	case SheetConverted, SheetSkipped, SheetFailed:
	default:
		return Entry{}, fmt.Errorf("unknown sheet status %q", row[colStatus])
	}
	return Entry{
		Timestamp: ts,
		Command:   row[colCommand],
		Input:     row[colInput],
		Sheet:     row[colSheet],
		Status:    status,
		Detail:    row[colDetail],
	}, nil
}

// EntriesFromOutcomes builds one log entry per sheet outcome of a run.
func EntriesFromOutcomes(at time.Time, command, input string, outcomes []Outcome) []Entry {
	entries := make([]Entry, len(outcomes))
	for i, o := range outcomes {
		entries[i] = Entry{
			Timestamp: at,
			Command:   command,
			Input:     input,
			Sheet:     o.Sheet,
			Status:    o.Status,
			Detail:    o.Detail(),
		}
	}
	return entries
}

// AppendLog adds one run's entries to the log at path. A new log gets its
// directory and header created first.
func AppendLog(path string, entries []Entry) (err error) {
	if len(entries) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating run log dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing run log: %w", cerr)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("inspecting run log: %w", err)
	}
	return writeEntries(f, info.Size() == 0, entries)
}

func writeEntries(w io.Writer, header bool, entries []Entry) error {
	cw := csv.NewWriter(w)
	if header {
		cw.Write(strings.Split(Header, ","))
	}
	for _, e := range entries {
		cw.Write(MarshalEntry(e))
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("writing run log: %w", err)
	}
	return nil
}

// ReadLog returns all entries of the run log at path, or nil if the file
// does not exist.
func ReadLog(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = numFields
	var entries []Entry
	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading run log: %w", err)
		}
		if line == 1 {
			continue
		}
		e, err := parseEntry(row)
		if err != nil {
			return nil, fmt.Errorf("run log line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
}
