package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/tidwall/gjson"

	"github.com/expensebook/sheetsync/internal/model"
)

// Encode writes ds as indented JSON with non-ASCII and HTML characters
// left unescaped.
func Encode(w io.Writer, ds model.Dataset) error {
	if ds.Data == nil {
		ds.Data = []model.CategoryRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(ds); err != nil {
		return fmt.Errorf("encoding dataset: %w", err)
	}
	return nil
}

// Decode reads a wrapped dataset. A document that is not JSON wraps
// model.ErrSourceUnreadable; one without a top-level "data" array,
// including a bare legacy array, wraps model.ErrSchemaViolation.
func Decode(r io.Reader) (model.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.Dataset{}, fmt.Errorf("%w: %w", model.ErrSourceUnreadable, err)
	}
	ds, _, err := decode(data, false)
	return ds, err
}

// DecodeLenient reads either the wrapped form or a legacy bare array of
// records. legacy reports which form was found; legacy documents get a
// zero timestamp.
func DecodeLenient(r io.Reader) (ds model.Dataset, legacy bool, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.Dataset{}, false, fmt.Errorf("%w: %w", model.ErrSourceUnreadable, err)
	}
	return decode(data, true)
}

func decode(data []byte, allowLegacy bool) (model.Dataset, bool, error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	if !gjson.ValidBytes(data) {
		return model.Dataset{}, false, fmt.Errorf("%w: not a JSON document", model.ErrSourceUnreadable)
	}

	doc := gjson.ParseBytes(data)
	switch {
	case doc.IsArray() && allowLegacy:
		var records []model.CategoryRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return model.Dataset{}, false, fmt.Errorf("%w: %w", model.ErrSchemaViolation, err)
		}
		return model.Dataset{Data: nonNil(records)}, true, nil
	case doc.IsArray():
		return model.Dataset{}, false, fmt.Errorf(`%w: top-level array found, expected an object with a "data" key`, model.ErrSchemaViolation)
	case !doc.IsObject():
		return model.Dataset{}, false, fmt.Errorf("%w: top-level value must be an object", model.ErrSchemaViolation)
	}

	records := doc.Get("data")
	if !records.Exists() {
		return model.Dataset{}, false, fmt.Errorf(`%w: missing required "data" key`, model.ErrSchemaViolation)
	}
	if !records.IsArray() {
		return model.Dataset{}, false, fmt.Errorf(`%w: "data" must be an array`, model.ErrSchemaViolation)
	}
	if ts := doc.Get("timestamp"); ts.Exists() && ts.Type != gjson.Number {
		return model.Dataset{}, false, fmt.Errorf(`%w: "timestamp" must be a number`, model.ErrSchemaViolation)
	}

	var ds model.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return model.Dataset{}, false, fmt.Errorf("%w: %w", model.ErrSchemaViolation, err)
	}
	ds.Data = nonNil(ds.Data)
	return ds, false, nil
}

func nonNil(records []model.CategoryRecord) []model.CategoryRecord {
	if records == nil {
		return []model.CategoryRecord{}
	}
	return records
}

// Load reads a wrapped dataset from path.
func Load(path string) (model.Dataset, error) {
	f, err := open(path)
	if err != nil {
		return model.Dataset{}, err
	}
	defer f.Close()
	return Decode(f)
}

// LoadLenient reads a wrapped or legacy dataset from path.
func LoadLenient(path string) (model.Dataset, bool, error) {
	f, err := open(path)
	if err != nil {
		return model.Dataset{}, false, err
	}
	defer f.Close()
	return DecodeLenient(f)
}

func open(path string) (*os.File, error) {
	if path == "" {
		return nil, model.ErrSourceUnavailable
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrSourceUnreadable, err)
	}
	return f, nil
}

// Save writes ds to path. Failures wrap model.ErrSinkUnwritable.
func Save(path string, ds model.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrSinkUnwritable, err)
	}
	if err := Encode(f, ds); err != nil {
		f.Close()
		return fmt.Errorf("%w: %w", model.ErrSinkUnwritable, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", model.ErrSinkUnwritable, err)
	}
	return nil
}
