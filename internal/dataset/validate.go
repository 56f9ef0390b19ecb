package dataset

import (
	"fmt"
	"math"
	"regexp"

	"github.com/expensebook/sheetsync/internal/model"
)

// ValidationError describes a single violated dataset rule.
type ValidationError struct {
	Rule        string
	RecordID    string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Rule, e.RecordID, e.Description)
}

// Rule names reported in ValidationError.
const (
	RuleUniqueID    = "unique-id"
	RuleColor       = "color"
	RuleUniqueField = "unique-field"
	RuleFieldKey    = "field-key"
	RuleNullValue   = "null-value"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Validate checks the invariants the tracking app relies on: unique
// record ids, #RRGGBB colors, unique field names, item keys drawn from
// fields and no null or NaN values.
func Validate(ds model.Dataset) []ValidationError {
	var errs []ValidationError

	ids := make(map[string]int)
	for i, rec := range ds.Data {
		if rec.ID == "" {
			errs = append(errs, ValidationError{
				Rule:        RuleUniqueID,
				RecordID:    fmt.Sprintf("#%d", i),
				Description: "record has no id",
			})
		} else if first, dup := ids[rec.ID]; dup {
			errs = append(errs, ValidationError{
				Rule:        RuleUniqueID,
				RecordID:    rec.ID,
				Description: fmt.Sprintf("records %d and %d share an id", first, i),
			})
		} else {
			ids[rec.ID] = i
		}

		if !colorPattern.MatchString(rec.Color) {
			errs = append(errs, ValidationError{
				Rule:        RuleColor,
				RecordID:    rec.ID,
				Description: fmt.Sprintf("color %q is not #RRGGBB", rec.Color),
			})
		}

		fields := make(map[string]bool, len(rec.Fields))
		for _, f := range rec.Fields {
			if fields[f] {
				errs = append(errs, ValidationError{
					Rule:        RuleUniqueField,
					RecordID:    rec.ID,
					Description: fmt.Sprintf("field %q listed twice", f),
				})
			}
			fields[f] = true
		}

		for j, item := range rec.Items {
			for _, k := range item.Keys() {
				if !fields[k] {
					errs = append(errs, ValidationError{
						Rule:        RuleFieldKey,
						RecordID:    rec.ID,
						Description: fmt.Sprintf("item %d key %q is not a field", j, k),
					})
				}
				v, _ := item.Get(k)
				if isNull(v) {
					errs = append(errs, ValidationError{
						Rule:        RuleNullValue,
						RecordID:    rec.ID,
						Description: fmt.Sprintf("item %d key %q has no value", j, k),
					})
				}
			}
		}
	}

	return errs
}

func isNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x) || math.IsInf(x, 0)
	}
	return false
}
