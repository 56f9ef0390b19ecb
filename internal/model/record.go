package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Item is one transaction row of a CategoryRecord. Keys keep insertion
// order so the JSON written matches the sheet's column order.
type Item struct {
	keys   []string
	values map[string]any
}

// NewItem returns an empty Item with capacity for n fields.
func NewItem(n int) Item {
	return Item{keys: make([]string, 0, n), values: make(map[string]any, n)}
}

// Set assigns v to key, appending the key if it is new.
func (it *Item) Set(key string, v any) {
	if it.values == nil {
		it.values = make(map[string]any)
	}
	if _, ok := it.values[key]; !ok {
		it.keys = append(it.keys, key)
	}
	it.values[key] = v
}

// Get returns the value stored under key.
func (it Item) Get(key string) (any, bool) {
	v, ok := it.values[key]
	return v, ok
}

// Keys returns the item's keys in order.
func (it Item) Keys() []string {
	return append([]string(nil), it.keys...)
}

// Len returns the number of keys.
func (it Item) Len() int { return len(it.keys) }

// MarshalJSON writes the item as an object in key order.
func (it Item) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range it.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeJSON(&buf, k); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := encodeJSON(&buf, it.values[k]); err != nil {
			return nil, fmt.Errorf("encoding %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object keeping the document's key order. Integral
// numbers decode to int64, other numbers to float64, and null to "".
func (it *Item) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("item must be a JSON object")
	}

	*it = NewItem(0)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected item key %v", tok)
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decoding %q: %w", key, err)
		}
		it.Set(key, normalizeJSONValue(raw))
	}
	_, err = dec.Token()
	return err
}

func normalizeJSONValue(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	default:
		return x
	}
}

func encodeJSON(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encode terminates with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// CategoryRecord is the canonical output for one sheet.
type CategoryRecord struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Color  string   `json:"color"`
	Fields []string `json:"fields"`
	Items  []Item   `json:"items"`
}

// Dataset is the document consumed by the tracking app.
type Dataset struct {
	Timestamp int64            `json:"timestamp"`
	Data      []CategoryRecord `json:"data"`
}
