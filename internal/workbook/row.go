package workbook

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gowebpki/jcs"
)

// Cell is one keyed value of a row. Value is nil, string or float64.
type Cell struct {
	Key   string
	Value any
}

// Row is an ordered key/value view of one spreadsheet row. Cells missing from
// the sheet are present with a nil value.
type Row struct {
	// Index is the 1-based spreadsheet row number.
	Index int
	Cells []Cell
}

// Get looks a column up by header, ignoring case and surrounding whitespace.
func (r Row) Get(key string) (any, bool) {
	want := normalizeKey(key)
	for _, c := range r.Cells {
		if normalizeKey(c.Key) == want {
			return c.Value, true
		}
	}
	return nil, false
}

// String returns the trimmed textual form of a column, or "" when absent or null.
func (r Row) String(key string) string {
	v, ok := r.Get(key)
	if !ok {
		return ""
	}
	return FormatValue(v)
}

// First returns the first non-empty value among the candidate headers.
func (r Row) First(keys ...string) any {
	for _, k := range keys {
		if v, ok := r.Get(k); ok && v != nil {
			return v
		}
	}
	return nil
}

// IsBlank reports whether every cell is null.
func (r Row) IsBlank() bool {
	for _, c := range r.Cells {
		if c.Value != nil {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the row as an object preserving column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.Cells {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(c.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Hash digests the canonical (RFC 8785) form of the row payload.
func (r Row) Hash() (string, error) {
	payload, err := r.MarshalJSON()
	if err != nil {
		return "", err
	}
	return HashPayload(payload)
}

// HashPayload digests the canonical (RFC 8785) form of a JSON document.
func HashPayload(payload []byte) (string, error) {
	canonical, err := jcs.Transform(payload)
	if err != nil {
		return "", fmt.Errorf("canonicalize row: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// FormatValue renders a cell value as trimmed text. Integral numbers print
// without a fractional part so "12" and 12.0 agree.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.Join(strings.Fields(k), " "))
}

// convertCell maps raw cell text to nil, float64 or string.
func convertCell(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	// Leading zeros carry meaning (phone numbers, padded ids).
	if len(s) > 1 && s[0] == '0' && s[1] != '.' {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || strings.ContainsAny(s, "eEnNiI") {
		return s
	}
	return f
}
