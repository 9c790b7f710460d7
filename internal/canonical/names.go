package canonical

import (
	"strconv"
	"strings"

	"github.com/loyd0/LoydFam-sub000/internal/workbook"
)

// DefaultSourceTag prefixes external keys when no tag is configured.
const DefaultSourceTag = "FAM"

// NaturalID normalizes a spreadsheet identifier cell. Numeric ids such as
// 12.0 render as "12"; text ids are trimmed, whitespace-collapsed and upper-cased.
func NaturalID(v any) string {
	s := workbook.FormatValue(v)
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// ExternalKey builds the stable identity of a person from a source tag and id.
func ExternalKey(tag, id string) string {
	if tag == "" {
		tag = DefaultSourceTag
	}
	return tag + ":" + id
}

// PlaceholderKey derives the key of a synthesized spouse from its partner's key.
func PlaceholderKey(ownerKey string) string {
	return ownerKey + ":SPOUSE"
}

// DisplayName synthesizes "<given> (<id>) <birth>-<death>". Unknown years
// render as "?" and the suffix is dropped when neither year is known.
func DisplayName(given, id string, birth, death *int) string {
	given = strings.TrimSpace(given)
	if given == "" {
		given = "Unknown"
	}

	var b strings.Builder
	b.WriteString(given)
	if id != "" {
		b.WriteString(" (")
		b.WriteString(id)
		b.WriteString(")")
	}
	if birth == nil && death == nil {
		return b.String()
	}
	b.WriteString(" ")
	b.WriteString(yearOrUnknown(birth))
	b.WriteString("-")
	b.WriteString(yearOrUnknown(death))
	return b.String()
}

func yearOrUnknown(y *int) string {
	if y == nil {
		return "?"
	}
	return strconv.Itoa(*y)
}

// SplitFullName breaks free text such as "Mary Anne Smith" into given names
// and surname. A single token is treated as a given name.
func SplitFullName(full string) (given []string, surname string) {
	fields := strings.Fields(full)
	switch len(fields) {
	case 0:
		return nil, ""
	case 1:
		return fields, ""
	default:
		return fields[:len(fields)-1], fields[len(fields)-1]
	}
}

// optional returns nil for blank text.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optionalInt(v any) *int {
	switch t := v.(type) {
	case float64:
		if t != float64(int64(t)) {
			return nil
		}
		n := int(t)
		return &n
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return nil
		}
		return &n
	default:
		return nil
	}
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// splitList separates multi-valued contact text on semicolons, commas and newlines.
func splitList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == ',' || r == '\n' || r == '\r'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitAddresses separates postal addresses, which contain commas themselves.
func splitAddresses(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == '\n' || r == '\r'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
