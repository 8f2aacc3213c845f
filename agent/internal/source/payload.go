package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// item is one JSON object of an upstream response, keyed by field name.
type item map[string]json.RawMessage

// decodeItems parses body as an array of objects. A single top-level object
// is accepted as a one-element array.
func decodeItems(body []byte) ([]item, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty body")
	}

	switch trimmed[0] {
	case '{':
		var it item
		if err := json.Unmarshal(trimmed, &it); err != nil {
			return nil, fmt.Errorf("decode object: %w", err)
		}
		return []item{it}, nil
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("decode array: %w", err)
		}
		items := make([]item, 0, len(raw))
		for i, r := range raw {
			var it item
			if err := json.Unmarshal(r, &it); err != nil || it == nil {
				return nil, fmt.Errorf("element %d is not an object", i)
			}
			items = append(items, it)
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected a JSON array or object")
	}
}

// lookup returns the first field matching one of keys. An exact-case match
// wins; otherwise names are compared case-insensitively in sorted order, so
// the result does not depend on map iteration. JSON null counts as absent.
func (it item) lookup(keys ...string) (json.RawMessage, bool) {
	var names []string
	for _, k := range keys {
		raw, ok := it[k]
		if !ok {
			if names == nil {
				names = it.names()
			}
			for _, name := range names {
				if strings.EqualFold(name, k) {
					raw, ok = it[name], true
					break
				}
			}
		}
		if !ok {
			continue
		}
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return nil, false
		}
		return raw, true
	}
	return nil, false
}

func (it item) names() []string {
	names := make([]string, 0, len(it))
	for name := range it {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// str returns a string field. Numbers are accepted and kept in their JSON
// spelling. Absent fields yield "".
func (it item) str(keys ...string) (string, error) {
	raw, ok := it.lookup(keys...)
	if !ok {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("field %s: expected string, got %s", keys[0], raw)
}

// num returns a numeric field. JSON numbers and numeric strings are
// accepted; an absent field or a string that is not a number yields NaN so
// the record can be dropped downstream. Other JSON types are an error.
func (it item) num(parse func(string) (float64, bool), keys ...string) (float64, error) {
	raw, ok := it.lookup(keys...)
	if !ok {
		return math.NaN(), nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, ok := parse(s); ok {
			return v, nil
		}
		return math.NaN(), nil
	}
	return 0, fmt.Errorf("field %s: expected number, got %s", keys[0], raw)
}

// parseDecimal parses the leading number of s, as in "3.5 Ml" or "12 km".
// A lone comma is read as the decimal separator; when both separators are
// present the Chilean convention applies (dot groups thousands).
func parseDecimal(s string) (float64, bool) {
	s = leadingToken(s)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
		}
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// thousandsGrouped matches an integer written with dot-grouped thousands,
// such as "65.443" or "1.234.567".
var thousandsGrouped = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+$`)

// parseCLP parses an amount written in Chilean notation, where the dot
// groups thousands and the comma separates decimals: "36.123,45". Without a
// comma, a dot is a thousands separator only in the "65.443" shape;
// otherwise it is the decimal point, so "950.12" reads as 950.12.
func parseCLP(s string) (float64, bool) {
	s = leadingToken(s)
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return 0, false
	}
	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case thousandsGrouped.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func leadingToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
