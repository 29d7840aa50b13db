package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"dp-normalizer/api/internal/fields"
)

// ValidationError names the fields that kept a record from being complete.
type ValidationError struct {
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}
	return "incomplete record: " + strings.Join(parts, "; ")
}

// Validate returns a complete record or a *ValidationError. Absent and blank
// fields are missing; values that cannot be read as the field's kind are
// invalid. Defaults are never substituted.
func Validate(flat FlatRecord, s *fields.Schema) (fields.Record, error) {
	rec := make(fields.Record, s.Len())
	var verr ValidationError
	for _, f := range s.Fields() {
		raw, ok := flat.Values[f.Name]
		if !ok || raw == nil {
			verr.Missing = append(verr.Missing, f.Name)
			continue
		}
		v, ok := coerceText(raw)
		if !ok {
			verr.Invalid = append(verr.Invalid, f.Name)
			continue
		}
		if v == "" {
			verr.Missing = append(verr.Missing, f.Name)
			continue
		}
		if f.Kind == fields.Category {
			c, ok := f.MatchChoice(v)
			if !ok {
				verr.Invalid = append(verr.Invalid, f.Name)
				continue
			}
			v = c
		}
		// Colour values are kept as written; a recognised code is a bonus
		// read by ParseColorCode, not a requirement.
		rec[f.Name] = v
	}
	if len(verr.Missing) > 0 || len(verr.Invalid) > 0 {
		return nil, &verr
	}
	return rec, nil
}

// coerceText renders a JSON scalar, or an array of scalars, as text.
func coerceText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		if t {
			return "oui", true
		}
		return "non", true
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if e == nil {
				continue
			}
			if _, ok := e.([]any); ok {
				return "", false
			}
			s, ok := coerceText(e)
			if !ok {
				return "", false
			}
			if s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", "), true
	case map[string]any:
		return "", false
	default:
		return fmt.Sprint(t), true
	}
}
