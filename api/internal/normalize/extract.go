package normalize

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// Strategy tells which rule located the object.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyFence
	StrategyBraces
)

func (s Strategy) String() string {
	switch s {
	case StrategyFence:
		return "fence"
	case StrategyBraces:
		return "braces"
	default:
		return "none"
	}
}

// Extraction is a candidate JSON object, or the "no JSON found" marker when
// Found is false.
type Extraction struct {
	Object   map[string]any
	Found    bool
	Strategy Strategy
}

// maxCandidates bounds how many brace-delimited objects are tried per text.
const maxCandidates = 32

var fenceRe = regexp.MustCompile("(?is)```[ \\t]*json[ \\t]*\\r?\\n?(.*?)(?:```|\\z)")

// Extract pulls the first parseable JSON object out of text. A fenced block
// labelled json is preferred; otherwise the first balanced top-level object
// that parses wins. It never fails: unusable input yields the marker.
func Extract(text string) Extraction {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		if obj, ok := decodeObject(m[1]); ok {
			return Extraction{Object: obj, Found: true, Strategy: StrategyFence}
		}
		if obj, ok := scanObjects(m[1]); ok {
			return Extraction{Object: obj, Found: true, Strategy: StrategyFence}
		}
	}
	if obj, ok := scanObjects(text); ok {
		return Extraction{Object: obj, Found: true, Strategy: StrategyBraces}
	}
	return Extraction{}
}

// scanObjects walks balanced top-level {...} spans, ignoring braces inside
// string literals, and returns the first one that decodes.
func scanObjects(s string) (map[string]any, bool) {
	from := 0
	for tries := 0; tries < maxCandidates; tries++ {
		i := strings.IndexByte(s[from:], '{')
		if i < 0 {
			return nil, false
		}
		start := from + i
		end := matchBrace(s, start)
		if end < 0 {
			// Unbalanced: an inner object may still close.
			from = start + 1
			continue
		}
		if obj, ok := decodeObject(s[start : end+1]); ok {
			return obj, true
		}
		from = end + 1
	}
	return nil, false
}

// matchBrace returns the index of the '}' closing the '{' at start, or -1.
func matchBrace(s string, start int) int {
	depth := 0
	inStr, esc := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func decodeObject(s string) (map[string]any, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	if !gjson.Valid(s) {
		s = stripTrailingCommas(s)
		if !gjson.Valid(s) {
			return nil, false
		}
	}
	var obj map[string]any
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// stripTrailingCommas drops commas directly before '}' or ']' outside strings.
func stripTrailingCommas(s string) string {
	var b bytes.Buffer
	b.Grow(len(s))
	inStr, esc := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			b.WriteByte(c)
			continue
		}
		if c == '"' {
			inStr = true
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\n' || s[j] == '\r' || s[j] == '\t') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}
