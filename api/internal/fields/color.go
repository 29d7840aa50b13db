package fields

import (
	"regexp"
	"strings"
)

var (
	ralRe = regexp.MustCompile(`(?i)\bRAL\s*-?\s*(\d{4})\b`)
	hexRe = regexp.MustCompile(`#([0-9a-fA-F]{6}|[0-9a-fA-F]{3})\b`)
	ncsRe = regexp.MustCompile(`(?i)\b(?:NCS\s+)?S\s?(\d{4})-(N|[GYRB]\d{2}[GYRB]|[GYRB])\b`)
)

type ColorCode struct {
	System string // "RAL" | "HEX" | "NCS"
	Code   string
}

func (c ColorCode) String() string {
	switch c.System {
	case "RAL":
		return "RAL " + c.Code
	case "NCS":
		return "NCS S " + c.Code
	default:
		return c.Code
	}
}

// ParseColorCode finds the first known colour code in s. RAL is tried first as
// it is what filings usually carry.
func ParseColorCode(s string) (ColorCode, bool) {
	if m := ralRe.FindStringSubmatch(s); m != nil {
		return ColorCode{System: "RAL", Code: m[1]}, true
	}
	if m := ncsRe.FindStringSubmatch(s); m != nil {
		return ColorCode{System: "NCS", Code: m[1] + "-" + strings.ToUpper(m[2])}, true
	}
	if m := hexRe.FindStringSubmatch(s); m != nil {
		return ColorCode{System: "HEX", Code: "#" + strings.ToUpper(m[1])}, true
	}
	return ColorCode{}, false
}
