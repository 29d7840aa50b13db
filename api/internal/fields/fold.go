package fields

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var keySeparators = strings.NewReplacer("_", "", "-", "", " ", "", ".", "", "\t", "")

// FoldText strips diacritics and case-folds s. Transformers are stateful, so
// a fresh chain is built per call.
func FoldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(strings.TrimSpace(out))
}

// FoldKey is FoldText with separators removed: "Etat-Initial" and
// "état_initial" fold to the same key.
func FoldKey(s string) string {
	return keySeparators.Replace(FoldText(s))
}
