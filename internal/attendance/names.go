package attendance

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// nameSeparators are punctuation marks treated as spaces when comparing names.
var nameSeparators = strings.NewReplacer("-", " ", "_", " ", ".", " ")

// foldName reduces a name to its comparison form: accents stripped, lower
// case, separators and runs of whitespace collapsed to single spaces.
// "  Zoë  Jean-Luc " and "zoe jean luc" fold to the same string.
func foldName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	folded = nameSeparators.Replace(strings.ToLower(folded))
	return strings.Join(strings.Fields(folded), " ")
}
