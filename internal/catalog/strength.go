package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// strengths is keyed by NormalizeKey(product name).
var strengths = map[string]string{
	"iceberg kiwi strawberry": "Medium 20mg",
	"iceberg cherry":          "20mg",
	"iceberg cola":            "Medium 20mg",
	"iceberg watermelon":      "Medium 20mg",
	"iceberg mango banana":    "Medium 20mg",
	"iceberg emerald":         "Ultra 50mg",

	"maggie cherry tonic": "60mg",

	"pablo orange exclusive": "50mg",
	"pablo bubblegum":        "50mg",
	"pablo blue mint":        "50mg",
	"pablo green mint":       "50mg",
	"pablo frosted mint":     "50mg",
	"pablo dark cherry":      "50mg",
	"pablo passion fruit":    "50mg",
	"pablo passionfruit":     "50mg",
	"pablo liquorice":        "50mg",

	// not in the catalog yet
	"killa orange": "13.2mg",

	"zyn cool blueberry":  "Strong 11mg",
	"zyn cool watermelon": "Strong 11mg",
	"zyn fresh mint":      "Strong 11mg",

	"velo bright spearmint":  "Low 6mg",
	"velo strawberry ice":    "Medium 10mg",
	"velo crispy peppermint": "Medium 10mg",
}

// NormalizeKey folds a product name to its lookup key: lowercase, diacritics
// stripped, "&" spelled out, every other non-alphanumeric run collapsed to one space.
func NormalizeKey(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = norm.NFKD.String(s)

	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r == '&':
			pendingSpace = true
			writeWord(&b, "and", &pendingSpace)
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		default:
			pendingSpace = true
		}
	}
	return b.String()
}

func writeWord(b *strings.Builder, word string, pendingSpace *bool) {
	if b.Len() > 0 {
		b.WriteByte(' ')
	}
	b.WriteString(word)
	*pendingSpace = true
}

// StrengthFor returns the strength label for a product, or "" when unknown.
func StrengthFor(name string) string {
	return strengths[NormalizeKey(name)]
}
