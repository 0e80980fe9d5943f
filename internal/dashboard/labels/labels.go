// Package labels renders display text for filter keys and ranked items.
package labels

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/focosview/focosview/pkg/types/focos"
)

var (
	tokenSplit = regexp.MustCompile(`\s+|[-/]`)
	acronym    = regexp.MustCompile(`^[A-ZÀ-Ý0-9]{2,}$`)
	smallWords = map[string]struct{}{
		"de": {}, "da": {}, "do": {}, "das": {}, "dos": {}, "em": {}, "para": {}, "e": {},
	}
)

// TitleCasePT title-cases a Portuguese place name. Connectives (de, da, do,
// das, dos, em, para, e) stay lowercase unless they open the text; tokens of
// two or more capitals or digits are kept as written. Whitespace, hyphens
// and slashes are preserved.
func TitleCasePT(text string) string {
	base := strings.TrimSpace(text)
	if base == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(base))
	wordIndex := 0
	last := 0
	for _, loc := range tokenSplit.FindAllStringIndex(base, -1) {
		b.WriteString(caseWord(base[last:loc[0]], &wordIndex))
		b.WriteString(base[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(caseWord(base[last:], &wordIndex))
	return b.String()
}

func caseWord(token string, wordIndex *int) string {
	if token == "" {
		return token
	}
	defer func() { *wordIndex++ }()
	if acronym.MatchString(token) {
		return token
	}
	lower := strings.ToLower(token)
	if _, small := smallWords[lower]; small && *wordIndex > 0 {
		return lower
	}
	r, size := utf8.DecodeRuneInString(lower)
	return string(unicode.ToUpper(r)) + lower[size:]
}

// ForDimension renders a label for a dimension: UF codes are upper-cased,
// everything else is title-cased. An empty label falls back to key.
func ForDimension(dim focos.Dimension, label, key string) string {
	raw := strings.TrimSpace(label)
	if raw == "" {
		raw = strings.TrimSpace(key)
	}
	if dim == focos.DimUF {
		return strings.ToUpper(raw)
	}
	return TitleCasePT(raw)
}

// NormalizeTop rewrites the labels of a ranking in place.
func NormalizeTop(top *focos.Top) {
	if top == nil {
		return
	}
	for i := range top.Items {
		top.Items[i].Label = ForDimension(top.Group, top.Items[i].Label, top.Items[i].Key)
	}
}

// Placeholder is the text shown for a dimension with no selection.
func Placeholder(dim focos.Dimension) string {
	switch dim {
	case focos.DimBioma, focos.DimMun:
		return "Todos"
	default:
		return "Todas"
	}
}
