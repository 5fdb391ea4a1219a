// Package normalize folds display names into stable lookup keys and slugs.
package normalize

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
)

// Name folds a display name into the key used to deduplicate people across
// payloads: diacritics romanized, lowercased, punctuation stripped, runs of
// whitespace collapsed to a single space.
func Name(value string) string {
	folded := strings.ToLower(unidecode.Unidecode(strings.TrimSpace(value)))
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Slug turns a name into a URL-safe slug: romanized, lowercased, with every
// run of non-alphanumeric runes collapsed to a single hyphen.
func Slug(value string) string {
	folded := strings.ToLower(unidecode.Unidecode(strings.TrimSpace(value)))
	var b strings.Builder
	b.Grow(len(folded))
	lastHyphen := true
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteRune('-')
			lastHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}
