package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Humanize turns a field key into a display label.
//
//	"fullName"       -> "Full Name"
//	"created_at"     -> "Created At"
//	"profilePicURL"  -> "Profile Pic URL"
func Humanize(key string) string {
	// Casers carry state and are not safe for concurrent use.
	caser := cases.Title(language.English, cases.NoLower)
	words := splitWords(key)
	for i, w := range words {
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}

// splitWords splits on separators and on lower-to-upper case transitions,
// keeping runs of capitals (acronyms) together.
func splitWords(key string) []string {
	var words []string
	var cur []rune
	runes := []rune(key)

	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}

	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == '.' || unicode.IsSpace(r):
			flush()
			continue
		case unicode.IsUpper(r) && len(cur) > 0:
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}
