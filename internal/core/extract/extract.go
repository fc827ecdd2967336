// Package extract scans raw text for candidate invite code tokens
package extract

import (
	"unicode"
	"unicode/utf8"
)

// CodeLength is the fixed token length this system hunts for
const CodeLength = 6

// Tokens returns, in order of appearance, every maximal alphanumeric run in s
// that is exactly CodeLength ASCII letters/digits long and bounded by non-word
// characters. Repeated occurrences of the same literal are all yielded; dedup
// is the ledger's job, not the extractor's. Pure function, no failure mode
func Tokens(s string) []string {
	var out []string

	i := 0
	for i < len(s) {
		r, sz := utf8.DecodeRuneInString(s[i:])
		if !isWord(r) {
			i += sz
			continue
		}

		// walk the full word run so a 6-char window inside a longer run never matches
		start := i
		ascii := true
		for i < len(s) {
			r, sz = utf8.DecodeRuneInString(s[i:])
			if !isWord(r) {
				break
			}
			if !isASCIIAlnum(r) {
				ascii = false
			}
			i += sz
		}

		if ascii && i-start == CodeLength {
			out = append(out, s[start:i])
		}
	}
	return out
}

// isWord mirrors regexp word-boundary semantics: letters, numbers, and
// connector punctuation count as word characters
func isWord(r rune) bool {
	if r == utf8.RuneError || r == 0 {
		return false
	}
	return unicode.IsLetter(r) ||
		unicode.IsNumber(r) ||
		unicode.In(r, unicode.Mn, unicode.Pc)
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
