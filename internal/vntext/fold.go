// Package vntext folds Vietnamese text for diacritics- and case-insensitive
// matching. Folding decomposes to NFD, strips combining marks and lowercases,
// so "Việt Nam", "Viet Nam" and "VIET NAM" fold to the same key.
package vntext

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Fold returns the folded form of s. The đ/Đ pair carries no combining mark
// and is mapped by hand.
func Fold(s string) string {
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		out = s
	}
	out = strings.Map(func(r rune) rune {
		switch r {
		case 'đ':
			return 'd'
		case 'Đ':
			return 'D'
		}
		return r
	}, out)
	return strings.ToLower(out)
}

// IsWordRune reports whether r belongs to a word for boundary checks. Matching
// a registry entry must not fire inside a longer word ("shopeeple").
func IsWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
