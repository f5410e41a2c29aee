// Package wordlist provides word list filtering helpers.
package wordlist

import "unicode"

// Usable reports whether word can appear in practice text: non-empty,
// no whitespace, no control characters.
func Usable(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}
