// Package textutil provides text normalization, tokenization, and n-gram
// helpers for feature extraction.
package textutil

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Normalize lowercases s and collapses runs of whitespace to single spaces.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Tokenize splits s on whitespace.
func Tokenize(s string) []string {
	return strings.Fields(s)
}

// Ngrams returns all character n-grams of s for n in [minN, maxN].
func Ngrams(s string, minN, maxN int) []string {
	runes := []rune(s)
	var grams []string
	for n := minN; n <= maxN; n++ {
		if n <= 0 || n > len(runes) {
			continue
		}
		for i := 0; i+n <= len(runes); i++ {
			grams = append(grams, string(runes[i:i+n]))
		}
	}
	return grams
}

// TokenNgrams returns all token n-grams for n in [minN, maxN], with the
// tokens of each gram joined by a single space.
func TokenNgrams(tokens []string, minN, maxN int) []string {
	var grams []string
	for n := minN; n <= maxN; n++ {
		if n <= 0 || n > len(tokens) {
			continue
		}
		for i := 0; i+n <= len(tokens); i++ {
			grams = append(grams, strings.Join(tokens[i:i+n], " "))
		}
	}
	return grams
}

// NumberPattern returns a shape pattern for s when at least ratio of its
// characters are digits, otherwise "". Digits become X; the second variant
// additionally maps letters to C. The two variants are space-separated.
func NumberPattern(s string, ratio float64) string {
	if s == "" {
		return ""
	}
	runes := []rune(s)
	digits := 0
	for _, r := range runes {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if float64(digits)/float64(len(runes)) < ratio {
		return ""
	}

	pattern := make([]rune, len(runes))
	shape := make([]rune, len(runes))
	for i, r := range runes {
		switch {
		case unicode.IsDigit(r):
			pattern[i] = 'X'
			shape[i] = 'X'
		case unicode.IsLetter(r):
			pattern[i] = r
			shape[i] = 'C'
		default:
			pattern[i] = r
			shape[i] = r
		}
	}
	return string(pattern) + " " + string(shape)
}

// EditDistanceRatio returns the Levenshtein distance between a and b
// normalized by the length of the longer string, in [0, 1]. Two empty
// strings have distance 0.
func EditDistanceRatio(a, b string) float64 {
	la := len([]rune(a))
	lb := len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return 0
	}
	return float64(levenshtein.ComputeDistance(a, b)) / float64(longest)
}
