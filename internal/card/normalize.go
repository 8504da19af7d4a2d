package card

import (
	"regexp"
	"strings"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize trims, lowercases, and collapses internal whitespace to single spaces.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// wordRegex splits text into lowercase word tokens.
var wordRegex = regexp.MustCompile(`[a-z0-9]+`)

// words returns the lowercase word tokens of s.
func words(s string) []string {
	return wordRegex.FindAllString(strings.ToLower(s), -1)
}
