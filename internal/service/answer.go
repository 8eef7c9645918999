package service

import "strings"

// MatchAnswer compares answers after trimming surrounding whitespace and
// lowercasing. Inner whitespace and punctuation are significant.
func MatchAnswer(submitted, correct string) bool {
	return normalizeAnswer(submitted) == normalizeAnswer(correct)
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
