package question

import "strings"

// NormalizeOutput canonicalizes program output before comparison: trailing
// and leading whitespace is dropped and CRLF line endings become LF.
func NormalizeOutput(output string) string {
	return strings.TrimSpace(strings.ReplaceAll(output, "\r\n", "\n"))
}

// outputMatches compares a produced output against an expected one under
// normalization.
func outputMatches(actual string, expected string) bool {
	return NormalizeOutput(actual) == NormalizeOutput(expected)
}
