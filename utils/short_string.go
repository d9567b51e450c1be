package utils

import "fmt"

// ShortenLog truncates long ids (digests, escrow handles) for log lines.
func ShortenLog(s string) string {
	cut := 8
	if len(s) <= 8 {
		return s
	} else if len(s) <= 16 {
		cut = 4
	}
	return fmt.Sprintf("%s...%s", s[:cut], s[len(s)-cut:])
}
