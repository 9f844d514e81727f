// Package utils provides shared helpers for text, math, and logging.
package utils

// Truncate returns s cut to maxLen bytes, with "..." appended when cut.
// Non-positive maxLen returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
