// Package logutil holds helpers for keeping log lines bounded.
package logutil

// TruncateForLog cuts s to maxLen bytes and marks the cut with "...".
func TruncateForLog(s string, maxLen int) string {
	if maxLen <= 0 {
		return "..."
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateBodyForLog is TruncateForLog for raw response bodies.
func TruncateBodyForLog(body []byte, maxLen int) string {
	if len(body) > maxLen && maxLen > 0 {
		body = body[:maxLen]
		return string(body) + "..."
	}
	return TruncateForLog(string(body), maxLen)
}
