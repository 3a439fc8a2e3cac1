package util

import (
	"html"
	"strings"
)

// SanitizeInput trims and escapes HTML/script-like characters from
// user-supplied text (complaint descriptions, usernames, issue types).
func SanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return html.EscapeString(s)
}

// ContainsSuspicious flags inputs that look like injection attempts.
// Complaints with suspicious patterns are rejected before storage.
func ContainsSuspicious(s string) bool {
	lowered := strings.ToLower(s)
	for _, c := range []string{"<script", "javascript:", "onerror", "onload", "${", "{{"} {
		if strings.Contains(lowered, c) {
			return true
		}
	}
	return false
}

// NormalizeReportID canonicalizes user-supplied tracking IDs; report IDs
// are stored lowercase and matched case-insensitively.
func NormalizeReportID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
