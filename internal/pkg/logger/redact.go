package logger

import "strings"

// RedactEmail masks the local part of an email address, keeping just enough
// to correlate log lines with support tickets.
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	local := parts[0]
	if len(local) > 2 {
		return local[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

// RedactToken shortens a tracking token for logging. Full tokens are
// capability URLs; a prefix is enough to grep for.
func RedactToken(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "…"
}
