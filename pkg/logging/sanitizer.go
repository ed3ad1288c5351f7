package logging

import (
	"fmt"
	"regexp"
)

const (
	// RedactedText replaces credentials in logged strings.
	RedactedText = "[REDACTED]"

	// MaxLoggedKeys is the maximum number of record keys included in one log entry
	MaxLoggedKeys = 20
	// MaxKeyLogLength is the maximum length of a single logged record key
	MaxKeyLogLength = 64
)

type redaction struct {
	pattern     *regexp.Regexp
	replacement string
}

var (
	// key=value passwords in libpq DSNs and pgx error text.
	passwordParam = redaction{
		regexp.MustCompile(`(?i)\b(password|pwd|pass)=[^;&\s]+`),
		"${1}=" + RedactedText,
	}
	// URL userinfo; the user part may be empty as in redis://:secret@host.
	urlUserinfo = redaction{
		regexp.MustCompile(`://[^:/\s]*:[^\s]+@[^/\s]+`),
		"://" + RedactedText + "@" + RedactedText,
	}
	// Bearer tokens echoed in auth failures.
	bearerToken = redaction{
		regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*`),
		"Bearer " + RedactedText,
	}

	connectionRedactions = []redaction{passwordParam, urlUserinfo}
	errorRedactions      = []redaction{passwordParam, bearerToken, urlUserinfo}
)

func redact(s string, rules []redaction) string {
	for _, r := range rules {
		s = r.pattern.ReplaceAllString(s, r.replacement)
	}
	return s
}

// SanitizeConnectionString removes credentials from a PostgreSQL or Redis
// connection string. Use it before logging any connection string.
func SanitizeConnectionString(connStr string) string {
	return redact(connStr, connectionRedactions)
}

// SanitizeError returns err's message with credentials removed.
// Use it before logging errors from database, Redis or token validation.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return redact(err.Error(), errorRedactions)
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateKeys bounds a list of record keys for logging. Record values are
// never logged; keys can still be long provider hashes or arbitrarily many.
func TruncateKeys(keys []string) []string {
	n := min(len(keys), MaxLoggedKeys)
	out := make([]string, 0, n+1)
	for _, k := range keys[:n] {
		out = append(out, TruncateString(k, MaxKeyLogLength))
	}
	if len(keys) > n {
		out = append(out, fmt.Sprintf("(+%d more)", len(keys)-n))
	}
	return out
}
