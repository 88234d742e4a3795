package logger

import (
	"regexp"
)

// sensitiveDataPatterns match values that must never reach log output
var sensitiveDataPatterns = []*regexp.Regexp{
	// user:password@ in connection URLs
	regexp.MustCompile(`(://[^:/@\s]+:)([^@\s]+)(@)`),
	// go-sql-driver DSNs: user:password@tcp(
	regexp.MustCompile(`^([^:/@\s]+:)([^@\s]+)(@(?:tcp|unix)\()`),
	// password=... in key/value DSNs and query strings
	regexp.MustCompile(`(?i)((?:password|passwd|token|secret)=)([^&\s;]+)()`),
}

// RedactSensitiveData replaces credentials in DSNs and query strings with "[REDACTED]"
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}
	for _, pattern := range sensitiveDataPatterns {
		input = pattern.ReplaceAllString(input, "${1}[REDACTED]${3}")
	}
	return input
}
