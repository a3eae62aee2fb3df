package logging

import "strings"

// Redacted replaces sensitive values in log output
const Redacted = "[HIDDEN]"

var sensitiveKeyParts = []string{"key", "password", "token", "secret", "dsn"}

// Redact returns a copy of fields with sensitive values hidden. A key is
// sensitive when it contains key, password, token, secret or dsn.
func Redact(fields map[string]interface{}) map[string]interface{} {
	safe := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if isSensitive(k) {
			safe[k] = Redacted
			continue
		}
		safe[k] = v
	}
	return safe
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}
