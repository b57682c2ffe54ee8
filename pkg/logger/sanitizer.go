package logger

import (
	"regexp"
	"strings"
)

// Sensitive field patterns to filter from logs
var (
	passwordPattern = regexp.MustCompile(`(?i)(password|passwd|pwd)[\s:=]+[^\s]+`)
	tokenPattern    = regexp.MustCompile(`(?i)(token|jwt|bearer)[\s:=]+[^\s]+`)
	apiKeyPattern   = regexp.MustCompile(`(?i)(api[_-]?key|apikey)[\s:=]+[^\s]+`)
	secretPattern   = regexp.MustCompile(`(?i)(secret|private[_-]?key)[\s:=]+[^\s]+`)
	dsnPattern      = regexp.MustCompile(`(?i)((?:postgres(?:ql)?|redis|amqps?)://[^:/\s]+:)[^@\s]+@`)
)

const redactedPlaceholder = "[REDACTED]"

var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"token", "jwt", "bearer", "authorization",
	"api_key", "apikey", "api-key",
	"secret", "private_key", "private-key",
}

// SanitizeLogMessage removes sensitive information from log messages
func SanitizeLogMessage(message string) string {
	message = dsnPattern.ReplaceAllString(message, "${1}"+redactedPlaceholder+"@")
	message = passwordPattern.ReplaceAllString(message, "${1}="+redactedPlaceholder)
	message = tokenPattern.ReplaceAllString(message, "${1}="+redactedPlaceholder)
	message = apiKeyPattern.ReplaceAllString(message, "${1}="+redactedPlaceholder)
	message = secretPattern.ReplaceAllString(message, "${1}="+redactedPlaceholder)
	return message
}

// IsSensitiveKey reports whether a field or env var name holds a credential.
func IsSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitiveKey := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitiveKey) {
			return true
		}
	}
	return false
}

// SanitizeMap removes sensitive keys from a map
func SanitizeMap(data map[string]interface{}) map[string]interface{} {
	sanitized := make(map[string]interface{}, len(data))
	for k, v := range data {
		if IsSensitiveKey(k) {
			sanitized[k] = redactedPlaceholder
			continue
		}
		if s, ok := v.(string); ok {
			sanitized[k] = SanitizeLogMessage(s)
			continue
		}
		sanitized[k] = v
	}
	return sanitized
}
