// Package sanitization redacts credentials and strips log-forging characters
// before values reach a log sink or a notification.
package sanitization

import (
	"fmt"
	"strings"
)

const redactedValue = "[REDACTED]"

const (
	emptyMaskedValue = "(empty)"
	maskedValue      = "***masked***"
)

// AllowedFields bypass key-based redaction even when their names look sensitive.
var AllowedFields = map[string]bool{
	"token_count":     true,
	"secret_version":  true,
	"aws_region":      true,
	"distribution_id": true,
}

type SanitizationType int

const (
	FullyRedact SanitizationType = iota
	PartialMask
)

// SensitiveFields is keyed by lowercased field name.
var SensitiveFields = map[string]SanitizationType{
	"password":      FullyRedact,
	"secret":        FullyRedact,
	"private_key":   FullyRedact,
	"authorization": FullyRedact,
	"cookie":        FullyRedact,

	"github_token":          FullyRedact,
	"oauth_token":           FullyRedact,
	"webhook_secret":        FullyRedact,
	"aws_secret_access_key": FullyRedact,
	"aws_session_token":     FullyRedact,

	"aws_access_key_id": PartialMask,
	"access_key_id":     PartialMask,
	"email":             PartialMask,
	"notify_email":      PartialMask,
}

// SanitizeLogString removes control characters that could enable log forging.
func SanitizeLogString(value string) string {
	if value == "" {
		return value
	}
	value = strings.ReplaceAll(value, "\r", "")
	value = strings.ReplaceAll(value, "\n", "")
	return value
}

// SanitizeFieldValue sanitizes a field value based on its key name.
func SanitizeFieldValue(key string, value any) any {
	keyLower := strings.ToLower(strings.TrimSpace(key))
	if keyLower == "" || AllowedFields[keyLower] {
		return sanitizeValue(value)
	}

	if typ, ok := SensitiveFields[keyLower]; ok {
		if typ == PartialMask {
			return maskValue(keyLower, value)
		}
		return redactedValue
	}

	for _, substr := range []string{"secret", "token", "password", "private_key", "api_key", "authorization", "credential"} {
		if strings.Contains(keyLower, substr) {
			return redactedValue
		}
	}

	return sanitizeValue(value)
}

// MaskFirstLast keeps the first prefixLen and last suffixLen characters and masks the middle.
func MaskFirstLast(value string, prefixLen, suffixLen int) string {
	if value == "" {
		return emptyMaskedValue
	}
	if prefixLen < 0 || suffixLen < 0 {
		return maskedValue
	}
	if len(value) <= prefixLen+suffixLen {
		return maskedValue
	}
	return value[:prefixLen] + "***" + value[len(value)-suffixLen:]
}

// MaskFirstLast4 keeps the first and last 4 characters and masks the middle.
func MaskFirstLast4(value string) string {
	return MaskFirstLast(value, 4, 4)
}

// MaskEmail keeps the first character of the local part and the whole domain.
func MaskEmail(value string) string {
	value = strings.TrimSpace(value)
	at := strings.LastIndex(value, "@")
	if at <= 0 || at == len(value)-1 {
		return redactedValue
	}
	return value[:1] + "***" + value[at:]
}

func sanitizeValue(value any) any {
	switch typed := value.(type) {
	case nil:
		return nil
	case string:
		return SanitizeLogString(RedactSecrets(typed))
	case []byte:
		return SanitizeLogString(RedactSecrets(string(typed)))
	case error:
		return SanitizeLogString(RedactSecrets(typed.Error()))
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = SanitizeFieldValue(k, v)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = SanitizeFieldValue(k, v)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = sanitizeValue(typed[i])
		}
		return out
	case []string:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = sanitizeValue(typed[i])
		}
		return out
	case bool, int, int32, int64, uint, uint32, uint64, float32, float64:
		return typed
	default:
		return SanitizeLogString(fmt.Sprintf("%v", typed))
	}
}

func maskValue(key string, value any) string {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return redactedValue
	}
	if strings.Contains(key, "email") {
		return MaskEmail(s)
	}
	s = strings.TrimSpace(s)
	if len(s) <= 4 {
		return redactedValue
	}
	return "..." + s[len(s)-4:]
}
