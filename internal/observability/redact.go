package observability

import (
	"encoding/json"
	"strings"
)

// sensitiveKeys names the JSON keys that must never reach a log line in the
// clear — provider API keys arrive in domain.ModelConfig.Config and config
// section payloads, both of which this module logs on add_model/update.
var sensitiveKeys = []string{
	"api_key", "apikey", "access_key", "secret_key", "authorization",
	"token", "password", "secret", "bearer", "client_secret",
}

// RedactJSON returns raw with sensitive values replaced by "[REDACTED]",
// for logging model/config payloads without leaking credentials.
func RedactJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}
	b, err := json.Marshal(redactValue(v))
	if err != nil {
		return raw
	}
	return b
}

func redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, vv := range val {
			if isSensitiveKey(k) {
				val[k] = "[REDACTED]"
			} else {
				val[k] = redactValue(vv)
			}
		}
		return val
	case []any:
		for i := range val {
			val[i] = redactValue(val[i])
		}
		return val
	default:
		return v
	}
}

func isSensitiveKey(k string) bool {
	low := strings.ToLower(k)
	for _, s := range sensitiveKeys {
		if strings.Contains(low, s) {
			return true
		}
	}
	return false
}
