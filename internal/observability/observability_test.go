package observability

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactJSONRedactsSensitiveKeysRecursively(t *testing.T) {
	in := map[string]any{
		"api_key": "secret123",
		"model": map[string]any{
			"provider": "openai",
			"password": "hunter2",
		},
		"models": []any{
			map[string]any{"access_key": "abc"},
			"plain",
		},
		"note": "keepme",
	}
	b, err := json.Marshal(in)
	require.NoError(t, err)

	out := RedactJSON(b)
	var v map[string]any
	require.NoError(t, json.Unmarshal(out, &v))

	assert.Equal(t, "[REDACTED]", v["api_key"])
	assert.Equal(t, "[REDACTED]", v["model"].(map[string]any)["password"])
	assert.Equal(t, "openai", v["model"].(map[string]any)["provider"])
	assert.Equal(t, "[REDACTED]", v["models"].([]any)[0].(map[string]any)["access_key"])
	assert.Equal(t, "keepme", v["note"])
}

func TestRedactJSONPassesThroughEmptyAndInvalid(t *testing.T) {
	assert.Nil(t, RedactJSON(nil))
	assert.Equal(t, json.RawMessage("notjson"), RedactJSON(json.RawMessage("notjson")))
}

func TestInitLoggerParsesLevel(t *testing.T) {
	logger := InitLogger("", "warning")
	assert.Equal(t, "warn", logger.GetLevel().String())
}

func TestInitLoggerDefaultsToInfoOnUnknownLevel(t *testing.T) {
	logger := InitLogger("", "not-a-level")
	assert.Equal(t, "info", logger.GetLevel().String())
}
