package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeSchema(t *testing.T) map[string]any {
	t.Helper()
	data, err := MarshalSchema()
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func definition(t *testing.T, doc map[string]any, name string) map[string]any {
	t.Helper()
	defs, ok := doc["$defs"].(map[string]any)
	require.True(t, ok, "schema has no $defs")
	def, ok := defs[name].(map[string]any)
	require.True(t, ok, "missing definition %s", name)
	props, ok := def["properties"].(map[string]any)
	require.True(t, ok)
	return props
}

func TestSchema_Metadata(t *testing.T) {
	doc := decodeSchema(t)
	assert.Equal(t, schemaVersion, doc["$schema"])
	assert.Equal(t, schemaID, doc["$id"])
	assert.Equal(t, "VoiceDesk configuration", doc["title"])
	assert.Equal(t, false, doc["additionalProperties"])
	assert.NotContains(t, doc, "required")

	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"api", "auth", "capture", "history", "metrics", "telemetry", "logging", "ui"} {
		assert.Contains(t, props, key)
	}
}

func TestSchema_FieldsFollowYAMLKeys(t *testing.T) {
	doc := decodeSchema(t)

	capture := definition(t, doc, "CaptureConfig")
	backend := capture["backend"].(map[string]any)
	assert.Equal(t, []any{CaptureFFmpeg, CapturePortAudio}, backend["enum"])

	interval := capture["segment_interval"].(map[string]any)
	assert.Equal(t, "string", interval["type"])
	assert.Equal(t, durationPattern, interval["pattern"])

	ui := definition(t, doc, "UIConfig")
	assert.Equal(t, []any{"pt-BR", "en"}, ui["locale"].(map[string]any)["enum"])

	api := definition(t, doc, "APIConfig")
	assert.Contains(t, api, "base_url")
	assert.Contains(t, api, "upload_timeout")
}
