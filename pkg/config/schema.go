package config

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
)

const (
	schemaVersion = "https://json-schema.org/draft-07/schema"
	schemaID      = "https://voicedesk.altairalabs.ai/schemas/v1/config.json"

	durationPattern = `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`
)

// Schema returns the JSON Schema of the configuration file. Every key has a
// default, so none is required.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		ExpandedStruct:             true,
		FieldNameTag:               "yaml",
		RequiredFromJSONSchemaTags: true,
		Mapper:                     mapDuration,
	}

	schema := reflector.Reflect(&Config{})
	schema.Version = schemaVersion
	schema.ID = jsonschema.ID(schemaID)
	schema.Title = "VoiceDesk configuration"
	schema.Description = "Settings read from config.yaml; VOICEDESK_* variables and flags override them"
	return schema
}

// MarshalSchema renders Schema as indented JSON.
func MarshalSchema() ([]byte, error) {
	data, err := json.MarshalIndent(Schema(), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// mapDuration describes durations the way they are written in YAML.
func mapDuration(t reflect.Type) *jsonschema.Schema {
	if t != reflect.TypeOf(time.Duration(0)) {
		return nil
	}
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     durationPattern,
		Description: "Duration such as 30s, 2m or 1h30m",
	}
}
