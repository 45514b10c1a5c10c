package utils

import (
	"encoding/json"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// GetSchemaFromConfig reflects a config struct (or a pointer to one) into an indented JSON
// schema. The struct fields are expanded at the top level and the defaults come from the
// jsonschema tags.
func GetSchemaFromConfig(config any) (string, error) {
	t := reflect.TypeOf(config)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t == nil || t.Kind() != reflect.Struct {
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "config must be a struct, got %T", config)
	}

	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
	}

	schema := reflector.ReflectFromType(t)
	schema.Title = t.Name()

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to marshal config schema", err)
	}

	return string(schemaBytes), nil
}
