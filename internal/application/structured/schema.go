package structured

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonrepair"
)

var (
	validate = validator.New()

	schemaCache sync.Map // map[reflect.Type]string
)

// SchemaFor returns the indented JSON schema of T
func SchemaFor[T any]() (string, error) {
	t := reflect.TypeFor[T]()
	if cached, ok := schemaCache.Load(t); ok {
		return cached.(string), nil
	}

	reflector := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
	schema := reflector.Reflect(new(T))

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal schema for %s: %w", t, err)
	}

	schemaCache.Store(t, string(data))
	return string(data), nil
}

// Parse decodes content into T and validates it. Malformed JSON is repaired
// once before giving up. Every failure is a *SchemaError.
func Parse[T any](content string) (T, error) {
	var result T

	payload := stripCodeFence(content)
	if payload == "" {
		return result, &SchemaError{Output: content, Err: fmt.Errorf("empty reply")}
	}

	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(payload)
		if repairErr != nil {
			return result, &SchemaError{
				Output: content,
				Err:    fmt.Errorf("invalid JSON: %w (repair failed: %v)", err, repairErr),
			}
		}

		result = *new(T)
		if err := json.Unmarshal([]byte(repaired), &result); err != nil {
			return result, &SchemaError{Output: content, Err: fmt.Errorf("invalid JSON after repair: %w", err)}
		}
	}

	if reflect.TypeFor[T]().Kind() == reflect.Struct {
		if err := validate.Struct(result); err != nil {
			return result, &SchemaError{Output: content, Err: err}
		}
	}

	return result, nil
}

// stripCodeFence removes a surrounding markdown code block, if any
func stripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
