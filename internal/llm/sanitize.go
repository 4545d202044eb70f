package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strings"
)

// SanitizeToSchema
// - Drops null values and empty strings
// - Trims string values
// - Removes keys the schema does not declare when additionalProperties is
//   false (keys starting with "_" survive; they carry extraction provenance)
// Used as a lenient retry when strict validation of model output fails.
func SanitizeToSchema(raw []byte, schema map[string]any, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 8)

	for k, v := range maps.Clone(m) {
		switch t := v.(type) {
		case nil:
			delete(m, k)
			dropped = append(dropped, k+"(null)")
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				delete(m, k)
				dropped = append(dropped, k+"(empty)")
			} else {
				m[k] = s
			}
		}
	}

	if strictSchema(schema) {
		allowed := schemaProperties(schema)
		for k := range maps.Clone(m) {
			if strings.HasPrefix(k, "_") {
				continue
			}
			if _, ok := allowed[k]; !ok {
				delete(m, k)
				dropped = append(dropped, k+"(unknown)")
			}
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.sanitize.applied", "dropped", dropped)
	}
	return out, dropped, nil
}

func strictSchema(schema map[string]any) bool {
	ap, ok := schema["additionalProperties"].(bool)
	return ok && !ap
}

func schemaProperties(schema map[string]any) map[string]any {
	props, _ := schema["properties"].(map[string]any)
	return props
}

// SchemaPropertyNames returns the top-level property names declared by a
// JSON-Schema object.
func SchemaPropertyNames(schema map[string]any) map[string]struct{} {
	props := schemaProperties(schema)
	names := make(map[string]struct{}, len(props))
	for k := range props {
		names[k] = struct{}{}
	}
	return names
}

// LineItemPropertyNames returns the property names of the schema's
// line_items array element, if declared.
func LineItemPropertyNames(schema map[string]any) map[string]struct{} {
	props := schemaProperties(schema)
	li, ok := props["line_items"].(map[string]any)
	if !ok {
		return nil
	}
	items, ok := li["items"].(map[string]any)
	if !ok {
		return nil
	}
	itemProps, ok := items["properties"].(map[string]any)
	if !ok {
		return nil
	}
	names := make(map[string]struct{}, len(itemProps))
	for k := range itemProps {
		names[k] = struct{}{}
	}
	return names
}
