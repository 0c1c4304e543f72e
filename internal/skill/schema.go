package skill

import "strings"

// ValidateInput checks input against the declared schema: required fields
// present, types conform, required strings non-empty. Missing optional
// fields take their declared defaults. The returned map is a normalized
// copy; the caller's map is not modified.
func ValidateInput(skillName string, schema []FieldSpec, input map[string]any) (map[string]any, error) {
	normalized := make(map[string]any, len(schema))
	for k, v := range input {
		normalized[k] = v
	}

	for _, spec := range schema {
		val, present := normalized[spec.Name]
		if !present || val == nil {
			if spec.Required {
				return nil, schemaErr(skillName, "missing required input %q", spec.Name)
			}
			if spec.Default != nil {
				normalized[spec.Name] = spec.Default
			}
			continue
		}
		if !typeMatches(spec.Type, val) {
			return nil, schemaErr(skillName, "input %q must be a %s", spec.Name, spec.Type)
		}
		if spec.Required && spec.Type == TypeString {
			if s, _ := val.(string); strings.TrimSpace(s) == "" {
				return nil, schemaErr(skillName, "input %q must not be empty", spec.Name)
			}
		}
	}
	return normalized, nil
}

func typeMatches(t FieldType, val any) bool {
	switch t {
	case TypeString:
		_, ok := val.(string)
		return ok
	case TypeNumber:
		switch val.(type) {
		case float64, float32, int, int64:
			return true
		}
		return false
	case TypeBoolean:
		_, ok := val.(bool)
		return ok
	case TypeList:
		_, ok := val.([]any)
		return ok
	case TypeRecord:
		_, ok := val.(map[string]any)
		return ok
	case TypeAny, "":
		return true
	}
	return false
}

// AsNumber converts a validated number field to float64.
func AsNumber(val any) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// AsStringList converts a validated list field to strings, skipping
// non-string entries.
func AsStringList(val any) []string {
	list, ok := val.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
