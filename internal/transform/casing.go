// Package transform converts provider identifiers to snake_case.
package transform

import (
	"regexp"
	"strings"
)

var (
	// "ResourceId" -> "Resource_Id"
	capitalizedWord = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	// "HTTPResponse" -> "HTTP_Response" after the first pass, "vmId" -> "vm_Id"
	lowerThenUpper = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// ToSnakeCase converts PascalCase or camelCase to snake_case. Hyphens and
// existing underscores are left alone, so "VM1_Config" becomes "vm1__config".
// Input is expected to be valid UTF-8; invalid bytes come back as U+FFFD.
func ToSnakeCase(s string) string {
	s = capitalizedWord.ReplaceAllString(s, "${1}_${2}")
	s = lowerThenUpper.ReplaceAllString(s, "${1}_${2}")
	return strings.ToLower(s)
}

// TransformKeys returns a copy of v with every string mapping key converted
// by ToSnakeCase, recursing into nested mappings and sequences. Non-string
// keys and scalar values are kept as they are.
func TransformKeys(v interface{}) interface{} {
	switch value := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(value))
		for key, item := range value {
			out[ToSnakeCase(key)] = TransformKeys(item)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[interface{}]interface{}, len(value))
		for key, item := range value {
			if s, ok := key.(string); ok {
				out[ToSnakeCase(s)] = TransformKeys(item)
				continue
			}
			out[key] = TransformKeys(item)
		}
		return out
	case map[string]string:
		out := make(map[string]interface{}, len(value))
		for key, item := range value {
			out[ToSnakeCase(key)] = item
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(value))
		for i, item := range value {
			out[i] = TransformKeys(item)
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(value))
		for i, item := range value {
			out[i] = TransformKeys(item)
		}
		return out
	default:
		return v
	}
}
