// Package tplengine renders {{key}} templates over arbitrary JSON-shaped
// values with type-preserving substitution. The grammar is deliberately
// small: a string that is exactly one placeholder is replaced by the raw
// value (keeping its type); placeholders embedded among other characters
// interpolate the stringified value.
package tplengine

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	placeholderRE = regexp.MustCompile(`\{\{(\w+)\}\}`)
	exactMatchRE  = regexp.MustCompile(`^\{\{(\w+)\}\}$`)
)

// MissingKeyError reports a strict render that hit an unknown placeholder.
// Path locates the offending template node in dotted form.
type MissingKeyError struct {
	Key  string
	Path string
}

func (e *MissingKeyError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("missing template key %q", e.Key)
	}
	return fmt.Sprintf("missing template key %q at %s", e.Key, e.Path)
}

// HasTemplate returns true if the string contains template markers.
func HasTemplate(template string) bool {
	return strings.Contains(template, "{{")
}

// Render recursively renders template against values. In strict mode a
// missing key returns a MissingKeyError; otherwise the placeholder text
// is kept verbatim.
func Render(template any, values map[string]any, strict bool) (any, error) {
	return renderValue(template, values, strict, "$")
}

func renderValue(template any, values map[string]any, strict bool, path string) (any, error) {
	switch node := template.(type) {
	case map[string]any:
		rendered := make(map[string]any, len(node))
		for key, value := range node {
			out, err := renderValue(value, values, strict, path+"."+key)
			if err != nil {
				return nil, err
			}
			rendered[key] = out
		}
		return rendered, nil
	case []any:
		rendered := make([]any, len(node))
		for i, item := range node {
			out, err := renderValue(item, values, strict, fmt.Sprintf("%s.%d", path, i))
			if err != nil {
				return nil, err
			}
			rendered[i] = out
		}
		return rendered, nil
	case string:
		return renderString(node, values, strict, path)
	default:
		// numbers, booleans, nil pass through untouched
		return template, nil
	}
}

func renderString(template string, values map[string]any, strict bool, path string) (any, error) {
	// Whole string is a single placeholder: type-preserving replacement.
	if match := exactMatchRE.FindStringSubmatch(template); match != nil {
		key := match[1]
		if value, ok := values[key]; ok {
			return value, nil
		}
		if strict {
			return nil, &MissingKeyError{Key: key, Path: path}
		}
		return template, nil
	}

	var missing *MissingKeyError
	rendered := placeholderRE.ReplaceAllStringFunc(template, func(placeholder string) string {
		key := placeholderRE.FindStringSubmatch(placeholder)[1]
		value, ok := values[key]
		if !ok {
			if strict && missing == nil {
				missing = &MissingKeyError{Key: key, Path: path}
			}
			return placeholder
		}
		return Stringify(value)
	})
	if missing != nil {
		return nil, missing
	}
	return rendered, nil
}

// Stringify converts a value for embedded interpolation. Strings are used
// as-is; everything else serializes as compact JSON, so sequences and
// mappings keep a machine-readable shape.
func Stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(encoded)
}

// ExtractKeys returns the sorted set of placeholder names referenced
// anywhere inside template.
func ExtractKeys(template any) []string {
	seen := make(map[string]struct{})
	collectKeys(template, seen)
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func collectKeys(template any, seen map[string]struct{}) {
	switch node := template.(type) {
	case map[string]any:
		for _, value := range node {
			collectKeys(value, seen)
		}
	case []any:
		for _, item := range node {
			collectKeys(item, seen)
		}
	case string:
		for _, match := range placeholderRE.FindAllStringSubmatch(node, -1) {
			seen[match[1]] = struct{}{}
		}
	}
}
