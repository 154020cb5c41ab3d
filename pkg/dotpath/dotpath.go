// Package dotpath navigates nested JSON-shaped values along dotted paths.
// A segment applied to a mapping performs a key lookup; a segment applied
// to a sequence must be a non-negative decimal integer and performs an
// index lookup.
package dotpath

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Error reports a failed traversal, carrying the full path and the
// segment that could not be applied.
type Error struct {
	Path    string
	Segment string
	Reason  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("cannot resolve path %q at segment %q: %s", e.Path, e.Segment, e.Reason)
}

// Split breaks a dotted path into its segments.
func Split(path string) []string {
	return strings.Split(path, ".")
}

// Traverse walks root along the dotted path and returns the value found.
func Traverse(root any, path string) (any, error) {
	return TraverseSegments(root, Split(path), path)
}

// TraverseSegments applies segments left-to-right against root. The full
// path is only used for error reporting.
func TraverseSegments(root any, segments []string, fullPath string) (any, error) {
	current := root
	for _, segment := range segments {
		switch value := current.(type) {
		case map[string]any:
			next, ok := value[segment]
			if !ok {
				return nil, &Error{Path: fullPath, Segment: segment, Reason: "key not found"}
			}
			current = next
		case []any:
			index, ok := parseIndex(segment)
			if !ok {
				return nil, &Error{Path: fullPath, Segment: segment, Reason: "sequence index must be a non-negative integer"}
			}
			if index >= len(value) {
				return nil, &Error{
					Path:    fullPath,
					Segment: segment,
					Reason:  fmt.Sprintf("index out of range (len %d)", len(value)),
				}
			}
			current = value[index]
		default:
			return nil, &Error{
				Path:    fullPath,
				Segment: segment,
				Reason:  fmt.Sprintf("cannot traverse into %T", current),
			}
		}
	}
	return current, nil
}

// parseIndex accepts decimal digits only; "+1", "-1", "1e2" and the
// empty string are all rejected.
func parseIndex(segment string) (int, bool) {
	if segment == "" {
		return 0, false
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	index, err := strconv.Atoi(segment)
	if err != nil {
		// Digits only, so the failure is overflow; any such index is
		// past the end of every sequence.
		return math.MaxInt, true
	}
	return index, true
}
