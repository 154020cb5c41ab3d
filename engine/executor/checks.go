package executor

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/apiflow/apiflow/engine/workflow"
	"github.com/apiflow/apiflow/pkg/dotpath"
)

// checkResult separates hard failures from advisory warnings.
type checkResult struct {
	errors   []string
	warnings []string
}

// runChecks evaluates the step validations whose target matches against
// data. Critical check failures land in errors, the rest in warnings.
func runChecks(data map[string]any, validations []workflow.Validation, target string) checkResult {
	var result checkResult
	for i := range validations {
		v := &validations[i]
		if v.Target != target {
			continue
		}
		value := resolveCheckField(data, v.Field)
		failure := runCheck(value, v)
		if failure == "" {
			continue
		}
		message := v.Message
		if message == "" {
			message = failure
		}
		if v.Critical {
			result.errors = append(result.errors, message)
		} else {
			result.warnings = append(result.warnings, message)
		}
	}
	return result
}

// resolveCheckField traverses the dot-path; an unresolvable path counts
// as a null value, so not_null catches it.
func resolveCheckField(data map[string]any, field string) any {
	value, err := dotpath.Traverse(data, field)
	if err != nil {
		return nil
	}
	return value
}

func runCheck(value any, v *workflow.Validation) string {
	switch v.Check {
	case "not_null":
		if value == nil {
			return fmt.Sprintf("%q is null", v.Field)
		}
	case "not_empty":
		if isEmpty(value) {
			return fmt.Sprintf("%q is empty", v.Field)
		}
	case "min_length":
		return checkMinLength(value, v)
	case "regex":
		return checkRegex(value, v)
	case "type":
		return checkType(value, v)
	default:
		return fmt.Sprintf("unknown check: %q", v.Check)
	}
	return ""
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

func checkMinLength(value any, v *workflow.Validation) string {
	if value == nil {
		return fmt.Sprintf("%q is null (expected min_length %s)", v.Field, v.Value)
	}
	minLen, err := strconv.Atoi(v.Value)
	if err != nil {
		return fmt.Sprintf("invalid min_length parameter: %q", v.Value)
	}
	length, ok := lengthOf(value)
	if !ok {
		return fmt.Sprintf("%q has no length (type %T)", v.Field, value)
	}
	if length < minLen {
		return fmt.Sprintf("%q length %d < %d", v.Field, length, minLen)
	}
	return ""
}

func lengthOf(value any) (int, bool) {
	switch v := value.(type) {
	case string:
		return len(v), true
	case []any:
		return len(v), true
	case map[string]any:
		return len(v), true
	default:
		return 0, false
	}
}

func checkRegex(value any, v *workflow.Validation) string {
	if value == nil {
		return fmt.Sprintf("%q is null (expected to match /%s/)", v.Field, v.Value)
	}
	re, err := regexp.Compile(v.Value)
	if err != nil {
		return fmt.Sprintf("invalid regex parameter: %q", v.Value)
	}
	text := fmt.Sprintf("%v", value)
	if !re.MatchString(text) {
		return fmt.Sprintf("%q does not match /%s/", v.Field, v.Value)
	}
	return ""
}

func checkType(value any, v *workflow.Validation) string {
	ok := false
	switch v.Value {
	case "string":
		_, ok = value.(string)
	case "number":
		switch value.(type) {
		case float64, int, int64:
			ok = true
		}
	case "bool":
		_, ok = value.(bool)
	case "list":
		_, ok = value.([]any)
	case "object":
		_, ok = value.(map[string]any)
	default:
		return fmt.Sprintf("unknown type check: %q", v.Value)
	}
	if !ok {
		return fmt.Sprintf("%q is %T, expected %s", v.Field, value, v.Value)
	}
	return ""
}
