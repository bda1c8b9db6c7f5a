// Package template resolves {{placeholder}} variables in action configuration
// strings against the enrollment's target record and accumulated context.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/journeyhq/journey/pkg/models"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+(?:\.[a-zA-Z0-9_]+)*)\s*\}\}`)

// Resolve substitutes placeholders in three passes:
//
//	{{<targetType>.field}}  field of the target record, e.g. {{contact.email}}
//	{{context.field}}       accumulated enrollment context
//	{{field}}               bare names, target record first, then context
//
// Placeholders that resolve to nothing are left in the output verbatim so a
// rendered message never silently loses a token.
func Resolve(input string, targetType models.TargetType, target, context map[string]any) string {
	result := resolvePass(input, string(targetType)+".", target)
	result = resolvePass(result, "context.", context)
	result = resolvePass(result, "", target, context)

	return result
}

func resolvePass(input, prefix string, sources ...map[string]any) string {
	if !strings.Contains(input, "{{") {
		return input
	}

	return placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		path := placeholderPattern.FindStringSubmatch(match)[1]

		if prefix != "" {
			if !strings.HasPrefix(path, prefix) {
				return match
			}

			path = strings.TrimPrefix(path, prefix)
		} else if strings.Contains(path, ".") {
			// Bare pass only handles flat names; dotted tokens belong to
			// earlier passes or stay verbatim.
			return match
		}

		for _, source := range sources {
			if value, ok := lookup(source, path); ok {
				return formatValue(value)
			}
		}

		return match
	})
}

// lookup walks a dot path through nested maps.
func lookup(data map[string]any, path string) (any, bool) {
	if data == nil {
		return nil, false
	}

	parts := strings.Split(path, ".")

	var current any = data

	for _, part := range parts {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = node[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(encoded)
	default:
		return fmt.Sprintf("%v", v)
	}
}
