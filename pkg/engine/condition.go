package engine

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/journeyhq/journey/pkg/models"
)

// EvaluateConditions evaluates every condition against the target record and
// run context and combines the results with the node's operator. Evaluation
// errors inside a single condition (bad regex, non-array membership value)
// are fail-soft: they log and count as false. An empty condition list is a
// definition error.
func EvaluateConditions(
	conditions []models.Condition,
	operator models.ConditionOperator,
	targetType models.TargetType,
	target, context map[string]any,
	logger *slog.Logger,
) (bool, error) {
	if len(conditions) == 0 {
		return false, ErrNoConditions
	}

	results := make([]bool, 0, len(conditions))
	for _, condition := range conditions {
		results = append(results, evaluateSingle(condition, targetType, target, context, logger))
	}

	if operator == models.ConditionOperatorOr {
		for _, r := range results {
			if r {
				return true, nil
			}
		}

		return false, nil
	}

	for _, r := range results {
		if !r {
			return false, nil
		}
	}

	return true, nil
}

func evaluateSingle(
	condition models.Condition,
	targetType models.TargetType,
	target, context map[string]any,
	logger *slog.Logger,
) bool {
	actual, found := fieldValue(condition.Field, targetType, target, context)

	switch condition.Operator {
	case models.OpEquals, "==", "===":
		return compareValues(actual, found, condition.Value, condition.Value != nil) == 0
	case models.OpNotEquals, "!=", "!==":
		return compareValues(actual, found, condition.Value, condition.Value != nil) != 0
	case models.OpGreaterThan, ">":
		return compareValues(actual, found, condition.Value, condition.Value != nil) > 0
	case models.OpGreaterOrEqual, ">=":
		return compareValues(actual, found, condition.Value, condition.Value != nil) >= 0
	case models.OpLessThan, "<":
		return compareValues(actual, found, condition.Value, condition.Value != nil) < 0
	case models.OpLessOrEqual, "<=":
		return compareValues(actual, found, condition.Value, condition.Value != nil) <= 0
	case models.OpContains:
		return containsFold(stringify(actual), stringify(condition.Value))
	case models.OpNotContains:
		return !containsFold(stringify(actual), stringify(condition.Value))
	case models.OpStartsWith:
		return strings.HasPrefix(strings.ToLower(stringify(actual)), strings.ToLower(stringify(condition.Value)))
	case models.OpEndsWith:
		return strings.HasSuffix(strings.ToLower(stringify(actual)), strings.ToLower(stringify(condition.Value)))
	case models.OpIsEmpty, models.OpIsNull:
		return isEmpty(actual, found)
	case models.OpIsNotEmpty, models.OpIsNotNull:
		return !isEmpty(actual, found)
	case models.OpIn:
		member, ok := membership(actual, found, condition, logger)

		return ok && member
	case models.OpNotIn:
		// A non-array value is false here too, not true-by-negation.
		member, ok := membership(actual, found, condition, logger)

		return ok && !member
	case models.OpMatchesRegex:
		pattern, err := regexp.Compile(stringify(condition.Value))
		if err != nil {
			logger.Warn("Invalid regex in condition, evaluating to false",
				"field", condition.Field, "pattern", condition.Value, "error", err)

			return false
		}

		return pattern.MatchString(stringify(actual))
	default:
		logger.Warn("Unknown condition operator, evaluating to false",
			"field", condition.Field, "operator", condition.Operator)

		return false
	}
}

// fieldValue resolves a dot-path field. A leading "context." resolves inside
// the run context, a leading "<targetType>." inside the record. Anything else
// resolves on the record directly, falling back to a flat context lookup of
// the whole field string. Missing segments yield not-found, never an error.
func fieldValue(field string, targetType models.TargetType, target, context map[string]any) (any, bool) {
	parts := strings.Split(field, ".")

	if parts[0] == "context" && len(parts) > 1 {
		return lookupPath(context, parts[1:])
	}

	if parts[0] == string(targetType) && len(parts) > 1 {
		return lookupPath(target, parts[1:])
	}

	if value, ok := lookupPath(target, parts); ok {
		return value, true
	}

	if context != nil {
		if value, ok := context[field]; ok {
			return value, true
		}
	}

	return nil, false
}

func lookupPath(data map[string]any, parts []string) (any, bool) {
	if data == nil {
		return nil, false
	}

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

// membership reports whether actual occurs in the condition's value list.
// The second result is false when the value is not an array at all.
func membership(actual any, found bool, condition models.Condition, logger *slog.Logger) (bool, bool) {
	values, ok := toSlice(condition.Value)
	if !ok {
		logger.Warn("Membership condition value is not an array, evaluating to false",
			"field", condition.Field, "value", condition.Value)

		return false, false
	}

	for _, candidate := range values {
		if compareValues(actual, found, candidate, candidate != nil) == 0 {
			return true, true
		}
	}

	return false, true
}

func toSlice(value any) ([]any, bool) {
	if values, ok := value.([]any); ok {
		return values, true
	}

	rv := reflect.ValueOf(value)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return nil, false
	}

	values := make([]any, rv.Len())
	for i := range values {
		values[i] = rv.Index(i).Interface()
	}

	return values, true
}

// compareValues is the total order used by the ordering operators. Absent
// values sort before any defined value; numbers compare numerically, dates as
// instants, booleans false<true, everything else as case-insensitive strings.
func compareValues(a any, aDefined bool, b any, bDefined bool) int {
	aDefined = aDefined && a != nil
	bDefined = bDefined && b != nil

	switch {
	case !aDefined && !bDefined:
		return 0
	case !aDefined:
		return -1
	case !bDefined:
		return 1
	}

	if aNum, aOK := toNumber(a); aOK {
		if bNum, bOK := toNumber(b); bOK {
			switch {
			case aNum < bNum:
				return -1
			case aNum > bNum:
				return 1
			default:
				return 0
			}
		}
	}

	aTime, aIsTime := toTime(a)
	bTime, bIsTime := toTime(b)

	if aIsTime || bIsTime {
		if aIsTime && bIsTime {
			switch {
			case aTime.Before(bTime):
				return -1
			case aTime.After(bTime):
				return 1
			default:
				return 0
			}
		}
	}

	if aBool, aOK := a.(bool); aOK {
		if bBool, bOK := b.(bool); bOK {
			switch {
			case aBool == bBool:
				return 0
			case !aBool:
				return -1
			default:
				return 1
			}
		}
	}

	return strings.Compare(strings.ToLower(stringify(a)), strings.ToLower(stringify(b)))
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()

		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)

		return f, err == nil
	default:
		return 0, false
	}
}

func toTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
	}

	return time.Time{}, false
}

func isEmpty(value any, found bool) bool {
	if !found || value == nil {
		return true
	}

	switch v := value.(type) {
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Map {
		return rv.Len() == 0
	}

	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
