package models

// ConditionOperator combines the results of multiple conditions.
type ConditionOperator string

const (
	ConditionOperatorAnd ConditionOperator = "and"
	ConditionOperatorOr  ConditionOperator = "or"
)

// Condition compares one field of the target record (or the run context)
// against a literal value.
//
// Field is a dot path. A leading "context." segment resolves inside the
// enrollment context; a leading segment equal to the target's own type tag
// (e.g. "deal.") resolves inside the record. Anything else is resolved
// directly on the record, falling back to a flat context lookup.
type Condition struct {
	Field    string `json:"field"    validate:"required"`
	Operator string `json:"operator" validate:"required"`
	Value    any    `json:"value"`
}

// Comparison operator names accepted by the condition evaluator.
const (
	OpEquals         = "equals"
	OpNotEquals      = "not_equals"
	OpGreaterThan    = "greater_than"
	OpGreaterOrEqual = "greater_or_equal"
	OpLessThan       = "less_than"
	OpLessOrEqual    = "less_or_equal"
	OpContains       = "contains"
	OpNotContains    = "not_contains"
	OpStartsWith     = "starts_with"
	OpEndsWith       = "ends_with"
	OpIsEmpty        = "is_empty"
	OpIsNotEmpty     = "is_not_empty"
	OpIsNull         = "is_null"
	OpIsNotNull      = "is_not_null"
	OpIn             = "in"
	OpNotIn          = "not_in"
	OpMatchesRegex   = "matches_regex"
)
