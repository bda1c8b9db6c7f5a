package models

import "fmt"

// TargetType identifies the kind of business record an enrollment acts upon.
type TargetType string

const (
	TargetTypeDeal    TargetType = "deal"
	TargetTypeContact TargetType = "contact"
	TargetTypeTask    TargetType = "task"
)

// Record store collection names.
const (
	CollectionDeals      = "deals"
	CollectionContacts   = "contacts"
	CollectionTasks      = "tasks"
	CollectionActivities = "activities"
)

// Collection returns the record store collection backing this target type.
func (t TargetType) Collection() string {
	switch t {
	case TargetTypeDeal:
		return CollectionDeals
	case TargetTypeContact:
		return CollectionContacts
	case TargetTypeTask:
		return CollectionTasks
	}

	return ""
}

// Valid reports whether the target type is one of the supported record kinds.
func (t TargetType) Valid() bool {
	return t.Collection() != ""
}

// ParseTargetType converts a string into a TargetType.
func ParseTargetType(s string) (TargetType, error) {
	t := TargetType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unsupported target type: %q", s)
	}

	return t, nil
}
