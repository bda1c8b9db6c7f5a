// Package models defines the core domain models for graph-based workflow automation.
package models

// NodeType represents the kind of node in a workflow graph.
type NodeType string

const (
	NodeTypeTrigger   NodeType = "trigger"
	NodeTypeAction    NodeType = "action"
	NodeTypeCondition NodeType = "condition"
	NodeTypeDelay     NodeType = "delay"
	NodeTypeEnd       NodeType = "end"
)

// Valid reports whether the node type is known.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeTrigger, NodeTypeAction, NodeTypeCondition, NodeTypeDelay, NodeTypeEnd:
		return true
	}

	return false
}

// Node is one step in a workflow graph. It is a tagged union over Type:
// action nodes carry Action/Config/ErrorNextID, condition nodes carry
// Conditions/Operator/TrueNextID/FalseNextID, delay nodes carry the delay
// duration fields, trigger and end nodes carry only the common fields.
type Node struct {
	ID     string   `json:"id"   validate:"required"`
	Type   NodeType `json:"type" validate:"required"`
	Name   string   `json:"name,omitempty"`
	NextID string   `json:"next_id,omitempty"`

	// Action variant.
	Action      ActionKind     `json:"action,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
	ErrorNextID string         `json:"error_next_id,omitempty"`

	// Condition variant.
	Conditions  []Condition       `json:"conditions,omitempty"`
	Operator    ConditionOperator `json:"operator,omitempty"`
	TrueNextID  string            `json:"true_next_id,omitempty"`
	FalseNextID string            `json:"false_next_id,omitempty"`

	// Delay variant.
	DelayMinutes int `json:"delay_minutes,omitempty"`
	DelayHours   int `json:"delay_hours,omitempty"`
	DelayDays    int `json:"delay_days,omitempty"`
}

// Successors returns every node id this node can hand control to.
// Empty references are omitted.
func (n *Node) Successors() []string {
	refs := make([]string, 0, 4)

	for _, id := range []string{n.NextID, n.ErrorNextID, n.TrueNextID, n.FalseNextID} {
		if id != "" {
			refs = append(refs, id)
		}
	}

	return refs
}
