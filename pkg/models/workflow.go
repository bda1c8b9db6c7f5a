package models

import (
	"errors"
	"fmt"
	"time"
)

// Definition-level validation errors.
var (
	ErrNoStartNode         = errors.New("start node does not exist in the graph")
	ErrDanglingSuccessor   = errors.New("successor references a node that does not exist")
	ErrMissingBranch       = errors.New("condition node requires both true and false successors")
	ErrNoConditions        = errors.New("condition node requires at least one condition")
	ErrInvalidNodeType     = errors.New("invalid node type")
	ErrInvalidConditionOp  = errors.New("invalid condition combinator")
	ErrNegativeDelay       = errors.New("delay durations must not be negative")
	ErrEndNodeHasSuccessor = errors.New("end node must not have a successor")
)

// WorkflowDefinition is the immutable-once-published blueprint of a workflow:
// a directed graph of typed nodes keyed by node id.
type WorkflowDefinition struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"        validate:"required,min=3"`
	Description string           `json:"description,omitempty"`
	IsActive    bool             `json:"is_active"`
	StartNodeID string           `json:"start_node_id" validate:"required"`
	Nodes       map[string]*Node `json:"nodes"         validate:"required"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Validate enforces the structural invariants of the graph: the start node
// exists, every successor reference resolves, condition nodes carry both
// branches and at least one condition, action configs decode and validate,
// delay durations are non-negative.
func (d *WorkflowDefinition) Validate() error {
	if _, ok := d.Nodes[d.StartNodeID]; !ok {
		return fmt.Errorf("%w: %q", ErrNoStartNode, d.StartNodeID)
	}

	for id, node := range d.Nodes {
		if node.ID == "" {
			node.ID = id
		}

		if node.ID != id {
			return fmt.Errorf("node keyed %q declares id %q", id, node.ID)
		}

		if err := d.validateNode(node); err != nil {
			return fmt.Errorf("node %q: %w", id, err)
		}
	}

	return nil
}

func (d *WorkflowDefinition) validateNode(node *Node) error {
	if !node.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidNodeType, node.Type)
	}

	for _, ref := range node.Successors() {
		if _, ok := d.Nodes[ref]; !ok {
			return fmt.Errorf("%w: %q", ErrDanglingSuccessor, ref)
		}
	}

	switch node.Type {
	case NodeTypeCondition:
		if node.TrueNextID == "" || node.FalseNextID == "" {
			return ErrMissingBranch
		}

		if len(node.Conditions) == 0 {
			return ErrNoConditions
		}

		if node.Operator != "" && node.Operator != ConditionOperatorAnd && node.Operator != ConditionOperatorOr {
			return fmt.Errorf("%w: %q", ErrInvalidConditionOp, node.Operator)
		}
	case NodeTypeAction:
		if _, err := ParseActionConfig(node.Action, node.Config); err != nil {
			return err
		}
	case NodeTypeDelay:
		if node.DelayMinutes < 0 || node.DelayHours < 0 || node.DelayDays < 0 {
			return ErrNegativeDelay
		}
	case NodeTypeEnd:
		if node.NextID != "" {
			return ErrEndNodeHasSuccessor
		}
	case NodeTypeTrigger:
	}

	return nil
}
