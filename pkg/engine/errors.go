package engine

import "errors"

// Engine-level failure causes. Definition and infrastructure errors are
// always fatal to the enrollment; only action failures may be routed through
// a node's error successor.
var (
	ErrNodeNotFound     = errors.New("node not found in workflow definition")
	ErrLoopDetected     = errors.New("infinite loop detected")
	ErrUnknownNodeType  = errors.New("unknown node type")
	ErrMissingBranch    = errors.New("condition node has no successor for computed branch")
	ErrNoConditions     = errors.New("condition node has no conditions")
	ErrTargetNotFound   = errors.New("target record not found")
	ErrWorkflowNotFound = errors.New("workflow definition not found")
)
