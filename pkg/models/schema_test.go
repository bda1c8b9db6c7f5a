package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDefinitionDocument(t *testing.T) {
	document := []byte(`{
		"name": "Deal follow-up",
		"start_node_id": "start",
		"nodes": {
			"start": {"type": "trigger", "next_id": "wait"},
			"wait": {"type": "delay", "delay_days": 1, "next_id": "done"},
			"done": {"type": "end"}
		}
	}`)

	require.NoError(t, ValidateDefinitionDocument(document))
}

func TestValidateDefinitionDocument_MissingRequired(t *testing.T) {
	err := ValidateDefinitionDocument([]byte(`{"name": "No graph"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start_node_id")
}

func TestValidateDefinitionDocument_BadNodeType(t *testing.T) {
	document := []byte(`{
		"name": "Broken",
		"start_node_id": "start",
		"nodes": {"start": {"type": "sleep"}}
	}`)

	err := ValidateDefinitionDocument(document)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid")
}

func TestValidateDefinitionDocument_NegativeDelayRejected(t *testing.T) {
	document := []byte(`{
		"name": "Broken delay",
		"start_node_id": "start",
		"nodes": {"start": {"type": "delay", "delay_minutes": -5}}
	}`)

	assert.Error(t, ValidateDefinitionDocument(document))
}
