package models

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// definitionSchema is the wire schema of a workflow definition document.
// Node configs are free-form per action/condition kind at this layer; the
// typed validation in Validate covers them after decoding.
const definitionSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["name", "start_node_id", "nodes"],
	"properties": {
		"id": {"type": "string"},
		"name": {"type": "string", "minLength": 3},
		"description": {"type": "string"},
		"is_active": {"type": "boolean"},
		"start_node_id": {"type": "string", "minLength": 1},
		"nodes": {
			"type": "object",
			"minProperties": 1,
			"additionalProperties": {
				"type": "object",
				"required": ["type"],
				"properties": {
					"id": {"type": "string"},
					"type": {"enum": ["trigger", "action", "condition", "delay", "end"]},
					"name": {"type": "string"},
					"next_id": {"type": "string"},
					"action": {"type": "string"},
					"config": {"type": "object"},
					"error_next_id": {"type": "string"},
					"conditions": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["field", "operator"],
							"properties": {
								"field": {"type": "string", "minLength": 1},
								"operator": {"type": "string", "minLength": 1}
							}
						}
					},
					"operator": {"enum": ["and", "or", ""]},
					"true_next_id": {"type": "string"},
					"false_next_id": {"type": "string"},
					"delay_minutes": {"type": "integer", "minimum": 0},
					"delay_hours": {"type": "integer", "minimum": 0},
					"delay_days": {"type": "integer", "minimum": 0}
				}
			}
		}
	}
}`

// ValidateDefinitionDocument validates a raw definition document against the
// wire schema before it is decoded into a WorkflowDefinition.
func ValidateDefinitionDocument(document []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(definitionSchema)
	documentLoader := gojsonschema.NewBytesLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate definition document: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return fmt.Errorf("definition document is invalid: %s", strings.Join(details, "; "))
	}

	return nil
}
