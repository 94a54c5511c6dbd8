package stages

import (
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Per-stage schemas for model output. Array stages are validated item by
// item so that a partially recovered list keeps its well-formed entries.
const (
	purposeSchema = `{
		"type": "object",
		"required": ["summary"],
		"properties": {
			"summary": {"type": "string", "minLength": 1}
		}
	}`

	commercialItemSchema = `{
		"type": "object",
		"required": ["clause", "summary"],
		"properties": {
			"clause": {"type": "string", "minLength": 1},
			"summary": {"type": "string", "minLength": 1}
		}
	}`

	legalRiskItemSchema = `{
		"type": "object",
		"required": ["clause", "risk", "severity"],
		"properties": {
			"clause": {"type": "string", "minLength": 1},
			"risk": {"type": "string", "minLength": 1},
			"description": {"type": "string"},
			"fairness": {"type": "string", "enum": ["fair", "unfair"]},
			"favours": {"type": "string", "enum": ["buyer", "supplier", "equal"]},
			"severity": {"type": "string", "enum": ["low", "medium", "high"]}
		}
	}`

	mitigationItemSchema = `{
		"type": "object",
		"required": ["clause", "mitigation"],
		"properties": {
			"clause": {"type": "string", "minLength": 1},
			"mitigation": {"type": "string", "minLength": 1},
			"negotiation_points": {"type": "string"}
		}
	}`
)

var stageSchemas = map[string]*jsonschema.Schema{
	LabelPurpose:     jsonschema.MustCompileString("purpose.json", purposeSchema),
	LabelCommercial:  jsonschema.MustCompileString("commercial_item.json", commercialItemSchema),
	LabelLegalRisks:  jsonschema.MustCompileString("legal_risk_item.json", legalRiskItemSchema),
	LabelMitigations: jsonschema.MustCompileString("mitigation_item.json", mitigationItemSchema),
}

// validItems filters array-stage items through the stage's item schema.
// Stages without a schema pass everything through.
func validItems(label string, items []any) []any {
	schema, ok := stageSchemas[label]
	if !ok {
		return items
	}
	kept := make([]any, 0, len(items))
	for _, item := range items {
		if schema.Validate(item) == nil {
			kept = append(kept, item)
		}
	}
	return kept
}

// validObject reports whether an object-stage result conforms to the
// stage's schema.
func validObject(label string, obj map[string]any) bool {
	schema, ok := stageSchemas[label]
	if !ok {
		return true
	}
	return schema.Validate(obj) == nil
}
