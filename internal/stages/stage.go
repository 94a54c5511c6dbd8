// Package stages defines the fixed contract-analysis pipeline: the ordered
// stage enumeration, the prompts and expected output shape per stage, the
// LLM-backed executor that produces each stage's raw output, and the
// finalize step that derives the alert verdict and assembles the result
// bundle.
package stages

// Stage labels, in execution order. The ordinal position in Order determines
// the job's step sequence; finalize is the trailing step owned by the jobs
// runner.
const (
	LabelPurpose     = "purpose"
	LabelCommercial  = "commercial"
	LabelLegalRisks  = "legal_risks"
	LabelMitigations = "mitigations"
	LabelPlain       = "plain"

	// LabelAlert is the derived verdict recorded during finalize. It is not
	// an executor-backed stage: the verdict is computed from the merged
	// risks, matching the upstream analyzer's behavior.
	LabelAlert = "alert"
)

// Shape is the structured form a stage's output is expected to take.
type Shape int

const (
	ShapeText Shape = iota
	ShapeObject
	ShapeArray
)

// Def describes one analytic stage.
type Def struct {
	Label string
	Agent string
	Shape Shape
}

// Order is the fixed analytic stage sequence. Later stages may consume
// earlier outputs (mitigations align against legal_risks), so the order is
// load-bearing.
var Order = []Def{
	{Label: LabelPurpose, Agent: "Contract Purpose Analyst", Shape: ShapeObject},
	{Label: LabelCommercial, Agent: "Commercial Clauses Analyst", Shape: ShapeArray},
	{Label: LabelLegalRisks, Agent: "Legal Risk Assessor", Shape: ShapeArray},
	{Label: LabelMitigations, Agent: "Mitigation Strategist", Shape: ShapeArray},
	{Label: LabelPlain, Agent: "Plain-Language Simplifier", Shape: ShapeText},
}

// DefFor returns the stage definition for a label.
func DefFor(label string) (Def, bool) {
	for _, d := range Order {
		if d.Label == label {
			return d, true
		}
	}
	return Def{}, false
}

// ShapeFor returns the display shape for any result bundle section,
// including the derived alert. Unknown labels are treated as text.
func ShapeFor(label string) Shape {
	if label == LabelAlert {
		return ShapeObject
	}
	if d, ok := DefFor(label); ok {
		return d.Shape
	}
	return ShapeText
}
