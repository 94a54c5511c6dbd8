package stages

import "time"

// Meta describes where a bundle came from.
type Meta struct {
	Contract    string    `json:"contract"`
	Model       string    `json:"model"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Bundle is the complete analysis result. Each section holds the raw stage
// output text; structured sections carry canonical JSON when the stage
// output resolved cleanly.
type Bundle struct {
	Purpose     string `json:"purpose"`
	Commercial  string `json:"commercial"`
	LegalRisks  string `json:"legal_risks"`
	Mitigations string `json:"mitigations"`
	Alert       string `json:"alert"`
	Plain       string `json:"plain"`

	Meta       Meta   `json:"meta"`
	ReportFile string `json:"report_file,omitempty"`
	ReportURL  string `json:"report_url,omitempty"`
}

// BundleFromOutputs assembles a bundle from per-stage raw outputs plus the
// derived alert text.
func BundleFromOutputs(outputs map[string]string, alertRaw string, meta Meta) *Bundle {
	return &Bundle{
		Purpose:     outputs[LabelPurpose],
		Commercial:  outputs[LabelCommercial],
		LegalRisks:  outputs[LabelLegalRisks],
		Mitigations: outputs[LabelMitigations],
		Alert:       alertRaw,
		Plain:       outputs[LabelPlain],
		Meta:        meta,
	}
}

// Section returns the bundle section for a stage label.
func (b *Bundle) Section(label string) string {
	switch label {
	case LabelPurpose:
		return b.Purpose
	case LabelCommercial:
		return b.Commercial
	case LabelLegalRisks:
		return b.LegalRisks
	case LabelMitigations:
		return b.Mitigations
	case LabelAlert:
		return b.Alert
	case LabelPlain:
		return b.Plain
	default:
		return ""
	}
}
