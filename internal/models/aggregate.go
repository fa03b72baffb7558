package models

// Fixed report texts
const (
	Disclaimer             = "This is not a medical diagnosis. Please consult a doctor."
	NoSummaryAvailable     = "No summary available."
	NoConsensusFindings    = "No consensus findings."
	NextStepReviewSpecs    = "Review the recommendations with relevant specialists."
	NextStepOrderTests     = "Order indicated tests (ECG, Echo, CXR, spirometry) if not already done."
	LLMErrorPrefix         = "LLM error or not configured: "
	SuggestedOpinionsIntro = "\n\nSuggested specialist opinions: Consider getting an opinion from: "
)

// AggregatedReport is the merged, patient-facing result of a panel run
type AggregatedReport struct {
	ExecutiveSummary       string            `json:"executive_summary"`
	ConsensusFindings      []string          `json:"consensus_findings"`
	AllConditions          []string          `json:"all_conditions"`
	Recommendations        []string          `json:"recommendations"`
	NextSteps              []string          `json:"next_steps"`
	SpecialistSuggestions  []string          `json:"specialist_suggestions"`
	SpecialistExplanations map[string]string `json:"specialist_explanations"`
	Disclaimer             string            `json:"disclaimer"`
}

// AggregateInput is one aggregator input: a normalized result or a raw text fragment.
// When Result is nil, Raw is used.
type AggregateInput struct {
	Result *SpecialistResult `json:"result,omitempty"`
	Raw    string            `json:"raw,omitempty"`
}

// ResultInput wraps a specialist result as aggregator input
func ResultInput(r SpecialistResult) AggregateInput {
	return AggregateInput{Result: &r}
}

// RawInput wraps a text fragment as aggregator input
func RawInput(text string) AggregateInput {
	return AggregateInput{Raw: text}
}
