package models

// Severity and confidence levels shared by specialist results
const (
	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"
)

// SpecialistResult is the structured opinion one specialist produces for one report.
// Every field is always populated; list fields are never nil once normalized.
type SpecialistResult struct {
	Summary               string         `json:"summary"`
	MajorProblem          string         `json:"major_problem"`
	Condition             string         `json:"condition"`
	Severity              string         `json:"severity"`
	Confidence            string         `json:"confidence"`
	Focus                 string         `json:"focus"`
	Explanation           string         `json:"explanation"`
	Findings              []string       `json:"findings"`
	LikelyConditions      []string       `json:"likely_conditions"`
	RecommendedTests      []string       `json:"recommended_tests"`
	RecommendedTreatments []string       `json:"recommended_treatments"`
	Recommendations       []string       `json:"recommendations"`
	NextSteps             []string       `json:"next_steps"`
	PatientActions        []string       `json:"patient_actions"`
	Evidence              []string       `json:"evidence"`
	AbnormalValues        map[string]any `json:"abnormal_values"`
	Role                  string         `json:"role"`
}

// NewSpecialistResult returns a result with every field at its default
func NewSpecialistResult(role string) SpecialistResult {
	return SpecialistResult{
		Severity:              LevelMedium,
		Confidence:            LevelMedium,
		Findings:              []string{},
		LikelyConditions:      []string{},
		RecommendedTests:      []string{},
		RecommendedTreatments: []string{},
		Recommendations:       []string{},
		NextSteps:             []string{},
		PatientActions:        []string{},
		Evidence:              []string{},
		AbnormalValues:        map[string]any{},
		Role:                  role,
	}
}

// HasContent reports whether the result carries a summary or any findings
func (r SpecialistResult) HasContent() bool {
	return r.Summary != "" || len(r.Findings) > 0
}
