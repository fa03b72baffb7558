package agents

import (
	"strings"

	"github.com/ternarybob/healthscope/internal/models"
	"github.com/ternarybob/healthscope/internal/services/normalize"
	"github.com/ternarybob/healthscope/internal/services/preprocess"
)

const (
	unavailableMarker = "(LLM unavailable)"
	clarifierPhrase   = "Could you share"

	fallbackBodyChars    = 1000
	fallbackSummaryChars = 2000
)

// clinicalKeywords are matched, in order, against the report body when the model gave no usable answer
var clinicalKeywords = []string{
	"fever", "cough", "chest pain", "shortness of breath", "dyspnea", "palpitation",
	"rash", "itching", "abdominal pain", "diarrhea", "constipation", "headache",
	"fatigue", "weight loss", "weight gain", "polyuria", "polydipsia", "hematuria",
	"anemia", "elevated", "low", "high", "creatinine", "bilirubin", "hb", "wbc",
}

// cannedRecommendation maps a role-name fragment to its default advice. First match wins.
type cannedRecommendation struct {
	fragment string
	advice   []string
}

var cannedRecommendations = []cannedRecommendation{
	{"cardio", []string{"Obtain ECG", "Consider echocardiography if cardiac cause suspected", "Refer to cardiology for further evaluation"}},
	{"pulmo", []string{"Obtain chest X-ray", "Consider spirometry", "Refer to pulmonology if respiratory symptoms persist"}},
	{"psych", []string{"Consider assessment for anxiety/depression", "Refer to psychiatry for further evaluation"}},
	{"derm", []string{"Consider dermatology consult", "Photograph lesions and consider topical/systemic therapy based on severity"}},
	{"hema", []string{"Repeat CBC with differential", "Review peripheral smear and consider hematology referral if abnormalities persist"}},
	{"neph", []string{"Check renal function (serum creatinine, electrolytes)", "Urinalysis and urine protein quantification", "Refer to nephrology if abnormal"}},
	{"radio", []string{"Obtain relevant imaging and share imaging reports with radiology for formal read"}},
}

var genericRecommendation = []string{"Obtain relevant investigations and refer to appropriate specialist as needed"}

// IsClarifier reports whether model text is an unavailability notice or a
// clarifying question rather than an analysis
func IsClarifier(raw string) bool {
	return strings.HasPrefix(strings.TrimSpace(raw), unavailableMarker) ||
		strings.Contains(raw, clarifierPhrase) ||
		strings.Contains(strings.ToLower(raw), "clarify")
}

// ClarifierFallback builds a low-confidence result from the report text alone
func ClarifierFallback(roleName, text string, maxChars int) models.SpecialistResult {
	body := preprocess.Truncate(preprocess.CleanText(text, maxChars), fallbackBodyChars)
	lower := strings.ToLower(body)

	found := []any{}
	for _, kw := range clinicalKeywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}

	recs := []any{}
	for _, r := range RecommendationsFor(roleName) {
		recs = append(recs, r)
	}

	return normalize.Result(map[string]any{
		"summary":           preprocess.Truncate(strings.TrimSpace(body), fallbackSummaryChars),
		"likely_conditions": found,
		"recommendations":   recs,
		"confidence":        models.LevelLow,
		"severity":          models.LevelLow,
	}, roleName)
}

// RecommendationsFor returns the canned advice for a role name
func RecommendationsFor(roleName string) []string {
	lower := strings.ToLower(roleName)
	for _, c := range cannedRecommendations {
		if strings.Contains(lower, c.fragment) {
			return append([]string(nil), c.advice...)
		}
	}
	return append([]string(nil), genericRecommendation...)
}
