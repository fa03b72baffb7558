package aggregator

import (
	"fmt"
	"regexp"
	"strings"
)

type referralRule struct {
	keyword    string
	specialist string
}

// referralRules is walked in order; the first keyword found for a specialist is the one cited
var referralRules = []referralRule{
	{"hypertension", "Cardiologist"},
	{"chest", "Cardiologist"},
	{"ecg", "Cardiologist"},
	{"anxiety", "Psychologist / Neurologist"},
	{"depression", "Psychologist / Neurologist"},
	{"cough", "Pulmonologist"},
	{"breath", "Pulmonologist"},
	{"thyroid", "Endocrinologist"},
	{"diabetes", "Endocrinologist"},
	{"blood", "Hematologist / Pathologist"},
	{"liver", "Gastroenterologist"},
	{"stomach", "Gastroenterologist"},
	{"kidney", "Nephrologist"},
	{"skin", "Dermatologist"},
	{"rash", "Dermatologist"},
	{"xray", "Radiologist"},
	{"ct", "Radiologist"},
	{"mri", "Radiologist"},
}

// Referral is one suggested specialist and the keyword that triggered it
type Referral struct {
	Specialist  string
	Keyword     string
	Explanation string
}

// InferReferrals matches whole-word keywords in text against the referral table.
// Each specialist appears at most once, in table order.
func InferReferrals(text string) []Referral {
	search := strings.ToLower(text)

	var referrals []Referral
	seen := make(map[string]bool)
	for _, rule := range referralRules {
		if seen[rule.specialist] || !mentions(search, rule.keyword) {
			continue
		}
		seen[rule.specialist] = true
		referrals = append(referrals, Referral{
			Specialist: rule.specialist,
			Keyword:    rule.keyword,
			Explanation: fmt.Sprintf("Because the report mentions '%s', a %s may provide deeper evaluation and targeted recommendations.",
				rule.keyword, rule.specialist),
		})
	}
	return referrals
}

func mentions(search, keyword string) bool {
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(keyword) + `\b`)
	if err != nil {
		return strings.Contains(search, keyword)
	}
	return re.MatchString(search)
}
