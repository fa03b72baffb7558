package agents

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ternarybob/healthscope/internal/models"
)

// CBCPanel holds the values read from a complete blood count report.
// Nil pointers mean the value was not found.
type CBCPanel struct {
	Age       *int
	Sex       string // "male", "female" or ""
	Hb        *float64
	MCV       *float64
	MCH       *float64
	MCHC      *float64
	WBC       *float64
	Platelets *float64
}

var (
	cbcSpaces     = regexp.MustCompile(`\s+`)
	cbcAge        = regexp.MustCompile(`(?i)age\s*[:\-]?\s*([0-9]{1,3})`)
	cbcSex        = regexp.MustCompile(`(?i)sex\s*[:\-]?\s*(male|female|m|f)`)
	cbcHemoglobin = regexp.MustCompile(`(?i)hemoglobin\s*[:\-]?\s*([0-9]+\.?[0-9]*)`)
	cbcHb         = regexp.MustCompile(`(?i)hb\s*[:\-]?\s*([0-9]+\.?[0-9]*)`)
	cbcMCV        = regexp.MustCompile(`(?i)mcv\s*[:\-]?\s*([0-9]+\.?[0-9]*)`)
	cbcMCH        = regexp.MustCompile(`(?i)mch\s*[:\-]?\s*([0-9]+\.?[0-9]*)`)
	cbcMCHC       = regexp.MustCompile(`(?i)mchc\s*[:\-]?\s*([0-9]+\.?[0-9]*)`)
	cbcWBC        = regexp.MustCompile(`(?i)wbc\s*[:\-]?\s*([0-9]+,?[0-9]*)`)
	cbcPlatelets  = regexp.MustCompile(`(?i)platelets?\s*[:\-]?\s*([0-9]+,?[0-9]*)`)
)

// Hb thresholds in g/dL
type hbThresholds struct {
	critical float64
	low      float64
}

var hbBySex = map[string]hbThresholds{
	"male":   {critical: 10, low: 13},
	"female": {critical: 9, low: 12},
	"":       {critical: 10, low: 12},
}

const anemiaThreshold = 12.0

// ParseCBC reads CBC values from free text
func ParseCBC(text string) CBCPanel {
	t := cbcSpaces.ReplaceAllString(text, " ")

	var p CBCPanel
	if m := cbcAge.FindStringSubmatch(t); m != nil {
		if age, err := strconv.Atoi(m[1]); err == nil {
			p.Age = &age
		}
	}
	if m := cbcSex.FindStringSubmatch(t); m != nil {
		if strings.HasPrefix(strings.ToLower(m[1]), "m") {
			p.Sex = "male"
		} else {
			p.Sex = "female"
		}
	}

	// An explicit "Hb" reading wins over the spelled-out name
	p.Hb = findNumber(cbcHemoglobin, t)
	if hb := findNumber(cbcHb, t); hb != nil {
		p.Hb = hb
	}
	p.MCV = findNumber(cbcMCV, t)
	p.MCH = findNumber(cbcMCH, t)
	p.MCHC = findNumber(cbcMCHC, t)
	p.WBC = findNumber(cbcWBC, t)
	p.Platelets = findNumber(cbcPlatelets, t)

	return p
}

// Interpret turns a parsed panel into a low-confidence specialist result
func (p CBCPanel) Interpret(role string) models.SpecialistResult {
	out := models.NewSpecialistResult(role)
	out.Severity = models.LevelLow
	out.Confidence = models.LevelLow

	type lab struct{ name, value string }
	var labs []lab

	if p.Hb != nil {
		hb := *p.Hb
		limits := hbBySex[p.Sex]
		note := "normal"
		switch {
		case hb < limits.critical:
			note = "low (moderate to severe)"
			out.Severity = models.LevelHigh
		case hb < limits.low:
			note = "low (mild)"
			if out.Severity != models.LevelHigh {
				out.Severity = models.LevelMedium
			}
		}
		labs = append(labs, lab{"Hb", fmt.Sprintf("%s g/dL (%s)", formatLabValue(hb), note)})
	}
	if p.MCV != nil {
		note := "normal"
		if *p.MCV < 80 {
			note = "low (microcytosis)"
		} else if *p.MCV > 100 {
			note = "high (macrocytosis)"
		}
		labs = append(labs, lab{"MCV", fmt.Sprintf("%s fL (%s)", formatLabValue(*p.MCV), note)})
	}
	if p.MCH != nil {
		labs = append(labs, lab{"MCH", formatLabValue(*p.MCH) + " pg"})
	}
	if p.MCHC != nil {
		labs = append(labs, lab{"MCHC", formatLabValue(*p.MCHC) + " g/dL"})
	}
	if p.WBC != nil {
		labs = append(labs, lab{"WBC", formatLabValue(*p.WBC) + " /uL"})
		if *p.WBC < 4000 {
			out.Findings = append(out.Findings, "Leukopenia")
		} else if *p.WBC > 11000 {
			out.Findings = append(out.Findings, "Leukocytosis")
		}
	}
	if p.Platelets != nil {
		labs = append(labs, lab{"Platelets", formatLabValue(*p.Platelets) + " /uL"})
		count := plateletsInThousands(*p.Platelets)
		if count < 150 {
			out.Findings = append(out.Findings, "Thrombocytopenia")
		} else if count > 450 {
			out.Findings = append(out.Findings, "Thrombocytosis")
		}
	}

	if p.Hb != nil && *p.Hb < anemiaThreshold {
		out.Findings = append(out.Findings, "Anemia")
		out.LikelyConditions = append(out.LikelyConditions, "Iron deficiency anemia")
		out.RecommendedTests = append(out.RecommendedTests, "Serum ferritin", "Serum iron & TIBC", "Peripheral smear")
		out.RecommendedTreatments = append(out.RecommendedTreatments, "Consider oral iron supplementation if iron deficiency confirmed")
		out.PatientActions = append(out.PatientActions, "Start iron-rich diet and take prescribed iron as directed")
		out.NextSteps = append(out.NextSteps, "Repeat CBC and iron studies in 2-4 weeks")
	}

	var parts []string
	if len(out.Findings) > 0 {
		parts = append(parts, "Findings: "+strings.Join(out.Findings, ", "))
	}
	if len(labs) > 0 {
		labParts := make([]string, len(labs))
		for i, l := range labs {
			out.AbnormalValues[l.name] = l.value
			labParts[i] = l.name + " " + l.value
		}
		parts = append(parts, "Key abnormal labs: "+strings.Join(labParts, ", "))
	}
	if len(out.LikelyConditions) > 0 {
		parts = append(parts, "Most likely: "+strings.Join(out.LikelyConditions, ", "))
	}

	if len(parts) > 0 {
		out.Summary = strings.Join(parts, ". ")
	} else {
		out.Summary = "No major hematologic abnormalities detected."
	}

	return out
}

// LooksLikeRawCBC reports whether a hematology analysis is an echoed lab table
// rather than an interpretation. Prose answers trigger on "hemoglobin", or on
// "hb" together with "rbc". Structured answers trigger when they carry neither
// findings nor abnormal values while mentioning hb or hemoglobin.
func LooksLikeRawCBC(a Analysis) bool {
	if a.Kind == OutcomePlainText {
		lower := strings.ToLower(a.Raw)
		if strings.Contains(lower, "hemoglobin") || (strings.Contains(lower, "hb") && strings.Contains(lower, "rbc")) {
			return true
		}
	}

	r := a.Result
	if len(r.Findings) > 0 || len(r.AbnormalValues) > 0 {
		return false
	}
	encoded, err := json.Marshal(r)
	if err != nil {
		return false
	}
	lower := strings.ToLower(string(encoded))
	return strings.Contains(lower, "hemoglobin") || strings.Contains(lower, "hb")
}

// plateletsInThousands accepts counts written either per uL (250000) or in thousands (250)
func plateletsInThousands(v float64) float64 {
	if v >= 1000 {
		return v / 1000
	}
	return v
}

func findNumber(re *regexp.Regexp, text string) *float64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return nil
	}
	return &v
}

// formatLabValue renders readings with at least one decimal place: 8.5, 12.0, 7000.0
func formatLabValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
