package pdf

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/healthscope/internal/models"
)

// ReportMarkdown lays out a stored report as markdown: the aggregate first,
// then one section per specialist. final may be nil when no aggregate was built.
func ReportMarkdown(report *models.Report, final *models.FinalReport, analyses []*models.Analysis) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Medical Report Analysis\n\n")
	fmt.Fprintf(&b, "**Report:** %s  \n**Created:** %s\n\n", report.ID, report.CreatedAt.Format("2006-01-02 15:04"))

	if final != nil {
		agg := final.Payload

		b.WriteString("## Executive Summary\n\n")
		b.WriteString(escapeMarkdown(agg.ExecutiveSummary))
		b.WriteString("\n\n")

		writeList(&b, "Consensus Findings", agg.ConsensusFindings)
		writeList(&b, "Conditions", agg.AllConditions)
		writeList(&b, "Recommendations", agg.Recommendations)
		writeList(&b, "Next Steps", agg.NextSteps)

		if len(agg.SpecialistSuggestions) > 0 {
			b.WriteString("## Suggested Specialists\n\n| Specialist | Reason |\n|---|---|\n")
			for _, name := range agg.SpecialistSuggestions {
				fmt.Fprintf(&b, "| %s | %s |\n", escapeCell(name), escapeCell(agg.SpecialistExplanations[name]))
			}
			b.WriteString("\n")
		}
	}

	for _, a := range analyses {
		r := a.Payload
		name := r.Role
		if name == "" {
			name = a.Agent
		}

		fmt.Fprintf(&b, "## %s\n\n", escapeMarkdown(name))
		fmt.Fprintf(&b, "**Severity:** %s | **Confidence:** %s\n\n", r.Severity, r.Confidence)
		if r.Summary != "" {
			b.WriteString(escapeMarkdown(r.Summary))
			b.WriteString("\n\n")
		}

		writeList(&b, "Findings", r.Findings)
		writeList(&b, "Likely Conditions", r.LikelyConditions)
		writeList(&b, "Recommended Tests", r.RecommendedTests)
		writeList(&b, "Recommendations", r.Recommendations)

		if len(r.AbnormalValues) > 0 {
			b.WriteString("### Abnormal Values\n\n| Test | Value |\n|---|---|\n")
			keys := make([]string, 0, len(r.AbnormalValues))
			for k := range r.AbnormalValues {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&b, "| %s | %s |\n", escapeCell(k), escapeCell(fmt.Sprint(r.AbnormalValues[k])))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("---\n\n*")
	b.WriteString(models.Disclaimer)
	b.WriteString("*\n")

	return b.String()
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", escapeMarkdown(item))
	}
	b.WriteString("\n")
}

var markdownEscaper = strings.NewReplacer("*", `\*`, "_", `\_`, "#", `\#`, "`", "\\`")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(escapeMarkdown(s), "|", `\|`), "\n", " ")
}
