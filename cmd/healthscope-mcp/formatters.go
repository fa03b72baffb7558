package main

import (
	"fmt"
	"strings"

	"github.com/ternarybob/healthscope/internal/models"
	"github.com/ternarybob/healthscope/internal/services/agents"
)

// formatAggregate formats an aggregated report as markdown
func formatAggregate(report models.AggregatedReport) string {
	var sb strings.Builder
	sb.WriteString("## Combined Opinion\n\n")
	sb.WriteString(report.ExecutiveSummary)
	sb.WriteString("\n\n")

	writeSection(&sb, "Consensus Findings", report.ConsensusFindings)
	writeSection(&sb, "Conditions", report.AllConditions)
	writeSection(&sb, "Recommendations", report.Recommendations)
	writeSection(&sb, "Next Steps", report.NextSteps)

	if len(report.SpecialistSuggestions) > 0 {
		sb.WriteString("### Suggested Specialists\n")
		for _, specialist := range report.SpecialistSuggestions {
			sb.WriteString(fmt.Sprintf("- **%s**: %s\n", specialist, report.SpecialistExplanations[specialist]))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("*" + report.Disclaimer + "*\n")
	return sb.String()
}

// formatSpecialists formats the role catalogue as a markdown table
func formatSpecialists(roles []agents.Role) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Specialists (%d)\n\n", len(roles)))
	sb.WriteString("| Key | Name | Also accepted |\n")
	sb.WriteString("|-----|------|---------------|\n")
	for _, role := range roles {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", role.Key, role.Name, strings.Join(role.Aliases, ", ")))
	}
	return sb.String()
}

func writeSection(sb *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("### " + heading + "\n")
	for _, item := range items {
		sb.WriteString("- " + item + "\n")
	}
	sb.WriteString("\n")
}
