package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/healthscope/internal/models"
	"github.com/ternarybob/healthscope/internal/services/agents"
	"github.com/ternarybob/healthscope/internal/services/aggregator"
	"github.com/ternarybob/healthscope/internal/services/analysis"
	"github.com/ternarybob/healthscope/internal/services/pdf"
)

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(text)},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	result := textResult(text)
	result.IsError = true
	return result
}

// handleAnalyzeReport implements the analyze_report tool
func handleAnalyzeReport(service *analysis.Service, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := request.RequireString("text")
		if err != nil || strings.TrimSpace(text) == "" {
			return errorResult("Error: text parameter is required"), nil
		}
		specialist := request.GetString("specialist", "")

		resp, err := service.Analyze(ctx, analysis.AnalyzeRequest{
			Text:       text,
			Source:     "mcp",
			Specialist: specialist,
			RunAll:     specialist == "",
			Aggregate:  true,
		})

		var unknown *analysis.UnknownSpecialistError
		switch {
		case errors.Is(err, analysis.ErrNotMedicalReport):
			return errorResult("The text does not appear to be a medical report."), nil
		case errors.As(err, &unknown):
			return errorResult(fmt.Sprintf("Unknown specialist: %s. Use list_specialists for valid names.", unknown.Name)), nil
		case err != nil:
			logger.Error().Err(err).Msg("Report analysis failed")
			return errorResult(fmt.Sprintf("Analysis error: %v", err)), nil
		}

		detail, err := service.Detail(ctx, resp.ReportID)
		if err != nil {
			logger.Error().Err(err).Str("report_id", resp.ReportID).Msg("Failed to load analysed report")
			return errorResult(fmt.Sprintf("Analysis stored but could not be loaded: %v", err)), nil
		}

		return textResult(pdf.ReportMarkdown(detail.Report, detail.Final, detail.Analyses)), nil
	}
}

// handleAggregateOpinions implements the aggregate_opinions tool
func handleAggregateOpinions(agg *aggregator.Aggregator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		texts := request.GetStringSlice("texts", nil)

		inputs := make([]models.AggregateInput, 0, len(texts))
		for _, text := range texts {
			if strings.TrimSpace(text) != "" {
				inputs = append(inputs, models.RawInput(text))
			}
		}
		if len(inputs) == 0 {
			return errorResult("Error: texts must contain at least one opinion"), nil
		}

		return textResult(formatAggregate(agg.Aggregate(ctx, inputs))), nil
	}
}

// handleListSpecialists implements the list_specialists tool
func handleListSpecialists(catalogue *agents.Catalogue) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return textResult(formatSpecialists(catalogue.Roles())), nil
	}
}
