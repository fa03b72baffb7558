package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createAnalyzeReportTool returns the analyze_report tool definition
func createAnalyzeReportTool() mcp.Tool {
	return mcp.NewTool("analyze_report",
		mcp.WithDescription("Run the specialist panel over a medical report and return the combined assessment"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Report text (lab values, findings, discharge notes)"),
		),
		mcp.WithString("specialist",
			mcp.Description("Consult one specialist only, e.g. cardiology, pulmo, hema (default: full panel)"),
		),
	)
}

// createAggregateOpinionsTool returns the aggregate_opinions tool definition
func createAggregateOpinionsTool() mcp.Tool {
	return mcp.NewTool("aggregate_opinions",
		mcp.WithDescription("Merge free-text specialist opinions into one report with referral suggestions"),
		mcp.WithArray("texts",
			mcp.Required(),
			mcp.WithStringItems(),
			mcp.Description("One opinion per item"),
		),
	)
}

// createListSpecialistsTool returns the list_specialists tool definition
func createListSpecialistsTool() mcp.Tool {
	return mcp.NewTool("list_specialists",
		mcp.WithDescription("List the specialist roles and the names they can be requested by"),
	)
}
