package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"

	"github.com/ternarybob/healthscope/internal/app"
	"github.com/ternarybob/healthscope/internal/common"
)

func main() {
	configPath := os.Getenv("HEALTHSCOPE_CONFIG")
	if configPath == "" {
		if _, err := os.Stat("healthscope.toml"); err == nil {
			configPath = "healthscope.toml"
		}
	}

	config, err := common.LoadFromFiles(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Minimal logging to avoid cluttering MCP stdio
	logger := arbor.NewLogger().WithConsoleWriter(arbor_models.WriterConfiguration{
		Type:       arbor_models.LogWriterTypeConsole,
		TimeFormat: "15:04:05",
	}).WithLevelFromString("error")

	application, err := app.New(config, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	mcpServer := newMCPServer(application, logger)

	// Blocks on stdio
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Error().Err(err).Msg("MCP server failed")
	}
}

func newMCPServer(application *app.App, logger arbor.ILogger) *server.MCPServer {
	mcpServer := server.NewMCPServer(
		"healthscope",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(createAnalyzeReportTool(), handleAnalyzeReport(application.AnalysisService, logger))
	mcpServer.AddTool(createAggregateOpinionsTool(), handleAggregateOpinions(application.Aggregator))
	mcpServer.AddTool(createListSpecialistsTool(), handleListSpecialists(application.Catalogue))

	return mcpServer
}
