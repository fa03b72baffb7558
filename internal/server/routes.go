package server

import (
	"net/http"
	"strings"

	"github.com/ternarybob/healthscope/internal/metrics"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws/chat", s.app.ChatSocketHandler.HandleWebSocket)

	// API routes - Report analysis
	mux.HandleFunc("/api/analyze", s.app.AnalysisHandler.AnalyzeHandler)
	mux.HandleFunc("/api/aggregate", s.app.AnalysisHandler.AggregateHandler)
	mux.HandleFunc("/api/reports", s.app.AnalysisHandler.ListReportsHandler)
	// GET/DELETE /{id} and GET /{id}/pdf
	mux.HandleFunc("/api/reports/", s.app.AnalysisHandler.ReportRoutes)
	mux.HandleFunc("/api/specialists", s.app.APIHandler.SpecialistsHandler)
	mux.HandleFunc("/api/doctor/summary", s.app.ChatbotHandler.DoctorSummaryHandler)

	// API routes - Symptom chatbot
	mux.HandleFunc("/api/chatbot/start", s.app.ChatbotHandler.StartHandler)
	mux.HandleFunc("/api/chatbot/message", s.app.ChatbotHandler.MessageHandler)
	mux.HandleFunc("/api/chatbot/summary", s.app.ChatbotHandler.SummaryHandler)
	mux.HandleFunc("/api/chatbot/sessions", s.app.ChatbotHandler.ListSessionsHandler)
	// GET/DELETE /{id}, /export, /title
	mux.HandleFunc("/api/chatbot/sessions/", s.app.ChatbotHandler.SessionRoutes)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	if s.app.Config.Metrics.Enabled {
		mux.Handle("/metrics", metrics.Handler())
	}

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// routeLabel maps a request path to its route pattern so metrics stay low-cardinality
func routeLabel(r *http.Request) string {
	path := r.URL.Path

	switch {
	case strings.HasPrefix(path, "/api/reports/"):
		if strings.HasSuffix(path, "/pdf") {
			return "/api/reports/{id}/pdf"
		}
		return "/api/reports/{id}"
	case strings.HasPrefix(path, "/api/chatbot/sessions/"):
		switch {
		case strings.HasSuffix(path, "/export"):
			return "/api/chatbot/sessions/{id}/export"
		case strings.HasSuffix(path, "/title"):
			return "/api/chatbot/sessions/{id}/title"
		}
		return "/api/chatbot/sessions/{id}"
	}

	if knownRoutes[path] {
		return path
	}
	return "other"
}

var knownRoutes = map[string]bool{
	"/api/analyze":          true,
	"/api/aggregate":        true,
	"/api/reports":          true,
	"/api/specialists":      true,
	"/api/doctor/summary":   true,
	"/api/chatbot/start":    true,
	"/api/chatbot/message":  true,
	"/api/chatbot/summary":  true,
	"/api/chatbot/sessions": true,
	"/api/version":          true,
	"/api/health":           true,
	"/metrics":              true,
}
