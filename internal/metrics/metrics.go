// Package metrics exposes Prometheus collectors for the analysis pipeline.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Agent run outcomes
const (
	OutcomeJSON          = "json"
	OutcomeClarifier     = "clarifier_fallback"
	OutcomePlainText     = "plain_text"
	OutcomeProviderError = "provider_error"
	OutcomeStrictRetry   = "strict_retry"
	OutcomeCBCFallback   = "cbc_fallback"
	OutcomeAgentError    = "agent_error"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthscope_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "healthscope_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path"},
	)

	agentRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthscope_agent_runs_total",
			Help: "Specialist agent runs by outcome",
		},
		[]string{"role", "outcome"},
	)

	completionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "healthscope_completion_duration_seconds",
			Help:    "Completion provider call duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "status"},
	)

	reportsAnalyzed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthscope_reports_analyzed_total",
			Help: "Reports accepted for analysis",
		},
		[]string{"mode"},
	)

	chatSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "healthscope_chat_sessions_active",
			Help: "Chat sessions currently held in memory",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency.
// pathLabel maps a request to a low-cardinality label (route pattern).
func Middleware(pathLabel func(r *http.Request) string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		path := pathLabel(r)
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack keeps websocket upgrades working behind the middleware
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, fmt.Errorf("hijacking not supported")
}

// RecordAgentRun counts one specialist run
func RecordAgentRun(role, outcome string) {
	agentRunsTotal.WithLabelValues(role, outcome).Inc()
}

// RecordCompletion observes one completion provider call
func RecordCompletion(provider string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	completionDuration.WithLabelValues(provider, status).Observe(duration.Seconds())
}

// RecordReportAnalyzed counts one accepted report by panel mode
func RecordReportAnalyzed(mode string) {
	reportsAnalyzed.WithLabelValues(mode).Inc()
}

// SetChatSessions reports the current session count
func SetChatSessions(n int) {
	chatSessionsActive.Set(float64(n))
}
