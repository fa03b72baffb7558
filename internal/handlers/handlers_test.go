package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/healthscope/internal/common"
	"github.com/ternarybob/healthscope/internal/services/agents"
	"github.com/ternarybob/healthscope/internal/services/aggregator"
	"github.com/ternarybob/healthscope/internal/services/analysis"
	"github.com/ternarybob/healthscope/internal/services/chat"
	"github.com/ternarybob/healthscope/internal/services/doctor"
	"github.com/ternarybob/healthscope/internal/services/pdf"
	"github.com/ternarybob/healthscope/internal/services/preprocess"
	"github.com/ternarybob/healthscope/internal/services/translate"
	badgerstore "github.com/ternarybob/healthscope/internal/storage/badger"
)

const medicalText = "Patient: A. Rao. Hospital report. Persistent cough and wheeze, SpO2 93%."

// stubProvider implements interfaces.CompletionProvider for testing
type stubProvider struct {
	chatFunc   func(ctx context.Context, system, user string) (string, error)
	promptFunc func(ctx context.Context, prompt string) (string, error)
}

func (p *stubProvider) Chat(ctx context.Context, system, user string) (string, error) {
	if p.chatFunc != nil {
		return p.chatFunc(ctx, system, user)
	}
	return `{"summary": "Airway narrowing suspected", "findings": ["Wheeze"], "likely_conditions": ["Asthma"]}`, nil
}

func (p *stubProvider) Prompt(ctx context.Context, prompt string) (string, error) {
	if p.promptFunc != nil {
		return p.promptFunc(ctx, prompt)
	}
	return "Tell me more about the cough.", nil
}

func (p *stubProvider) Summarize(ctx context.Context, text string) (string, error) {
	return "Likely reactive airway disease", nil
}

type testHandlers struct {
	api      *APIHandler
	analysis *AnalysisHandler
	chatbot  *ChatbotHandler
	socket   *ChatSocketHandler
	provider *stubProvider
}

func newTestHandlers(t *testing.T) *testHandlers {
	t.Helper()
	logger := arbor.NewLogger()

	manager, err := badgerstore.NewManager(logger, &common.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	provider := &stubProvider{}
	catalogue := agents.MustLoadCatalogue()
	panel := agents.NewPanel(catalogue, provider, logger, agents.PanelOptions{MaxConcurrency: 4})
	agg := aggregator.NewAggregator(provider, logger)
	translator := translate.NewTranslator(provider, logger)

	service := analysis.NewService(panel, agg, translator, manager.ReportStorage(), pdf.NewRenderer(logger), logger,
		analysis.Options{AggregateRoles: []string{"cardiology", "psychology", "pulmonology"}})
	chatbot := chat.NewChatbot(chat.NewMemoryStore(10, 10), provider, translator, logger)

	return &testHandlers{
		api:      NewAPIHandler(catalogue, logger),
		analysis: NewAnalysisHandler(service, agg, pdf.NewExtractor(logger), preprocess.NewHTMLConverter(logger), logger),
		chatbot:  NewChatbotHandler(chatbot, doctor.NewService(provider, logger), logger),
		socket:   NewChatSocketHandler(chatbot, logger),
		provider: provider,
	}
}

func jsonRequest(method, url string, body interface{}) *http.Request {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, url, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, url, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthAndSpecialists(t *testing.T) {
	h := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.api.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	rec = httptest.NewRecorder()
	h.api.SpecialistsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/specialists", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	specialists := decode(t, rec)["specialists"].([]interface{})
	assert.Len(t, specialists, 10)
	assert.NotContains(t, rec.Body.String(), "board-certified", "prompts stay private")

	rec = httptest.NewRecorder()
	h.api.HealthHandler(rec, httptest.NewRequest(http.MethodPost, "/api/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAnalyzeHandler_JSON(t *testing.T) {
	h := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.analysis.AnalyzeHandler(rec, jsonRequest(http.MethodPost, "/api/analyze?specialist=pulmo&aggregate=true",
		map[string]interface{}{"text": medicalText}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "specialist", body["mode"])
	assert.Contains(t, body["results"], "pulmonology")
	assert.NotNil(t, body["final_report"])
	assert.True(t, strings.HasPrefix(body["report_id"].(string), "rpt_"))
}

func TestAnalyzeHandler_Rejections(t *testing.T) {
	h := newTestHandlers(t)

	tests := []struct {
		name    string
		req     *http.Request
		status  int
		message string
	}{
		{
			name:    "no input",
			req:     jsonRequest(http.MethodPost, "/api/analyze", map[string]string{}),
			status:  http.StatusBadRequest,
			message: msgNoInput,
		},
		{
			name:    "not medical",
			req:     jsonRequest(http.MethodPost, "/api/analyze", map[string]string{"text": "Grocery list: rice, dal"}),
			status:  http.StatusBadRequest,
			message: msgNotMedical,
		},
		{
			name:    "unknown specialist",
			req:     jsonRequest(http.MethodPost, "/api/analyze?specialist=oracle", map[string]string{"text": medicalText}),
			status:  http.StatusBadRequest,
			message: "Unknown specialist: oracle",
		},
		{
			name:   "bad flag",
			req:    jsonRequest(http.MethodPost, "/api/analyze?run_all=maybe", map[string]string{"text": medicalText}),
			status: http.StatusBadRequest,
		},
		{
			name:   "bad lang",
			req:    jsonRequest(http.MethodPost, "/api/analyze", map[string]string{"text": medicalText, "lang": "fr"}),
			status: http.StatusBadRequest,
		},
		{
			name:    "image upload",
			req:     multipartRequest(t, "/api/analyze", "file", "scan.png", []byte{0x89, 'P', 'N', 'G'}),
			status:  http.StatusUnsupportedMediaType,
			message: msgImageUnsupported,
		},
		{
			name:   "wrong method",
			req:    httptest.NewRequest(http.MethodGet, "/api/analyze", nil),
			status: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.analysis.AnalyzeHandler(rec, tt.req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.message != "" {
				assert.Equal(t, tt.message, decode(t, rec)["error"])
			}
		})
	}
}

func TestAnalyzeHandler_Uploads(t *testing.T) {
	h := newTestHandlers(t)

	tests := []struct {
		name     string
		field    string
		filename string
		content  string
		contains string
	}{
		{"text file", "file", "report.txt", medicalText, "SpO2 93%"},
		{"report field", "report", "report.txt", medicalText, "Persistent cough"},
		{"html file", "file", "report.html", "<html><head><style>p{}</style></head><body><h1>Hospital Report</h1><p>Patient has a cough.</p><script>x()</script></body></html>", "Patient has a cough."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.analysis.AnalyzeHandler(rec, multipartRequest(t, "/api/analyze?run_all=false", tt.field, tt.filename, []byte(tt.content)))

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			body := decode(t, rec)
			assert.Equal(t, "store_only", body["mode"])
			assert.Contains(t, body["extracted_text_debug"], tt.contains)
			assert.NotContains(t, body["extracted_text_debug"], "x()")
		})
	}
}

func TestReportRoutes(t *testing.T) {
	h := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.analysis.AnalyzeHandler(rec, jsonRequest(http.MethodPost, "/api/analyze?specialist=cardiology&aggregate=true",
		map[string]string{"text": medicalText}))
	require.Equal(t, http.StatusOK, rec.Code)
	id := decode(t, rec)["report_id"].(string)

	rec = httptest.NewRecorder()
	h.analysis.ListReportsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/reports?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = httptest.NewRecorder()
	h.analysis.ReportRoutes(rec, httptest.NewRequest(http.MethodGet, "/api/reports/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode(t, rec)
	assert.Len(t, detail["analyses"], 1)
	assert.NotNil(t, detail["final_report"])

	rec = httptest.NewRecorder()
	h.analysis.ReportRoutes(rec, httptest.NewRequest(http.MethodGet, "/api/reports/"+id+"/pdf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = httptest.NewRecorder()
	h.analysis.ReportRoutes(rec, httptest.NewRequest(http.MethodDelete, "/api/reports/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	for _, path := range []string{"/api/reports/" + id, "/api/reports/" + id + "/pdf"} {
		rec = httptest.NewRecorder()
		h.analysis.ReportRoutes(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}

	rec = httptest.NewRecorder()
	h.analysis.ReportRoutes(rec, httptest.NewRequest(http.MethodDelete, "/api/reports/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAggregateHandler(t *testing.T) {
	h := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.analysis.AggregateHandler(rec, jsonRequest(http.MethodPost, "/api/aggregate",
		map[string]interface{}{"texts": []string{"Chest pain on exertion", "chest pain on exertion", "Skin rash"}}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, []interface{}{"Chest pain on exertion", "Skin rash"}, body["consensus_findings"])
	assert.Contains(t, body["specialist_suggestions"], "Cardiologist")

	rec = httptest.NewRecorder()
	h.analysis.AggregateHandler(rec, jsonRequest(http.MethodPost, "/api/aggregate", map[string]interface{}{"texts": []string{}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPathID(t *testing.T) {
	assert.Equal(t, "rpt_1", PathID("/api/reports/rpt_1", "/api/reports/"))
	assert.Equal(t, "rpt_1", PathID("/api/reports/rpt_1/pdf", "/api/reports/"))
	assert.Equal(t, "", PathID("/api/reports/", "/api/reports/"))
}
