package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/healthscope/internal/services/chat"
)

func startSession(t *testing.T, h *testHandlers) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.chatbot.StartHandler(rec, httptest.NewRequest(http.MethodPost, "/api/chatbot/start", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, chat.StartGreeting, body["message"])
	return body["session_id"].(string)
}

func TestChatbotHandler_Conversation(t *testing.T) {
	h := newTestHandlers(t)
	id := startSession(t, h)

	rec := httptest.NewRecorder()
	h.chatbot.MessageHandler(rec, jsonRequest(http.MethodPost, "/api/chatbot/message",
		map[string]string{"session_id": id, "message": "I have a dry cough for three days"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Tell me more about the cough.", decode(t, rec)["response"])

	rec = httptest.NewRecorder()
	h.chatbot.SummaryHandler(rec, jsonRequest(http.MethodPost, "/api/chatbot/summary", map[string]string{"session_id": id}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["structured_history"])

	rec = httptest.NewRecorder()
	h.chatbot.ListSessionsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/chatbot/sessions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	sessions := decode(t, rec)["sessions"].([]interface{})
	require.Len(t, sessions, 1)
	info := sessions[0].(map[string]interface{})
	assert.Equal(t, id, info["session_id"])
	assert.Equal(t, "I have a dry cough for", info["title"])
	assert.EqualValues(t, 2, info["length"])

	rec = httptest.NewRecorder()
	h.chatbot.SessionRoutes(rec, httptest.NewRequest(http.MethodGet, "/api/chatbot/sessions/"+id+"/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "USER: I have a dry cough for three days\nAI: Tell me more about the cough.", decode(t, rec)["export"])

	rec = httptest.NewRecorder()
	h.chatbot.SessionRoutes(rec, jsonRequest(http.MethodPut, "/api/chatbot/sessions/"+id+"/title", map[string]string{"title": "  Cough  "}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Cough", decode(t, rec)["title"])

	rec = httptest.NewRecorder()
	h.chatbot.SessionRoutes(rec, httptest.NewRequest(http.MethodGet, "/api/chatbot/sessions/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Cough", decode(t, rec)["title"])

	rec = httptest.NewRecorder()
	h.chatbot.SessionRoutes(rec, httptest.NewRequest(http.MethodDelete, "/api/chatbot/sessions/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.chatbot.SessionRoutes(rec, httptest.NewRequest(http.MethodGet, "/api/chatbot/sessions/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatbotHandler_Errors(t *testing.T) {
	h := newTestHandlers(t)
	id := startSession(t, h)

	tests := []struct {
		name    string
		call    func(w http.ResponseWriter, r *http.Request)
		req     *http.Request
		status  int
		message string
	}{
		{
			name:    "unknown session",
			call:    h.chatbot.MessageHandler,
			req:     jsonRequest(http.MethodPost, "/api/chatbot/message", map[string]string{"session_id": "nope", "message": "hello"}),
			status:  http.StatusBadRequest,
			message: "Invalid session.",
		},
		{
			name:    "blank message",
			call:    h.chatbot.MessageHandler,
			req:     jsonRequest(http.MethodPost, "/api/chatbot/message", map[string]string{"session_id": id, "message": "   "}),
			status:  http.StatusBadRequest,
			message: "Message required.",
		},
		{
			name:    "summary of unknown session",
			call:    h.chatbot.SummaryHandler,
			req:     jsonRequest(http.MethodPost, "/api/chatbot/summary", map[string]string{"session_id": "nope"}),
			status:  http.StatusBadRequest,
			message: "Invalid session.",
		},
		{
			name:    "blank title",
			call:    h.chatbot.SessionRoutes,
			req:     jsonRequest(http.MethodPut, "/api/chatbot/sessions/"+id+"/title", map[string]string{"title": " "}),
			status:  http.StatusBadRequest,
			message: "title required",
		},
		{
			name:   "rename unknown session",
			call:   h.chatbot.SessionRoutes,
			req:    jsonRequest(http.MethodPut, "/api/chatbot/sessions/nope/title", map[string]string{"title": "x"}),
			status: http.StatusNotFound,
		},
		{
			name:   "export unknown session",
			call:   h.chatbot.SessionRoutes,
			req:    httptest.NewRequest(http.MethodGet, "/api/chatbot/sessions/nope/export", nil),
			status: http.StatusNotFound,
		},
		{
			name:   "unsupported start lang",
			call:   h.chatbot.StartHandler,
			req:    jsonRequest(http.MethodPost, "/api/chatbot/start", map[string]string{"lang": "de"}),
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.call(rec, tt.req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.message != "" {
				assert.Equal(t, tt.message, decode(t, rec)["error"])
			}
		})
	}
}

func TestChatbotHandler_ProviderFailure(t *testing.T) {
	h := newTestHandlers(t)
	h.provider.promptFunc = func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("upstream down")
	}
	id := startSession(t, h)

	rec := httptest.NewRecorder()
	h.chatbot.MessageHandler(rec, jsonRequest(http.MethodPost, "/api/chatbot/message",
		map[string]string{"session_id": id, "message": "Sharp chest pain since morning"}))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	// canned replies do not need the model
	rec = httptest.NewRecorder()
	h.chatbot.MessageHandler(rec, jsonRequest(http.MethodPost, "/api/chatbot/message",
		map[string]string{"session_id": id, "message": "hello there"}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, chat.AnonymousGreeting, decode(t, rec)["response"])
}

func TestDoctorSummaryHandler(t *testing.T) {
	h := newTestHandlers(t)
	h.provider.promptFunc = func(ctx context.Context, prompt string) (string, error) {
		if !strings.Contains(prompt, "Fever for two days") {
			return "", errors.New("cases missing from prompt")
		}
		return `{"summary": "Two febrile patients", "highlights": ["Fever"]}`, nil
	}

	rec := httptest.NewRecorder()
	h.chatbot.DoctorSummaryHandler(rec, jsonRequest(http.MethodPost, "/api/doctor/summary",
		map[string]interface{}{"cases": []string{"Fever for two days", "Fever and rash"}}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Two febrile patients", body["summary"])
	assert.Equal(t, []interface{}{"Fever"}, body["highlights"])

	rec = httptest.NewRecorder()
	h.chatbot.DoctorSummaryHandler(rec, jsonRequest(http.MethodPost, "/api/doctor/summary", map[string]interface{}{"cases": []string{}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
