package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/healthscope/internal/services/chat"
	"github.com/ternarybob/healthscope/internal/services/doctor"
)

// ChatStartBody is the request for POST /api/chatbot/start
type ChatStartBody struct {
	Lang string `json:"lang" validate:"lang"`
}

// ChatMessageBody is the request for POST /api/chatbot/message
type ChatMessageBody struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Lang      string `json:"lang" validate:"lang"`
}

// ChatSummaryBody is the request for POST /api/chatbot/summary
type ChatSummaryBody struct {
	SessionID string `json:"session_id"`
	Lang      string `json:"lang" validate:"lang"`
}

// RenameBody is the request for PUT /api/chatbot/sessions/{id}/title
type RenameBody struct {
	Title string `json:"title"`
}

// DoctorSummaryBody is the request for POST /api/doctor/summary
type DoctorSummaryBody struct {
	Cases []string `json:"cases" validate:"required,min=1"`
	Lang  string   `json:"lang" validate:"lang"`
}

// ChatbotHandler serves the symptom chatbot and the doctor summary
type ChatbotHandler struct {
	chatbot *chat.Chatbot
	doctor  *doctor.Service
	logger  arbor.ILogger
}

func NewChatbotHandler(chatbot *chat.Chatbot, doctorService *doctor.Service, logger arbor.ILogger) *ChatbotHandler {
	return &ChatbotHandler{
		chatbot: chatbot,
		doctor:  doctorService,
		logger:  logger,
	}
}

// StartHandler handles POST /api/chatbot/start. The body is optional.
func (h *ChatbotHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var body ChatStartBody
	if r.ContentLength > 0 && !DecodeJSON(w, r, &body) {
		return
	}

	session, greeting := h.chatbot.Start(body.Lang)
	WriteJSON(w, http.StatusOK, map[string]string{
		"session_id": session.ID,
		"message":    greeting,
	})
}

// MessageHandler handles POST /api/chatbot/message
func (h *ChatbotHandler) MessageHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var body ChatMessageBody
	if !DecodeJSON(w, r, &body) {
		return
	}

	reply, err := h.chatbot.Message(r.Context(), body.SessionID, body.Message, body.Lang)
	if err != nil {
		h.writeChatError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"response":   reply,
		"session_id": body.SessionID,
	})
}

// SummaryHandler handles POST /api/chatbot/summary
func (h *ChatbotHandler) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var body ChatSummaryBody
	if !DecodeJSON(w, r, &body) {
		return
	}

	summary, err := h.chatbot.Summary(r.Context(), body.SessionID, body.Lang)
	if err != nil {
		h.writeChatError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"structured_history": summary})
}

// ListSessionsHandler handles GET /api/chatbot/sessions
func (h *ChatbotHandler) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"sessions": h.chatbot.Sessions()})
}

// SessionRoutes handles /api/chatbot/sessions/{id} (GET, DELETE),
// /api/chatbot/sessions/{id}/export (GET) and /api/chatbot/sessions/{id}/title (PUT)
func (h *ChatbotHandler) SessionRoutes(w http.ResponseWriter, r *http.Request) {
	id := PathID(r.URL.Path, "/api/chatbot/sessions/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	switch {
	case strings.HasSuffix(r.URL.Path, "/export"):
		if !RequireMethod(w, r, http.MethodGet) {
			return
		}
		export, err := h.chatbot.Export(id)
		if err != nil {
			WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"export": export})

	case strings.HasSuffix(r.URL.Path, "/title"):
		if !RequireMethod(w, r, http.MethodPut) {
			return
		}
		var body RenameBody
		if !DecodeJSON(w, r, &body) {
			return
		}
		if err := h.chatbot.Rename(id, body.Title); err != nil {
			if errors.Is(err, chat.ErrSessionNotFound) {
				WriteError(w, http.StatusNotFound, "Not found")
				return
			}
			h.writeChatError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "title": strings.TrimSpace(body.Title)})

	case r.Method == http.MethodGet:
		session, ok := h.chatbot.Session(id)
		if !ok {
			WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		WriteJSON(w, http.StatusOK, session)

	case r.Method == http.MethodDelete:
		if !h.chatbot.Delete(id) {
			WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})

	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// DoctorSummaryHandler handles POST /api/doctor/summary
func (h *ChatbotHandler) DoctorSummaryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var body DoctorSummaryBody
	if !DecodeJSON(w, r, &body) {
		return
	}

	WriteJSON(w, http.StatusOK, h.doctor.Summarize(r.Context(), body.Cases, body.Lang))
}

func (h *ChatbotHandler) writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrSessionNotFound):
		WriteError(w, http.StatusBadRequest, "Invalid session.")
	case errors.Is(err, chat.ErrMessageRequired):
		WriteError(w, http.StatusBadRequest, "Message required.")
	case errors.Is(err, chat.ErrTitleRequired):
		WriteError(w, http.StatusBadRequest, "title required")
	default:
		h.logger.Error().Err(err).Msg("Chatbot request failed")
		WriteError(w, http.StatusBadGateway, "Chat model unavailable")
	}
}
