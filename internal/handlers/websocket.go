package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/healthscope/internal/services/chat"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsMaxMessage = 16 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// ChatFrame is a client message on /ws/chat
type ChatFrame struct {
	Message string `json:"message"`
	Lang    string `json:"lang"`
}

// ChatReplyFrame is a server message on /ws/chat
type ChatReplyFrame struct {
	SessionID string `json:"session_id,omitempty"`
	Response  string `json:"response,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ChatSocketHandler runs chatbot conversations over a websocket
type ChatSocketHandler struct {
	chatbot *chat.Chatbot
	logger  arbor.ILogger
}

func NewChatSocketHandler(chatbot *chat.Chatbot, logger arbor.ILogger) *ChatSocketHandler {
	return &ChatSocketHandler{
		chatbot: chatbot,
		logger:  logger,
	}
}

// HandleWebSocket handles GET /ws/chat?session_id=. An unknown or missing
// session id starts a new session, announced in the first frame.
func (h *ChatSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade chat websocket")
		return
	}
	defer conn.Close()

	sessionID := r.URL.Query().Get("session_id")
	if _, ok := h.chatbot.Session(sessionID); !ok {
		session, greeting := h.chatbot.Start(r.URL.Query().Get("lang"))
		sessionID = session.ID
		if err := h.write(conn, ChatReplyFrame{SessionID: sessionID, Response: greeting}); err != nil {
			return
		}
	}

	h.logger.Debug().Str("session_id", sessionID).Msg("Chat websocket connected")

	conn.SetReadLimit(wsMaxMessage)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go h.keepAlive(conn, done)

	for {
		var frame ChatFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Chat websocket closed unexpectedly")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsPongWait))

		reply := ChatReplyFrame{SessionID: sessionID}
		response, err := h.chatbot.Message(r.Context(), sessionID, frame.Message, frame.Lang)
		if err != nil {
			reply.Error = err.Error()
		} else {
			reply.Response = response
		}

		if err := h.write(conn, reply); err != nil {
			return
		}
	}
}

func (h *ChatSocketHandler) keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func (h *ChatSocketHandler) write(conn *websocket.Conn, frame ChatReplyFrame) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(frame); err != nil {
		h.logger.Debug().Err(err).Msg("Failed to write chat websocket frame")
		return err
	}
	return nil
}
