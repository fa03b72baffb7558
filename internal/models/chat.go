package models

import "time"

// Chat roles
const (
	ChatRoleUser = "user"
	ChatRoleAI   = "ai"
)

// ChatTurn is one message in a symptom chat
type ChatTurn struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// ChatSession is a symptom chat with its bounded history
type ChatSession struct {
	ID           string     `json:"session_id"`
	Title        string     `json:"title"`
	Lang         string     `json:"lang"`
	Name         string     `json:"name,omitempty"`
	History      []ChatTurn `json:"history"`
	CreatedAt    time.Time  `json:"created_at"`
	LastActiveAt time.Time  `json:"last_active_at"`
}

// ChatSessionInfo is the list view of a session
type ChatSessionInfo struct {
	ID           string    `json:"session_id"`
	Title        string    `json:"title"`
	Turns        int       `json:"length"`
	LastMessage  string    `json:"last_message"`
	LastActiveAt time.Time `json:"last_active_at"`
}
