package interfaces

import (
	"time"

	"github.com/ternarybob/healthscope/internal/models"
)

// SessionStore holds symptom chat sessions for the lifetime of the process.
// Implementations are safe for concurrent use.
type SessionStore interface {
	Create(lang string) *models.ChatSession
	Get(id string) (*models.ChatSession, bool)
	// Update applies fn to the stored session under the store lock.
	Update(id string, fn func(s *models.ChatSession)) (*models.ChatSession, bool)
	Delete(id string) bool
	List() []models.ChatSessionInfo
	// Prune removes sessions idle longer than ttl and returns how many were removed.
	Prune(ttl time.Duration) int
	Len() int
}
