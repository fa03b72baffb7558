package chat

import (
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/healthscope/internal/common"
	"github.com/ternarybob/healthscope/internal/interfaces"
	"github.com/ternarybob/healthscope/internal/metrics"
	"github.com/ternarybob/healthscope/internal/models"
)

// DefaultTitle is the title of a session before its first health message
const DefaultTitle = "New chat"

// MemoryStore is a process-wide in-memory SessionStore. History is bounded
// per session and the number of sessions is capped; when full, the least
// recently active session is evicted.
type MemoryStore struct {
	mu          sync.Mutex
	sessions    map[string]*models.ChatSession
	maxHistory  int
	maxSessions int
	now         func() time.Time
}

var _ interfaces.SessionStore = (*MemoryStore)(nil)

// NewMemoryStore creates a session store. Non-positive limits fall back to
// 10 turns and 500 sessions.
func NewMemoryStore(maxHistory, maxSessions int) *MemoryStore {
	if maxHistory <= 0 {
		maxHistory = 10
	}
	if maxSessions <= 0 {
		maxSessions = 500
	}
	return &MemoryStore{
		sessions:    make(map[string]*models.ChatSession),
		maxHistory:  maxHistory,
		maxSessions: maxSessions,
		now:         time.Now,
	}
}

func (s *MemoryStore) Create(lang string) *models.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.sessions) >= s.maxSessions {
		s.evictOldestLocked()
	}

	now := s.now()
	session := &models.ChatSession{
		ID:           common.NewSessionID(),
		Title:        DefaultTitle,
		Lang:         lang,
		History:      []models.ChatTurn{},
		CreatedAt:    now,
		LastActiveAt: now,
	}
	s.sessions[session.ID] = session
	metrics.SetChatSessions(len(s.sessions))

	return clone(session)
}

func (s *MemoryStore) Get(id string) (*models.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return clone(session), true
}

func (s *MemoryStore) Update(id string, fn func(s *models.ChatSession)) (*models.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, false
	}

	fn(session)
	if n := len(session.History); n > s.maxHistory {
		session.History = append([]models.ChatTurn(nil), session.History[n-s.maxHistory:]...)
	}
	session.LastActiveAt = s.now()

	return clone(session), true
}

func (s *MemoryStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	metrics.SetChatSessions(len(s.sessions))
	return true
}

// List returns every session, most recently active first
func (s *MemoryStore) List() []models.ChatSessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]models.ChatSessionInfo, 0, len(s.sessions))
	for _, session := range s.sessions {
		info := models.ChatSessionInfo{
			ID:           session.ID,
			Title:        session.Title,
			Turns:        len(session.History),
			LastActiveAt: session.LastActiveAt,
		}
		if n := len(session.History); n > 0 {
			info.LastMessage = session.History[n-1].Content
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].LastActiveAt.After(infos[j].LastActiveAt)
	})
	return infos
}

func (s *MemoryStore) Prune(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-ttl)
	removed := 0
	for id, session := range s.sessions {
		if session.LastActiveAt.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		metrics.SetChatSessions(len(s.sessions))
	}
	return removed
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *MemoryStore) evictOldestLocked() {
	var oldest *models.ChatSession
	for _, session := range s.sessions {
		if oldest == nil || session.LastActiveAt.Before(oldest.LastActiveAt) {
			oldest = session
		}
	}
	if oldest != nil {
		delete(s.sessions, oldest.ID)
	}
}

func clone(session *models.ChatSession) *models.ChatSession {
	c := *session
	c.History = append([]models.ChatTurn{}, session.History...)
	return &c
}
