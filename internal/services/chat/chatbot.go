package chat

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/healthscope/internal/interfaces"
	"github.com/ternarybob/healthscope/internal/models"
	"github.com/ternarybob/healthscope/internal/services/translate"
)

var (
	ErrSessionNotFound = errors.New("invalid session")
	ErrMessageRequired = errors.New("message required")
	ErrTitleRequired   = errors.New("title required")
)

// Canned replies
const (
	StartGreeting      = "Hello! Please describe your symptoms."
	AnonymousGreeting  = "Hello! I'm here to help with health questions. Tell me about your symptoms."
	HealthGuidance     = "I can help with medical symptoms and concerns. Could you describe any symptoms, duration, or severity?"
	clarifyInstruction = "AI: (Ask clarifying questions about symptoms, or summarize when ready.)"
	summaryInstruction = "AI: Summarize the patient's symptoms and medical history in structured form for specialist agents."
)

var (
	greetingPattern  = regexp.MustCompile(`\b(hi|hello|hey|good morning|good afternoon|good evening)\b`)
	howAreYouPattern = regexp.MustCompile(`\bhow are you\b`)
	namePattern      = regexp.MustCompile(`(?i)\b(?:my name is|i am|i'm|im)\s+([A-Za-z\-' ]{1,40})`)
)

var healthKeywords = []string{
	"pain", "fever", "cough", "symptom", "doctor", "medicine", "health", "sick", "illness", "diagnosis",
	"treatment", "hospital", "injury", "infection", "disease", "medical", "chest", "headache", "vomit",
	"nausea", "diarrhea", "cold", "flu", "allergy", "asthma", "breath", "heart", "blood", "pressure",
	"diabetes", "cancer", "fracture", "wound", "rash", "swelling", "burn", "anxiety", "depression",
	"mental", "fatigue", "weakness", "dizzy", "appetite", "weight", "sleep", "throat", "ear", "eye",
	"nose", "stomach", "abdomen", "back", "joint", "muscle", "bone", "skin",
}

// Chatbot runs symptom conversations on top of a SessionStore
type Chatbot struct {
	store      interfaces.SessionStore
	provider   interfaces.CompletionProvider
	translator *translate.Translator
	logger     arbor.ILogger
}

// NewChatbot creates a chatbot
func NewChatbot(store interfaces.SessionStore, provider interfaces.CompletionProvider, translator *translate.Translator, logger arbor.ILogger) *Chatbot {
	return &Chatbot{
		store:      store,
		provider:   provider,
		translator: translator,
		logger:     logger,
	}
}

// Store exposes the underlying session store
func (c *Chatbot) Store() interfaces.SessionStore {
	return c.store
}

// Start opens a session with an optional language preference
func (c *Chatbot) Start(lang string) (*models.ChatSession, string) {
	session := c.store.Create(lang)
	c.logger.Debug().Str("session_id", session.ID).Str("lang", lang).Msg("Chat session started")
	return session, StartGreeting
}

// Message answers one user message. lang overrides the session language when set.
func (c *Chatbot) Message(ctx context.Context, sessionID, message, lang string) (string, error) {
	session, ok := c.store.Get(sessionID)
	if !ok {
		return "", ErrSessionNotFound
	}
	if strings.TrimSpace(message) == "" {
		return "", ErrMessageRequired
	}
	lang = resolveLang(lang, session)

	lower := strings.ToLower(strings.TrimSpace(message))

	switch {
	case greetingPattern.MatchString(lower):
		reply := AnonymousGreeting
		if session.Name != "" {
			reply = fmt.Sprintf("Hello %s! How can I help you with your health today?", session.Name)
		}
		return c.cannedReply(ctx, sessionID, reply, lang, nil), nil

	case howAreYouPattern.MatchString(lower):
		name := ""
		if session.Name != "" {
			name = " " + session.Name
		}
		reply := fmt.Sprintf("I'm doing well, thanks for asking%s! How are you feeling today?", name)
		return c.cannedReply(ctx, sessionID, reply, lang, nil), nil
	}

	if name, ok := extractName(message); ok {
		reply := fmt.Sprintf("Nice to meet you, %s! How can I assist with your health today?", name)
		return c.cannedReply(ctx, sessionID, reply, lang, func(s *models.ChatSession) {
			s.Name = name
		}), nil
	}

	if !mentionsHealth(lower) {
		c.store.Update(sessionID, func(s *models.ChatSession) {
			s.History = append(s.History, turn(models.ChatRoleAI, HealthGuidance))
		})
		return HealthGuidance, nil
	}

	updated, ok := c.store.Update(sessionID, func(s *models.ChatSession) {
		s.History = append(s.History, turn(models.ChatRoleUser, message))
		if s.Title == "" || s.Title == DefaultTitle {
			s.Title = TitleFrom(message)
		}
	})
	if !ok {
		return "", ErrSessionNotFound
	}

	reply, err := c.provider.Prompt(ctx, transcript(updated.History, clarifyInstruction))
	if err != nil {
		return "", fmt.Errorf("failed to get chat reply: %w", err)
	}

	reply = c.translate(ctx, reply, lang)

	c.store.Update(sessionID, func(s *models.ChatSession) {
		s.History = append(s.History, turn(models.ChatRoleAI, reply))
	})

	c.logger.Debug().
		Str("session_id", sessionID).
		Int("turns", len(updated.History)+1).
		Msg("Chat reply generated")

	return reply, nil
}

// Summary produces a structured symptom history for the specialist panel
func (c *Chatbot) Summary(ctx context.Context, sessionID, lang string) (string, error) {
	session, ok := c.store.Get(sessionID)
	if !ok {
		return "", ErrSessionNotFound
	}
	lang = resolveLang(lang, session)

	summary, err := c.provider.Prompt(ctx, transcript(session.History, summaryInstruction))
	if err != nil {
		return "", fmt.Errorf("failed to summarize chat: %w", err)
	}

	return c.translate(ctx, summary, lang), nil
}

// Session returns a stored session
func (c *Chatbot) Session(sessionID string) (*models.ChatSession, bool) {
	return c.store.Get(sessionID)
}

// Sessions lists all sessions
func (c *Chatbot) Sessions() []models.ChatSessionInfo {
	return c.store.List()
}

// Delete removes a session
func (c *Chatbot) Delete(sessionID string) bool {
	return c.store.Delete(sessionID)
}

// Export renders the history as "ROLE: content" lines
func (c *Chatbot) Export(sessionID string) (string, error) {
	session, ok := c.store.Get(sessionID)
	if !ok {
		return "", ErrSessionNotFound
	}

	lines := make([]string, 0, len(session.History))
	for _, t := range session.History {
		lines = append(lines, strings.ToUpper(t.Role)+": "+t.Content)
	}
	return strings.Join(lines, "\n"), nil
}

// Rename sets a session title
func (c *Chatbot) Rename(sessionID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrTitleRequired
	}
	if _, ok := c.store.Update(sessionID, func(s *models.ChatSession) {
		s.Title = title
	}); !ok {
		return ErrSessionNotFound
	}
	return nil
}

// cannedReply records a fixed reply (translated when needed) and applies an optional session change
func (c *Chatbot) cannedReply(ctx context.Context, sessionID, reply, lang string, change func(s *models.ChatSession)) string {
	reply = c.translate(ctx, reply, lang)
	c.store.Update(sessionID, func(s *models.ChatSession) {
		if change != nil {
			change(s)
		}
		s.History = append(s.History, turn(models.ChatRoleAI, reply))
	})
	return reply
}

func (c *Chatbot) translate(ctx context.Context, text, lang string) string {
	if lang == "" || lang == "en" || c.translator == nil {
		return text
	}
	out, err := c.translator.TranslateText(ctx, text, lang)
	if err != nil {
		c.logger.Warn().Err(err).Str("lang", lang).Msg("Chat translation failed, replying in English")
		return text
	}
	return out
}

// TitleFrom builds a session title from the first six words of a message
func TitleFrom(message string) string {
	words := strings.Fields(message)
	if len(words) > 6 {
		words = words[:6]
	}
	short := strings.Join(words, " ")
	if runes := []rune(short); len(runes) > 40 {
		short = string(runes[:37]) + "..."
	}
	if short == "" {
		return "Chat"
	}
	return short
}

// extractName finds a self-introduction. Phrases like "I am having chest pain"
// mention a symptom and are not treated as names.
func extractName(message string) (string, bool) {
	m := namePattern.FindStringSubmatch(message)
	if m == nil {
		return "", false
	}
	name := strings.TrimSpace(m[1])
	if name == "" || mentionsHealth(strings.ToLower(name)) {
		return "", false
	}
	return name, true
}

func mentionsHealth(lower string) bool {
	for _, word := range healthKeywords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func transcript(history []models.ChatTurn, instruction string) string {
	lines := make([]string, 0, len(history)+1)
	for _, t := range history {
		lines = append(lines, capitalize(t.Role)+": "+t.Content)
	}
	lines = append(lines, instruction)
	return strings.Join(lines, "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func resolveLang(lang string, session *models.ChatSession) string {
	if lang != "" {
		return lang
	}
	if session.Lang != "" {
		return session.Lang
	}
	return "en"
}

func turn(role, content string) models.ChatTurn {
	return models.ChatTurn{Role: role, Content: content, At: time.Now()}
}
