package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/healthscope/internal/interfaces"
	"github.com/ternarybob/healthscope/internal/models"
	"github.com/ternarybob/healthscope/internal/services/translate"
)

// scriptedProvider answers prompts through promptFunc and records them
type scriptedProvider struct {
	prompts    []string
	promptFunc func(prompt string) (string, error)
}

func (p *scriptedProvider) provider() interfaces.CompletionProvider {
	return interfaces.CompletionFunc(func(ctx context.Context, system, user string) (string, error) {
		p.prompts = append(p.prompts, user)
		if p.promptFunc != nil {
			return p.promptFunc(user)
		}
		return "", nil
	})
}

func newTestChatbot(p *scriptedProvider) *Chatbot {
	logger := arbor.NewLogger()
	provider := p.provider()
	return NewChatbot(NewMemoryStore(10, 10), provider, translate.NewTranslator(provider, logger), logger)
}

func TestChatbot_Start(t *testing.T) {
	bot := newTestChatbot(&scriptedProvider{})

	session, greeting := bot.Start("gu")

	assert.Equal(t, StartGreeting, greeting)
	stored, ok := bot.Session(session.ID)
	require.True(t, ok)
	assert.Equal(t, "gu", stored.Lang)
}

func TestChatbot_Message_Errors(t *testing.T) {
	bot := newTestChatbot(&scriptedProvider{})

	_, err := bot.Message(context.Background(), "missing", "hello", "")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	session, _ := bot.Start("")
	_, err = bot.Message(context.Background(), session.ID, "   ", "")
	assert.ErrorIs(t, err, ErrMessageRequired)
}

func TestChatbot_Message_SmallTalk(t *testing.T) {
	p := &scriptedProvider{}
	bot := newTestChatbot(p)
	session, _ := bot.Start("")
	ctx := context.Background()

	reply, err := bot.Message(ctx, session.ID, "Hello there", "")
	require.NoError(t, err)
	assert.Equal(t, AnonymousGreeting, reply)

	reply, err = bot.Message(ctx, session.ID, "My name is Asha", "")
	require.NoError(t, err)
	assert.Equal(t, "Nice to meet you, Asha! How can I assist with your health today?", reply)

	reply, err = bot.Message(ctx, session.ID, "hey", "")
	require.NoError(t, err)
	assert.Equal(t, "Hello Asha! How can I help you with your health today?", reply)

	reply, err = bot.Message(ctx, session.ID, "how are you?", "")
	require.NoError(t, err)
	assert.Equal(t, "I'm doing well, thanks for asking Asha! How are you feeling today?", reply)

	assert.Empty(t, p.prompts, "small talk never reaches the model")

	stored, _ := bot.Session(session.ID)
	assert.Equal(t, "Asha", stored.Name)
	assert.Equal(t, DefaultTitle, stored.Title)
	for _, turn := range stored.History {
		assert.Equal(t, models.ChatRoleAI, turn.Role)
	}
}

func TestChatbot_Message_HealthGuard(t *testing.T) {
	p := &scriptedProvider{}
	bot := newTestChatbot(p)
	session, _ := bot.Start("")

	reply, err := bot.Message(context.Background(), session.ID, "What's the capital of France?", "")
	require.NoError(t, err)
	assert.Equal(t, HealthGuidance, reply)
	assert.Empty(t, p.prompts)
}

func TestChatbot_Message_SymptomNotTakenAsName(t *testing.T) {
	p := &scriptedProvider{promptFunc: func(string) (string, error) { return "Since when?", nil }}
	bot := newTestChatbot(p)
	session, _ := bot.Start("")

	reply, err := bot.Message(context.Background(), session.ID, "I am having chest pain", "")
	require.NoError(t, err)
	assert.Equal(t, "Since when?", reply)

	stored, _ := bot.Session(session.ID)
	assert.Empty(t, stored.Name)
}

func TestChatbot_Message_ModelTurn(t *testing.T) {
	p := &scriptedProvider{promptFunc: func(string) (string, error) { return "How long has the fever lasted?", nil }}
	bot := newTestChatbot(p)
	session, _ := bot.Start("")

	reply, err := bot.Message(context.Background(), session.ID, "I have had a fever and a dry cough since Monday evening", "")
	require.NoError(t, err)
	assert.Equal(t, "How long has the fever lasted?", reply)

	require.Len(t, p.prompts, 1)
	assert.Equal(t,
		"User: I have had a fever and a dry cough since Monday evening\n"+
			"AI: (Ask clarifying questions about symptoms, or summarize when ready.)",
		p.prompts[0])

	stored, _ := bot.Session(session.ID)
	assert.Equal(t, "I have had a fever and", stored.Title)
	require.Len(t, stored.History, 2)
	assert.Equal(t, models.ChatRoleUser, stored.History[0].Role)
	assert.Equal(t, models.ChatRoleAI, stored.History[1].Role)
}

func TestChatbot_Message_TranslatesReply(t *testing.T) {
	p := &scriptedProvider{promptFunc: func(prompt string) (string, error) {
		if strings.HasPrefix(prompt, "Translate the following text to Hindi") {
			return "बुखार कब से है?", nil
		}
		return "Since when do you have fever?", nil
	}}
	bot := newTestChatbot(p)
	session, _ := bot.Start("hi")

	reply, err := bot.Message(context.Background(), session.ID, "I have fever", "")
	require.NoError(t, err)
	assert.Equal(t, "बुखार कब से है?", reply)
	assert.Len(t, p.prompts, 2)

	// an explicit request language overrides the session preference
	reply, err = bot.Message(context.Background(), session.ID, "and a cough", "en")
	require.NoError(t, err)
	assert.Equal(t, "Since when do you have fever?", reply)
}

func TestChatbot_Message_ProviderError(t *testing.T) {
	p := &scriptedProvider{promptFunc: func(string) (string, error) { return "", errors.New("down") }}
	bot := newTestChatbot(p)
	session, _ := bot.Start("")

	_, err := bot.Message(context.Background(), session.ID, "chest pain", "")
	assert.Error(t, err)
}

func TestChatbot_SummaryExportRename(t *testing.T) {
	p := &scriptedProvider{promptFunc: func(prompt string) (string, error) {
		if strings.Contains(prompt, "Summarize the patient's symptoms") {
			return "Chief complaint: headache", nil
		}
		return "Any nausea?", nil
	}}
	bot := newTestChatbot(p)
	ctx := context.Background()
	session, _ := bot.Start("")

	_, err := bot.Message(ctx, session.ID, "Severe headache for two days", "")
	require.NoError(t, err)

	summary, err := bot.Summary(ctx, session.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Chief complaint: headache", summary)
	assert.True(t, strings.HasSuffix(p.prompts[len(p.prompts)-1],
		"AI: Summarize the patient's symptoms and medical history in structured form for specialist agents."))

	export, err := bot.Export(session.ID)
	require.NoError(t, err)
	assert.Equal(t, "USER: Severe headache for two days\nAI: Any nausea?", export)

	assert.ErrorIs(t, bot.Rename(session.ID, " "), ErrTitleRequired)
	assert.ErrorIs(t, bot.Rename("missing", "x"), ErrSessionNotFound)
	require.NoError(t, bot.Rename(session.ID, "Headache"))
	stored, _ := bot.Session(session.ID)
	assert.Equal(t, "Headache", stored.Title)

	_, err = bot.Summary(ctx, "missing", "")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = bot.Export("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.True(t, bot.Delete(session.ID))
	assert.Empty(t, bot.Sessions())
}

func TestTitleFrom(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"six words", "one two three four five six seven", "one two three four five six"},
		{"short", "  chest   pain ", "chest pain"},
		{"long words cut", "pneumonoultramicroscopic silicovolcanoconiosis symptoms", "pneumonoultramicroscopic silicovolcan..."},
		{"empty", "   ", "Chat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TitleFrom(tt.message))
		})
	}
}
