package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/healthscope/internal/common"
)

func testConfig() *common.Config {
	cfg := common.NewDefaultConfig()
	cfg.Storage.Badger.InMemory = true
	return cfg
}

func TestNew_WiresComponents(t *testing.T) {
	application, err := New(testConfig(), arbor.NewLogger())
	require.NoError(t, err)
	defer application.Close()

	assert.NotNil(t, application.AnalysisService)
	assert.NotNil(t, application.Chatbot)
	assert.NotNil(t, application.APIHandler)
	assert.NotNil(t, application.AnalysisHandler)
	assert.NotNil(t, application.ChatbotHandler)
	assert.NotNil(t, application.ChatSocketHandler)
	assert.Len(t, application.Catalogue.Roles(), 10)
}

func TestNew_RejectsUnknownAggregateRole(t *testing.T) {
	cfg := testConfig()
	cfg.Panel.AggregateRoles = []string{"cardiology", "astrology"}

	_, err := New(cfg, arbor.NewLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "astrology")
}

func TestNew_WithoutPruneSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.Chat.PruneSchedule = ""

	application, err := New(cfg, arbor.NewLogger())
	require.NoError(t, err)
	assert.NoError(t, application.Close())
}
