package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
)

func TestPruner_PruneNow(t *testing.T) {
	store, clock := newTestStore(10, 10)
	store.Create("")
	clock.advance(2 * time.Hour)
	fresh := store.Create("")

	NewPruner(store, time.Hour, "0 */15 * * * *", arbor.NewLogger()).PruneNow()

	assert.Equal(t, 1, store.Len())
	_, ok := store.Get(fresh.ID)
	assert.True(t, ok)
}

func TestPruner_StartRejectsBadSchedule(t *testing.T) {
	p := NewPruner(NewMemoryStore(10, 10), time.Hour, "every now and then", arbor.NewLogger())
	assert.Error(t, p.Start())
}

func TestPruner_StartStop(t *testing.T) {
	p := NewPruner(NewMemoryStore(10, 10), time.Hour, "0 */15 * * * *", arbor.NewLogger())
	assert.NoError(t, p.Start())
	p.Stop()
}
