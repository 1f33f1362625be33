package internal

import (
	"testing"
	"time"

	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/domain"
	"github.com/stretchr/testify/assert"
)

func TestDedupeStore_SeenAndCleanup(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewDedupeStore(time.Minute)
	store.now = func() time.Time { return now }

	key := domain.CorrelationKey{ChatID: "-100", MessageID: "42"}
	other := domain.CorrelationKey{ChatID: "-100", MessageID: "43"}

	assert.False(t, store.Seen(key))
	assert.True(t, store.Seen(key))
	assert.False(t, store.Seen(other))
	assert.Equal(t, 2, store.Size())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 2, store.Cleanup())
	assert.Zero(t, store.Size())

	// Tras expirar, la misma key vuelve a aceptarse
	assert.False(t, store.Seen(key))
}
