package internal

import (
	"sync"
	"time"

	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/domain"
)

// DedupeStore almacén de deduplicación in-memory de mensajes entrantes.
//
// Mantiene un map de correlation key → timestamp con TTL. Protege contra
// reentregas del mismo mensaje por parte del bridge de chat.
// Thread-safe para acceso concurrente.
type DedupeStore struct {
	entries map[domain.CorrelationKey]time.Time
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
}

// NewDedupeStore crea un nuevo store de deduplicación.
func NewDedupeStore(ttl time.Duration) *DedupeStore {
	return &DedupeStore{
		entries: make(map[domain.CorrelationKey]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Seen registra la key y retorna true si ya había sido vista dentro del TTL.
func (d *DedupeStore) Seen(key domain.CorrelationKey) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if ts, exists := d.entries[key]; exists && now.Sub(ts) <= d.ttl {
		return true
	}
	d.entries[key] = now
	return false
}

// Cleanup elimina entries con TTL expirado.
//
// Retorna el número de entries eliminadas.
func (d *DedupeStore) Cleanup() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	removed := 0
	for key, ts := range d.entries {
		if now.Sub(ts) > d.ttl {
			delete(d.entries, key)
			removed++
		}
	}
	return removed
}

// Size retorna el número de entries actuales.
func (d *DedupeStore) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
