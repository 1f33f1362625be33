package symbols

import (
	"sync"
	"sync/atomic"
)

// Cache almacena resoluciones confirmadas.
//
// Es append-only: no existe operación de borrado. Debe ser seguro para uso
// concurrente.
type Cache interface {
	Contains(symbol string) bool
	Add(symbol string)
	Len() int
}

// MemoryCache implementación en memoria respaldada por sync.Map.
type MemoryCache struct {
	entries sync.Map
	size    atomic.Int64
}

// NewMemoryCache crea un caché vacío.
func NewMemoryCache(seed ...string) *MemoryCache {
	c := &MemoryCache{}
	for _, s := range seed {
		c.Add(s)
	}
	return c
}

// Contains indica si el símbolo ya fue confirmado.
func (c *MemoryCache) Contains(symbol string) bool {
	_, ok := c.entries.Load(symbol)
	return ok
}

// Add registra el símbolo. Idempotente.
func (c *MemoryCache) Add(symbol string) {
	c.Insert(symbol)
}

// Insert registra el símbolo y retorna true si no existía.
func (c *MemoryCache) Insert(symbol string) bool {
	if _, loaded := c.entries.LoadOrStore(symbol, struct{}{}); loaded {
		return false
	}
	c.size.Add(1)
	return true
}

// Len cantidad de símbolos confirmados.
func (c *MemoryCache) Len() int {
	return int(c.size.Load())
}

// Snapshot retorna los símbolos confirmados (orden no definido).
func (c *MemoryCache) Snapshot() []string {
	out := make([]string, 0, c.Len())
	c.entries.Range(func(k, _ any) bool {
		out = append(out, k.(string))
		return true
	})
	return out
}
