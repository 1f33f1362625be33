package symbols

import (
	"context"
	"fmt"
	"sync"

	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry/semconv"
	"go.opentelemetry.io/otel/attribute"
)

// Store persiste símbolos confirmados entre reinicios.
type Store interface {
	LoadSymbols(ctx context.Context) ([]string, error)
	SaveSymbol(ctx context.Context, symbol string) error
}

// PersistentCache caché en memoria con persistencia async.
//
// Responsabilidades:
//   - Lecturas O(1) sobre MemoryCache
//   - Warm-up desde el Store al arrancar
//   - Persistencia async: canal con buffer y worker dedicado
//
// Si el canal está lleno el símbolo queda solo en memoria.
type PersistentCache struct {
	mem       *MemoryCache
	store     Store
	telemetry *telemetry.Client

	mu        sync.RWMutex
	closed    bool
	persistCh chan string

	ctx context.Context
	wg  sync.WaitGroup
}

// NewPersistentCache crea el caché. Llamar Start para iniciar el worker.
func NewPersistentCache(ctx context.Context, store Store, tel *telemetry.Client, bufferSize int) *PersistentCache {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	if tel == nil {
		tel = telemetry.NewNoop("symbols")
	}
	return &PersistentCache{
		mem:       NewMemoryCache(),
		store:     store,
		telemetry: tel,
		persistCh: make(chan string, bufferSize),
		ctx:       ctx,
	}
}

// Warm carga los símbolos persistidos en memoria.
func (c *PersistentCache) Warm(ctx context.Context) error {
	symbols, err := c.store.LoadSymbols(ctx)
	if err != nil {
		return fmt.Errorf("failed to load symbols: %w", err)
	}
	for _, s := range symbols {
		c.mem.Insert(s)
	}
	c.telemetry.Info(ctx, "Symbol cache warmed",
		attribute.Int("symbols_count", len(symbols)),
	)
	return nil
}

// Start inicia el worker de persistencia.
func (c *PersistentCache) Start() {
	c.wg.Add(1)
	go c.persistWorker()
}

// Stop cierra el canal y espera a que se drenen los pendientes.
func (c *PersistentCache) Stop() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.persistCh)
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *PersistentCache) persistWorker() {
	defer c.wg.Done()

	for symbol := range c.persistCh {
		if err := c.store.SaveSymbol(c.ctx, symbol); err != nil {
			c.telemetry.Error(c.ctx, "Failed to persist resolved symbol", err,
				semconv.Signal.Symbol.String(symbol),
			)
			continue
		}
		c.telemetry.Debug(c.ctx, "Resolved symbol persisted",
			semconv.Signal.Symbol.String(symbol),
		)
	}
}

// Contains implementa Cache.
func (c *PersistentCache) Contains(symbol string) bool {
	return c.mem.Contains(symbol)
}

// Len implementa Cache.
func (c *PersistentCache) Len() int {
	return c.mem.Len()
}

// Add implementa Cache; encola la persistencia solo para símbolos nuevos.
func (c *PersistentCache) Add(symbol string) {
	if !c.mem.Insert(symbol) {
		return
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}

	select {
	case c.persistCh <- symbol:
	default:
		c.telemetry.Warn(c.ctx, "Persist channel full, symbol kept in memory only",
			semconv.Signal.Symbol.String(symbol),
		)
	}
}
