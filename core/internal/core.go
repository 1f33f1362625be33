package internal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/moamenmohamedx/telegram-bot-forex-perlson/core/internal/correlation"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/core/internal/execution"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/core/internal/parser"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/core/internal/symbols"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/domain"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry/metricbundle"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry/semconv"
	"go.opentelemetry.io/otel/attribute"
)

// Dependencies colaboradores externos del Core, construidos por el binario.
type Dependencies struct {
	Store     domain.RepositoryFactory
	Broker    domain.ExecutionClient
	Telemetry *telemetry.Client
	Metrics   *metricbundle.SignalMetrics

	// OnExecuted se invoca tras cada trabajo de ejecución finalizado (opcional).
	OnExecuted execution.CompletionHook
}

// Core representa el servicio principal de señales.
//
// Responsabilidades:
//   - Auditar cada mensaje entrante
//   - Filtrar por allow-list y pre-filtro
//   - Parsear y clasificar señales
//   - Correlacionar entradas con sus replies SL/TP
//   - Despachar ejecuciones al pool acotado
type Core struct {
	config *Config
	store  domain.RepositoryFactory

	symbolCache *symbols.PersistentCache
	parser      *parser.Parser
	engine      *correlation.Engine
	pool        *execution.Pool

	// Canal de procesamiento secuencial
	inbox  chan *domain.InboundMessage
	dedupe *DedupeStore

	// Telemetría
	telemetry *telemetry.Client
	metrics   *metricbundle.SignalMetrics

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}

	// Estado
	mu      sync.RWMutex
	started bool
	closed  bool
}

// New crea una nueva instancia de Core.
//
// Example:
//
//	core, err := internal.New(ctx, cfg, internal.Dependencies{Store: store, Broker: paper, Telemetry: tel})
//	if err != nil {
//	    return err
//	}
//	defer core.Shutdown()
func New(ctx context.Context, cfg *Config, deps Dependencies) (*Core, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Broker == nil {
		return nil, fmt.Errorf("broker is required")
	}
	tel := deps.Telemetry
	if tel == nil {
		tel = telemetry.NewNoop(cfg.ServiceName)
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = tel.SignalMetrics()
	}

	coreCtx, cancel := context.WithCancel(ctx)
	coreCtx = telemetry.AppendCommonAttrs(coreCtx,
		semconv.Signal.Component.String(semconv.ComponentCore),
	)

	symbolCache := symbols.NewPersistentCache(coreCtx, deps.Store.SymbolRepository(), tel, cfg.SymbolBufferSize)
	resolver := symbols.NewResolver(symbolCache,
		symbols.WithKnownSymbols(cfg.KnownSymbols...),
		symbols.WithStopwords(cfg.SymbolStopwords...),
		symbols.WithMinLength(cfg.SymbolMinLength),
		symbols.WithTelemetry(tel),
		symbols.WithMetrics(metrics),
	)
	p := parser.New(resolver,
		parser.WithCloseEnabled(cfg.CloseEnabled),
		parser.WithTelemetry(tel),
		parser.WithMetrics(metrics),
	)
	engine := correlation.NewEngine(deps.Store.SignalRepository(),
		correlation.WithSettings(correlation.Settings{
			Volume:      cfg.LotSize,
			MagicNumber: cfg.MagicNumber,
			MaxSlippage: cfg.MaxSlippage,
			Comment:     cfg.OrderComment,
		}),
		correlation.WithTelemetry(tel),
		correlation.WithMetrics(metrics),
	)
	tradingEnabled := cfg.TradingEnabled
	executor := execution.NewExecutor(deps.Broker, engine,
		execution.WithTradingEnabled(func() bool { return tradingEnabled }),
		execution.WithExecutorTelemetry(tel, metrics),
	)
	pool := execution.NewPool(executor, engine,
		execution.WithWorkers(cfg.ExecutionWorkers),
		execution.WithQueueSize(cfg.ExecutionQueueSize),
		execution.WithPoolTelemetry(tel, metrics),
		execution.WithCompletionHook(deps.OnExecuted),
	)

	return &Core{
		config:      cfg,
		store:       deps.Store,
		symbolCache: symbolCache,
		parser:      p,
		engine:      engine,
		pool:        pool,
		inbox:       make(chan *domain.InboundMessage, cfg.CoreQueueSize),
		dedupe:      NewDedupeStore(cfg.DedupeTTL),
		telemetry:   tel,
		metrics:     metrics,
		ctx:         coreCtx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}, nil
}

// Start precarga el caché de símbolos y arranca workers y loop de ingesta.
func (c *Core) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("core already closed")
	}
	if c.started {
		return nil
	}

	if err := c.symbolCache.Warm(c.ctx); err != nil {
		// Sin precarga el resolver sigue funcionando con aliases y patrón.
		c.telemetry.Warn(c.ctx, "Symbol cache warm-up failed",
			attribute.String("error", err.Error()),
		)
	}
	c.symbolCache.Start()
	c.pool.Start()

	c.wg.Add(2)
	go c.processLoop()
	go c.dedupeCleanupLoop()

	c.started = true
	c.telemetry.Info(c.ctx, "Core started successfully",
		attribute.String("entry_mode", string(c.config.EntryMode)),
		attribute.Bool("trading_enabled", c.config.TradingEnabled),
		attribute.Int("symbols_cached", c.symbolCache.Len()),
	)
	return nil
}

// Submit encola un mensaje para procesamiento.
//
// No-blocking: con la cola llena retorna ErrQueueFull.
func (c *Core) Submit(ctx context.Context, msg *domain.InboundMessage) error {
	if msg == nil {
		return domain.NewError(domain.ErrMissingRequiredField, "message is nil")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now().UTC()
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return domain.NewError(domain.ErrBrokerOffline, "core stopped")
	}

	select {
	case c.inbox <- msg:
		c.metrics.RecordMessageReceived(ctx)
		return nil
	default:
		c.telemetry.Error(ctx, "Core queue full, message dropped", nil,
			semconv.Signal.ChatID.String(msg.ChatID),
			semconv.Signal.MessageID.String(msg.MessageID),
		)
		return domain.NewError(domain.ErrQueueFull, "core queue full")
	}
}

// processLoop procesa mensajes secuencialmente (FIFO).
func (c *Core) processLoop() {
	defer c.wg.Done()

	for {
		select {
		case msg, ok := <-c.inbox:
			if !ok {
				return // Canal cerrado
			}
			if _, err := c.Process(c.ctx, msg); err != nil {
				c.telemetry.Error(c.ctx, "Failed to process message", err,
					semconv.Signal.ChatID.String(msg.ChatID),
					semconv.Signal.MessageID.String(msg.MessageID),
				)
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// dedupeCleanupLoop limpia entries expirados del dedupe store.
func (c *Core) dedupeCleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := c.dedupe.Cleanup(); removed > 0 {
				c.telemetry.Debug(c.ctx, "Dedupe cleanup completed",
					attribute.Int("removed_entries", removed),
				)
			}

		case <-c.done:
			return
		}
	}
}

// Parse parsea texto sin persistir nada (uso offline y HTTP).
func (c *Core) Parse(ctx context.Context, text string) (*domain.ParsedSignal, error) {
	return c.parser.Parse(ctx, text)
}

// GetSignal obtiene un registro por id. Retorna nil si no existe.
func (c *Core) GetSignal(ctx context.Context, id string) (*domain.SignalRecord, error) {
	return c.store.SignalRepository().GetByID(ctx, id)
}

// FindSignal obtiene el registro creado por el mensaje key. Retorna nil si
// no existe.
func (c *Core) FindSignal(ctx context.Context, key domain.CorrelationKey) (*domain.SignalRecord, error) {
	return c.store.SignalRepository().FindByCorrelationKey(ctx, key)
}

// ListSignals lista registros, más recientes primero.
func (c *Core) ListSignals(ctx context.Context, limit, offset int) ([]*domain.SignalRecord, error) {
	return c.store.SignalRepository().List(ctx, limit, offset)
}

// Stats cuenta registros por estado.
func (c *Core) Stats(ctx context.Context) (*domain.EntryStats, error) {
	return c.store.SignalRepository().Stats(ctx)
}

// Healthy indica si el core está aceptando mensajes.
func (c *Core) Healthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.started && !c.closed
}

// Shutdown detiene el Core gracefully: procesa los mensajes ya encolados,
// drena la cola de ejecución y el caché persistente. No cierra el store ni la
// telemetría.
func (c *Core) Shutdown() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.inbox)
	close(c.done)
	c.mu.Unlock()

	c.telemetry.Info(c.ctx, "Core shutting down...")

	c.wg.Wait()
	c.pool.Stop()
	c.symbolCache.Stop()
	c.cancel()

	c.telemetry.Info(context.Background(), "Core stopped successfully")
	return nil
}
