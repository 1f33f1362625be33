// Package execution ejecuta directivas contra el colaborador de ejecución
// fuera del loop de ingesta.
//
// Pool mantiene un número fijo de workers y una cola acotada. Submit nunca
// bloquea: con la cola llena el registro reclamado se finaliza ERROR.
package execution

import (
	"context"
	"sync"

	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/domain"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry/metricbundle"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry/semconv"
)

const (
	// QueueFullMessage texto persistido cuando la cola rechaza un trabajo.
	QueueFullMessage = "execution queue full"
	// PoolStoppedMessage texto persistido cuando el pool ya fue detenido.
	PoolStoppedMessage = "execution pool stopped"

	defaultWorkers   = 4
	defaultQueueSize = 100
)

// Runner ejecuta un trabajo y finaliza su registro.
type Runner interface {
	Execute(ctx context.Context, job *Job) (*domain.EntryOutcome, error)
}

// CompletionHook se invoca tras cada trabajo procesado por un worker.
type CompletionHook func(job *Job, outcome *domain.EntryOutcome, err error)

type queuedJob struct {
	ctx context.Context
	job *Job
}

// Pool workers de ejecución con cola acotada.
type Pool struct {
	runner    Runner
	finalizer Finalizer
	workers   int
	jobs      chan *queuedJob
	onDone    CompletionHook

	mu      sync.RWMutex
	started bool
	stopped bool
	wg      sync.WaitGroup

	telemetry *telemetry.Client
	metrics   *metricbundle.SignalMetrics
}

// PoolOption configura el Pool.
type PoolOption func(*Pool)

// WithWorkers fija el número de workers.
func WithWorkers(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithQueueSize fija la capacidad de la cola.
func WithQueueSize(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.jobs = make(chan *queuedJob, n)
		}
	}
}

// WithCompletionHook registra un hook de finalización (tests, métricas externas).
func WithCompletionHook(fn CompletionHook) PoolOption {
	return func(p *Pool) { p.onDone = fn }
}

// WithPoolTelemetry inyecta telemetría y métricas.
func WithPoolTelemetry(tel *telemetry.Client, metrics *metricbundle.SignalMetrics) PoolOption {
	return func(p *Pool) {
		if tel != nil {
			p.telemetry = tel
		}
		p.metrics = metrics
	}
}

// NewPool crea el pool. finalizer se usa para los trabajos rechazados por la cola.
func NewPool(runner Runner, finalizer Finalizer, opts ...PoolOption) *Pool {
	p := &Pool{
		runner:    runner,
		finalizer: finalizer,
		workers:   defaultWorkers,
		jobs:      make(chan *queuedJob, defaultQueueSize),
		telemetry: telemetry.NewNoop("execution-pool"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start lanza los workers. Idempotente.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	p.telemetry.Info(context.Background(), "Execution pool started",
		semconv.Signal.Component.String(semconv.ComponentExecution),
	)
}

// Stop cierra la cola y espera que los workers drenen los trabajos encolados.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	started := p.started
	p.mu.Unlock()

	if !started {
		// Sin workers: los trabajos encolados se finalizan como rechazados.
		for q := range p.jobs {
			p.reject(q.ctx, q.job, PoolStoppedMessage)
		}
	}
	p.wg.Wait()
	p.telemetry.Info(context.Background(), "Execution pool stopped")
}

// Submit encola un trabajo sin bloquear. Si la cola está llena (o el pool
// detenido) finaliza el registro ERROR y retorna ErrQueueFull.
func (p *Pool) Submit(ctx context.Context, job *Job) error {
	if err := job.validate(); err != nil {
		return err
	}
	q := &queuedJob{ctx: context.WithoutCancel(ctx), job: job}

	p.mu.RLock()
	if p.stopped {
		p.mu.RUnlock()
		p.reject(ctx, job, PoolStoppedMessage)
		return domain.NewError(domain.ErrQueueFull, PoolStoppedMessage)
	}
	select {
	case p.jobs <- q:
		p.mu.RUnlock()
		p.metrics.AdjustQueueDepth(ctx, 1)
		return nil
	default:
		p.mu.RUnlock()
	}

	p.telemetry.Warn(ctx, "Execution queue full, job rejected",
		semconv.Signal.RecordID.String(job.Record.ID),
	)
	p.reject(ctx, job, QueueFullMessage)
	return domain.NewError(domain.ErrQueueFull, QueueFullMessage)
}

// Pending número de trabajos encolados.
func (p *Pool) Pending() int {
	return len(p.jobs)
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for q := range p.jobs {
		p.metrics.AdjustQueueDepth(q.ctx, -1)
		outcome, err := p.runner.Execute(q.ctx, q.job)
		if err != nil {
			p.telemetry.Error(q.ctx, "Execution job failed", err,
				semconv.Signal.RecordID.String(q.job.Record.ID),
			)
		}
		if p.onDone != nil {
			p.onDone(q.job, outcome, err)
		}
	}
}

// reject finaliza un registro reclamado que no llegó a ejecutarse. Un ajuste
// vuelve a SUCCESS para no perder la orden abierta.
func (p *Pool) reject(ctx context.Context, job *Job, reason string) {
	status := domain.EntryStatusError
	if job.Kind == KindModify {
		status = domain.EntryStatusSuccess
	}
	outcome := &domain.EntryOutcome{Status: status, ErrorMessage: reason}
	if err := p.finalizer.Finalize(ctx, job.Record.ID, outcome); err != nil {
		p.telemetry.Error(ctx, "Failed to finalize rejected job", err,
			semconv.Signal.RecordID.String(job.Record.ID),
		)
	}
	if p.onDone != nil {
		p.onDone(job, outcome, nil)
	}
}
