package execution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/domain"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry/metricbundle"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry/semconv"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/utils"
	"go.opentelemetry.io/otel/attribute"
)

// Finalizer persiste el resultado de un registro reclamado.
type Finalizer interface {
	Finalize(ctx context.Context, id string, outcome *domain.EntryOutcome) error
}

// Executor ejecuta trabajos contra el broker y finaliza el registro
// exactamente una vez por trabajo.
type Executor struct {
	client         domain.ExecutionClient
	finalizer      Finalizer
	tradingEnabled func() bool
	telemetry      *telemetry.Client
	metrics        *metricbundle.SignalMetrics
}

// ExecutorOption configura el Executor.
type ExecutorOption func(*Executor)

// WithTradingEnabled define si se opera en real; false ⇒ DRY_RUN.
func WithTradingEnabled(fn func() bool) ExecutorOption {
	return func(e *Executor) {
		if fn != nil {
			e.tradingEnabled = fn
		}
	}
}

// WithExecutorTelemetry inyecta telemetría y métricas.
func WithExecutorTelemetry(tel *telemetry.Client, metrics *metricbundle.SignalMetrics) ExecutorOption {
	return func(e *Executor) {
		if tel != nil {
			e.telemetry = tel
		}
		e.metrics = metrics
	}
}

// NewExecutor crea el executor.
func NewExecutor(client domain.ExecutionClient, finalizer Finalizer, opts ...ExecutorOption) *Executor {
	e := &Executor{
		client:         client,
		finalizer:      finalizer,
		tradingEnabled: func() bool { return true },
		telemetry:      telemetry.NewNoop("execution"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute corre el trabajo y persiste su resultado. Retorna el resultado
// finalizado; el error solo refleja fallas al persistir.
func (e *Executor) Execute(ctx context.Context, job *Job) (*domain.EntryOutcome, error) {
	ctx, span := e.telemetry.StartSpan(ctx, "core.execution.execute")
	defer span.End()

	if err := job.validate(); err != nil {
		e.telemetry.RecordError(ctx, err)
		return nil, err
	}
	start := time.Now()
	ctx = telemetry.AppendEventAttrs(ctx,
		semconv.Signal.RecordID.String(job.Record.ID),
		semconv.Signal.Symbol.String(job.Record.Symbol),
		semconv.Signal.Component.String(semconv.ComponentExecution),
	)

	var outcome *domain.EntryOutcome
	switch {
	case !e.tradingEnabled():
		outcome = skipped(job, domain.EntryStatusDryRun, "dry run: trading disabled")
	case !e.client.Ready():
		outcome = skipped(job, domain.EntryStatusOffline, "broker offline")
	default:
		switch job.Kind {
		case KindPlace:
			outcome = e.place(ctx, job)
		case KindModify:
			outcome = e.modify(ctx, job)
		case KindClose:
			outcome = e.close(ctx, job)
		}
	}

	e.telemetry.SetSpanAttributes(ctx, semconv.Signal.Status.String(string(outcome.Status)))
	if err := e.finalizer.Finalize(ctx, job.Record.ID, outcome); err != nil {
		e.telemetry.RecordError(ctx, err)
		e.telemetry.Error(ctx, "Failed to finalize execution", err,
			semconv.Signal.Status.String(string(outcome.Status)),
		)
		return outcome, err
	}

	e.metrics.RecordExecution(ctx, utils.ElapsedMsSince(start),
		semconv.Signal.Status.String(string(outcome.Status)),
		semconv.Signal.Action.String(job.Record.Action.String()),
	)
	e.telemetry.Info(ctx, "Execution completed",
		semconv.Signal.Status.String(string(outcome.Status)),
	)
	return outcome, nil
}

// brokerError clasifica como BROKER_REJECT los errores del broker sin código.
func brokerError(message string, err error) error {
	if domain.CodeOf(err) != domain.ErrUnknown {
		return err
	}
	return domain.WrapError(domain.ErrBrokerReject, message, err)
}

// skipped resultado sin llamar al broker. Un ajuste vuelve a SUCCESS para
// que la orden ya abierta conserve su estado.
func skipped(job *Job, status domain.EntryStatus, reason string) *domain.EntryOutcome {
	if job.Kind == KindModify {
		return &domain.EntryOutcome{Status: domain.EntryStatusSuccess, ErrorMessage: reason}
	}
	return &domain.EntryOutcome{Status: status}
}

func (e *Executor) place(ctx context.Context, job *Job) *domain.EntryOutcome {
	d := job.Directive
	res, err := e.client.PlaceOrder(ctx, d)
	if err != nil {
		err = brokerError("order placement failed", err)
		e.telemetry.RecordError(ctx, err, semconv.Signal.ErrorCode.String(string(domain.CodeOf(err))))
		e.telemetry.Warn(ctx, "Order placement failed",
			semconv.Signal.ErrorCode.String(string(domain.CodeOf(err))),
			attribute.String("directive", utils.ToJSONString(d)),
		)
		return &domain.EntryOutcome{Status: domain.EntryStatusError, ErrorMessage: err.Error()}
	}
	e.telemetry.Info(ctx, "Order placed",
		semconv.Signal.Ticket.Int64(res.Ticket),
		semconv.Signal.Volume.Float64(res.Volume),
	)
	return &domain.EntryOutcome{
		Status:     domain.EntryStatusSuccess,
		Ticket:     domain.Int64(res.Ticket),
		FillPrice:  domain.Float64(res.FillPrice),
		Volume:     domain.Float64(res.Volume),
		StopLoss:   d.StopLoss,
		TakeProfit: d.TakeProfit,
	}
}

func (e *Executor) modify(ctx context.Context, job *Job) *domain.EntryOutcome {
	ticket := *job.Record.Ticket
	if err := e.client.ModifyOrder(ctx, ticket, job.StopLoss, job.TakeProfit); err != nil {
		err = brokerError("order modification failed", err)
		e.telemetry.RecordError(ctx, err, semconv.Signal.ErrorCode.String(string(domain.CodeOf(err))))
		e.telemetry.Warn(ctx, "Order modification failed",
			semconv.Signal.Ticket.Int64(ticket),
			semconv.Signal.ErrorCode.String(string(domain.CodeOf(err))),
		)
		return &domain.EntryOutcome{Status: domain.EntryStatusSuccess, ErrorMessage: err.Error()}
	}
	return &domain.EntryOutcome{
		Status:     domain.EntryStatusModified,
		StopLoss:   job.StopLoss,
		TakeProfit: job.TakeProfit,
	}
}

func (e *Executor) close(ctx context.Context, job *Job) *domain.EntryOutcome {
	positions, err := e.client.Positions(ctx, job.Record.Symbol)
	if err != nil {
		e.telemetry.RecordError(ctx, err)
		return &domain.EntryOutcome{Status: domain.EntryStatusError, ErrorMessage: err.Error()}
	}
	if len(positions) == 0 {
		e.telemetry.Warn(ctx, "No open positions to close")
		return &domain.EntryOutcome{Status: domain.EntryStatusNoPositions}
	}

	var failures []string
	for _, pos := range positions {
		if err := e.client.ClosePosition(ctx, pos.Ticket); err != nil {
			failures = append(failures, fmt.Sprintf("#%d: %v", pos.Ticket, err))
		}
	}
	if len(failures) == 0 {
		e.telemetry.Info(ctx, "Closed all positions",
			attribute.Int("positions", len(positions)),
		)
		return &domain.EntryOutcome{Status: domain.EntryStatusSuccess}
	}

	e.telemetry.RecordError(ctx, fmt.Errorf("partial close: %s", strings.Join(failures, "; ")))
	e.telemetry.Warn(ctx, "Closed positions partially",
		attribute.Int("closed", len(positions)-len(failures)),
		attribute.Int("positions", len(positions)),
	)
	return &domain.EntryOutcome{
		Status:       domain.EntryStatusPartial,
		ErrorMessage: fmt.Sprintf("closed %d/%d: %s", len(positions)-len(failures), len(positions), strings.Join(failures, "; ")),
	}
}
