// Package correlation implementa la máquina de estados que une una señal
// EntryOnly con la respuesta ParamsOnly que trae sus SL/TP.
//
// Estados por registro:
//
//	PENDING_ENTRY ─claim→ IN_PROGRESS ─finalize→ SUCCESS | ERROR | DRY_RUN | OFFLINE
//	SUCCESS ─claim→ IN_PROGRESS ─finalize→ MODIFIED (ajuste en modo inmediato)
//
// El engine nunca hace read-then-write: toda transición pasa por un
// compare-and-swap del repositorio.
package correlation

import (
	"context"
	"fmt"

	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/domain"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry/metricbundle"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry/semconv"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/utils"
	"go.opentelemetry.io/otel/attribute"
)

// Outcome resultado de procesar una respuesta.
type Outcome int

const (
	// OutcomeIncompleteParams la respuesta no trae los parámetros requeridos.
	OutcomeIncompleteParams Outcome = iota + 1
	// OutcomeNoMatch la clave no corresponde a ningún registro.
	OutcomeNoMatch
	// OutcomeAlreadyResolved el registro ya no está en el estado esperado.
	OutcomeAlreadyResolved
	// OutcomeRejected la directiva resultante viola un invariante.
	OutcomeRejected
	// OutcomeExecute registro reclamado; la directiva debe ejecutarse.
	OutcomeExecute
)

// String implementa fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeIncompleteParams:
		return "incomplete_params"
	case OutcomeNoMatch:
		return "no_match"
	case OutcomeAlreadyResolved:
		return "already_resolved"
	case OutcomeRejected:
		return "rejected"
	case OutcomeExecute:
		return "execute"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Resolution resultado de ResolveReply/ResolveAdjustment.
type Resolution struct {
	Outcome   Outcome
	Entry     *domain.SignalRecord       // nil si OutcomeNoMatch/IncompleteParams
	Directive *domain.ExecutionDirective // solo OutcomeExecute en ResolveReply
	Reason    error                      // solo OutcomeRejected
}

// Settings parámetros de ejecución provenientes de configuración.
type Settings struct {
	Volume      float64
	MagicNumber int64
	MaxSlippage int
	Comment     string
}

// DefaultSettings valores por defecto.
func DefaultSettings() Settings {
	return Settings{
		Volume:      0.01,
		MagicNumber: 0,
		MaxSlippage: 10,
		Comment:     "tg-signal",
	}
}

// Engine correlaciona entradas y respuestas sobre un SignalRepository.
type Engine struct {
	repo      domain.SignalRepository
	settings  Settings
	newID     func() string
	telemetry *telemetry.Client
	metrics   *metricbundle.SignalMetrics
}

// Option configura el Engine.
type Option func(*Engine)

// WithSettings reemplaza los parámetros de ejecución.
func WithSettings(s Settings) Option {
	return func(e *Engine) { e.settings = s }
}

// WithTelemetry inyecta el cliente de telemetría.
func WithTelemetry(tel *telemetry.Client) Option {
	return func(e *Engine) {
		if tel != nil {
			e.telemetry = tel
		}
	}
}

// WithMetrics inyecta el bundle de métricas.
func WithMetrics(m *metricbundle.SignalMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine crea el engine.
func NewEngine(repo domain.SignalRepository, opts ...Option) *Engine {
	e := &Engine{
		repo:      repo,
		settings:  DefaultSettings(),
		newID:     utils.GenerateUUIDv7,
		telemetry: telemetry.NewNoop("correlation"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Settings parámetros activos.
func (e *Engine) Settings() Settings {
	return e.settings
}

// RegisterEntry persiste una señal EntryOnly como PENDING_ENTRY.
func (e *Engine) RegisterEntry(ctx context.Context, key domain.CorrelationKey, sig *domain.ParsedSignal) (*domain.SignalRecord, error) {
	if sig == nil || sig.SignalType != domain.SignalEntryOnly {
		return nil, domain.NewError(domain.ErrInvalidAction, "only entry-only signals can be registered as pending")
	}

	rec := domain.NewSignalRecord(e.newID(), key, sig, domain.EntryStatusPending)
	rec.Volume = e.settings.Volume

	id, err := e.repo.StorePendingEntry(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("failed to store pending entry: %w", err)
	}
	rec.ID = id

	e.telemetry.Info(ctx, "Pending entry stored",
		semconv.Signal.RecordID.String(id),
		semconv.Signal.CorrelationKey.String(key.String()),
		semconv.Signal.Action.String(sig.Action.String()),
		semconv.Signal.Symbol.String(sig.Symbol),
	)
	return rec, nil
}

// Admission registro creado ya reclamado, listo para ejecutar.
type Admission struct {
	Record    *domain.SignalRecord
	Directive *domain.ExecutionDirective // nil para CLOSE
}

// Admit persiste una señal para ejecución inmediata (Complete, CLOSE o
// EntryOnly en modo inmediato). El registro nace IN_PROGRESS.
//
// Si la directiva es inválida no se persiste nada.
func (e *Engine) Admit(ctx context.Context, key domain.CorrelationKey, sig *domain.ParsedSignal) (*Admission, error) {
	ctx, span := e.telemetry.StartSpan(ctx, "core.correlation.admit")
	defer span.End()

	if sig == nil || !sig.HasInstrument() {
		err := domain.NewError(domain.ErrMissingRequiredField, "signal requires action and symbol")
		e.telemetry.RecordError(ctx, err)
		return nil, err
	}

	rec := domain.NewSignalRecord(e.newID(), key, sig, domain.EntryStatusInProgress)
	rec.Volume = e.settings.Volume

	var directive *domain.ExecutionDirective
	if sig.Action.IsTrade() {
		d, err := BuildFromSignal(sig, e.settings.Volume)
		if err != nil {
			e.telemetry.RecordError(ctx, err, semconv.Signal.ErrorCode.String(string(domain.CodeOf(err))))
			return nil, err
		}
		directive = e.decorate(d, rec.ID)
	}

	if err := e.repo.Create(ctx, rec); err != nil {
		e.telemetry.RecordError(ctx, err)
		return nil, fmt.Errorf("failed to create signal record: %w", err)
	}
	e.telemetry.SetSpanAttributes(ctx, semconv.Signal.RecordID.String(rec.ID))

	e.telemetry.Info(ctx, "Signal admitted for execution",
		semconv.Signal.RecordID.String(rec.ID),
		semconv.Signal.CorrelationKey.String(key.String()),
		semconv.Signal.Type.String(sig.SignalType.String()),
		semconv.Signal.Action.String(sig.Action.String()),
		semconv.Signal.Symbol.String(sig.Symbol),
	)
	return &Admission{Record: rec, Directive: directive}, nil
}

// ResolveReply procesa una respuesta ParamsOnly dirigida a replyTo.
//
// Pasos:
//  1. SL y TP son obligatorios
//  2. Buscar el registro por clave
//  3. Guardia de idempotencia: debe estar PENDING_ENTRY
//  4. Construir y validar la directiva (sin mutar nada si falla)
//  5. Reclamar con CAS PENDING_ENTRY → IN_PROGRESS
//
// Con OutcomeExecute el llamador debe ejecutar la directiva y finalizar el
// registro exactamente una vez.
func (e *Engine) ResolveReply(ctx context.Context, replyTo domain.CorrelationKey, reply *domain.ParsedSignal) (*Resolution, error) {
	ctx, span := e.telemetry.StartSpan(ctx, "core.correlation.resolve_reply")
	defer span.End()
	ctx = telemetry.AppendEventAttrs(ctx, semconv.Signal.ReplyTo.String(replyTo.String()))

	if reply == nil || !reply.HasBothRiskParams() {
		e.telemetry.Info(ctx, "Reply ignored: stop loss and take profit are both required")
		return e.resolved(ctx, &Resolution{Outcome: OutcomeIncompleteParams}), nil
	}

	entry, err := e.repo.FindByCorrelationKey(ctx, replyTo)
	if err != nil {
		e.telemetry.RecordError(ctx, err)
		return nil, fmt.Errorf("failed to find pending entry: %w", err)
	}
	if entry == nil {
		e.telemetry.Info(ctx, "Reply ignored: no entry for correlation key")
		return e.resolved(ctx, &Resolution{Outcome: OutcomeNoMatch}), nil
	}
	ctx = telemetry.AppendEventAttrs(ctx, semconv.Signal.RecordID.String(entry.ID))

	if entry.Status != domain.EntryStatusPending {
		e.telemetry.Info(ctx, "Reply ignored: entry already resolved",
			semconv.Signal.Status.String(string(entry.Status)),
		)
		return e.resolved(ctx, &Resolution{Outcome: OutcomeAlreadyResolved, Entry: entry}), nil
	}

	directive, err := BuildFromEntry(entry, reply, e.volumeFor(entry))
	if err != nil {
		e.telemetry.RecordError(ctx, err, semconv.Signal.ErrorCode.String(string(domain.CodeOf(err))))
		e.telemetry.Warn(ctx, "Reply rejected: invalid directive",
			attribute.String("error", err.Error()),
			semconv.Signal.ErrorCode.String(string(domain.CodeOf(err))),
		)
		return e.resolved(ctx, &Resolution{Outcome: OutcomeRejected, Entry: entry, Reason: err}), nil
	}

	claimed, err := e.repo.TryClaim(ctx, entry.ID)
	if err != nil {
		e.telemetry.RecordError(ctx, err)
		return nil, fmt.Errorf("failed to claim pending entry: %w", err)
	}
	if !claimed {
		e.telemetry.Info(ctx, "Reply ignored: entry claimed concurrently")
		return e.resolved(ctx, &Resolution{Outcome: OutcomeAlreadyResolved, Entry: entry}), nil
	}

	entry.Status = domain.EntryStatusInProgress
	e.telemetry.Info(ctx, "Pending entry claimed",
		semconv.Signal.Symbol.String(entry.Symbol),
		semconv.Signal.Action.String(entry.Action.String()),
	)
	return e.resolved(ctx, &Resolution{
		Outcome:   OutcomeExecute,
		Entry:     entry,
		Directive: e.decorate(directive, entry.ID),
	}), nil
}

// ResolveAdjustment procesa una respuesta SL/TP sobre una orden ya ejecutada
// en modo inmediato (SUCCESS con ticket).
//
// Basta con SL o TP. Reclama con CAS SUCCESS → IN_PROGRESS; el llamador debe
// modificar la orden y finalizar MODIFIED (o SUCCESS con el error si falla).
func (e *Engine) ResolveAdjustment(ctx context.Context, replyTo domain.CorrelationKey, reply *domain.ParsedSignal) (*Resolution, error) {
	ctx, span := e.telemetry.StartSpan(ctx, "core.correlation.resolve_adjustment")
	defer span.End()
	ctx = telemetry.AppendEventAttrs(ctx, semconv.Signal.ReplyTo.String(replyTo.String()))

	if reply == nil || !reply.HasRiskParams() {
		return e.resolved(ctx, &Resolution{Outcome: OutcomeIncompleteParams}), nil
	}

	entry, err := e.repo.FindByCorrelationKey(ctx, replyTo)
	if err != nil {
		e.telemetry.RecordError(ctx, err)
		return nil, fmt.Errorf("failed to find executed entry: %w", err)
	}
	if entry == nil {
		e.telemetry.Info(ctx, "Adjustment ignored: no entry for correlation key")
		return e.resolved(ctx, &Resolution{Outcome: OutcomeNoMatch}), nil
	}
	ctx = telemetry.AppendEventAttrs(ctx, semconv.Signal.RecordID.String(entry.ID))

	if entry.Status != domain.EntryStatusSuccess || entry.Ticket == nil || !entry.Action.IsTrade() {
		e.telemetry.Info(ctx, "Adjustment ignored: entry is not an open order",
			semconv.Signal.Status.String(string(entry.Status)),
		)
		return e.resolved(ctx, &Resolution{Outcome: OutcomeAlreadyResolved, Entry: entry}), nil
	}

	if err := validateAdjustment(reply); err != nil {
		e.telemetry.RecordError(ctx, err, semconv.Signal.ErrorCode.String(string(domain.CodeOf(err))))
		e.telemetry.Warn(ctx, "Adjustment rejected: invalid stops",
			attribute.String("error", err.Error()),
			semconv.Signal.ErrorCode.String(string(domain.CodeOf(err))),
		)
		return e.resolved(ctx, &Resolution{Outcome: OutcomeRejected, Entry: entry, Reason: err}), nil
	}

	claimed, err := e.repo.CompareAndSetStatus(ctx, entry.ID, domain.EntryStatusSuccess, domain.EntryStatusInProgress)
	if err != nil {
		e.telemetry.RecordError(ctx, err)
		return nil, fmt.Errorf("failed to claim executed entry: %w", err)
	}
	if !claimed {
		return e.resolved(ctx, &Resolution{Outcome: OutcomeAlreadyResolved, Entry: entry}), nil
	}

	entry.Status = domain.EntryStatusInProgress
	return e.resolved(ctx, &Resolution{Outcome: OutcomeExecute, Entry: entry}), nil
}

// Finalize persiste el resultado de un registro reclamado.
func (e *Engine) Finalize(ctx context.Context, id string, outcome *domain.EntryOutcome) error {
	if err := e.repo.Finalize(ctx, id, outcome); err != nil {
		return fmt.Errorf("failed to finalize entry: %w", err)
	}
	e.telemetry.Info(ctx, "Entry finalized",
		semconv.Signal.RecordID.String(id),
		semconv.Signal.Status.String(string(outcome.Status)),
	)
	return nil
}

func (e *Engine) decorate(d *domain.ExecutionDirective, recordID string) *domain.ExecutionDirective {
	d.RecordID = recordID
	d.MagicNumber = e.settings.MagicNumber
	d.MaxSlippage = e.settings.MaxSlippage
	d.Comment = e.settings.Comment
	return d
}

// volumeFor usa el volumen fijado al registrar la entrada.
func (e *Engine) volumeFor(entry *domain.SignalRecord) float64 {
	if entry.Volume > 0 {
		return entry.Volume
	}
	return e.settings.Volume
}

func validateAdjustment(reply *domain.ParsedSignal) error {
	if err := domain.ValidatePrice("stop_loss", reply.StopLoss); err != nil {
		return err
	}
	return domain.ValidatePrice("take_profit", reply.TakeProfit)
}

func (e *Engine) resolved(ctx context.Context, res *Resolution) *Resolution {
	e.telemetry.SetSpanAttributes(ctx, semconv.Signal.Outcome.String(res.Outcome.String()))
	e.metrics.RecordCorrelationOutcome(ctx, semconv.Signal.Outcome.String(res.Outcome.String()))
	return res
}
