package internal

import (
	"context"
	"time"

	"github.com/moamenmohamedx/telegram-bot-forex-perlson/core/internal/correlation"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/core/internal/execution"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/core/internal/parser"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/domain"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry/semconv"
	"go.opentelemetry.io/otel/attribute"
)

// Disposition qué hizo el core con un mensaje.
type Disposition string

const (
	DispositionFiltered  Disposition = "filtered"  // allow-list o pre-filtro
	DispositionIgnored   Disposition = "ignored"   // sin señal, reentrega, o reply sin efecto
	DispositionRejected  Disposition = "rejected"  // señal inválida, sin mutación
	DispositionPending   Disposition = "pending"   // PENDING_ENTRY guardado
	DispositionSubmitted Disposition = "submitted" // trabajo encolado en el pool
	DispositionDropped   Disposition = "dropped"   // pool lleno, registro finalizado ERROR
)

// Handling resumen del procesamiento de un mensaje.
type Handling struct {
	Disposition Disposition
	Reason      string
	Signal      *domain.ParsedSignal
	RecordID    string
	Outcome     correlation.Outcome // solo para replies
}

// Process procesa un mensaje de forma síncrona. Las ejecuciones se despachan
// al pool; el error solo refleja fallas de infraestructura.
func (c *Core) Process(ctx context.Context, msg *domain.InboundMessage) (*Handling, error) {
	ctx, span := c.telemetry.StartSpan(ctx, "core.message.process")
	defer span.End()

	h, err := c.process(ctx, msg)
	if err != nil {
		c.telemetry.RecordError(ctx, err)
		return nil, err
	}
	c.telemetry.SetSpanAttributes(ctx, attribute.String("disposition", string(h.Disposition)))
	return h, nil
}

func (c *Core) process(ctx context.Context, msg *domain.InboundMessage) (*Handling, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now().UTC()
	}
	ctx = telemetry.AppendEventAttrs(ctx,
		semconv.Signal.ChatID.String(msg.ChatID),
		semconv.Signal.MessageID.String(msg.MessageID),
	)

	// Auditoría: cada mensaje se registra antes de filtrar
	if err := c.store.MessageRepository().Record(ctx, msg); err != nil {
		c.telemetry.Warn(ctx, "Failed to record inbound message",
			attribute.String("error", err.Error()),
		)
	}

	if c.dedupe.Seen(msg.Key()) {
		c.telemetry.RecordCounter(ctx, "signal.messages.duplicate", 1)
		c.telemetry.Debug(ctx, "Duplicate message delivery ignored")
		return &Handling{Disposition: DispositionIgnored, Reason: "duplicate_message"}, nil
	}
	if !c.config.IsChatAllowed(msg.ChatID) {
		return c.filtered(ctx, "chat_not_allowed"), nil
	}
	if !parser.IsSignalMessage(msg.Text) {
		return c.filtered(ctx, "prefilter"), nil
	}

	sig, err := c.parser.Parse(ctx, msg.Text)
	if err != nil {
		return &Handling{Disposition: DispositionRejected, Reason: string(domain.CodeOf(err))}, nil
	}
	if sig == nil {
		return &Handling{Disposition: DispositionIgnored, Reason: "no_signal"}, nil
	}

	// CLOSE sin símbolo no es un cierre: "close half at TP1" con SL/TP es
	// un reply ParamsOnly y sigue la ruta de correlación.
	var h *Handling
	switch {
	case sig.Action == domain.ActionClose && sig.HasInstrument(), sig.SignalType == domain.SignalComplete:
		h, err = c.handleImmediate(ctx, msg, sig)
	case sig.SignalType == domain.SignalEntryOnly:
		h, err = c.handleEntry(ctx, msg, sig)
	case sig.SignalType == domain.SignalParamsOnly:
		h, err = c.handleParams(ctx, msg, sig)
	default:
		h = &Handling{Disposition: DispositionIgnored, Reason: "no_signal"}
	}
	if h != nil {
		h.Signal = sig
	}
	return h, err
}

// handleEntry guarda la entrada (deferred) o la ejecuta ya (immediate).
// En modo inmediato la entrada se ejecuta siempre a mercado.
func (c *Core) handleEntry(ctx context.Context, msg *domain.InboundMessage, sig *domain.ParsedSignal) (*Handling, error) {
	if c.config.EntryMode == EntryModeImmediate {
		market := *sig
		market.OrderType = domain.OrderTypeMarket
		market.EntryPrice = nil
		return c.handleImmediate(ctx, msg, &market)
	}

	rec, err := c.engine.RegisterEntry(ctx, msg.Key(), sig)
	if err != nil {
		return nil, err
	}
	return &Handling{Disposition: DispositionPending, RecordID: rec.ID}, nil
}

// handleImmediate crea el registro IN_PROGRESS y encola la orden (o el
// cierre por símbolo para CLOSE).
func (c *Core) handleImmediate(ctx context.Context, msg *domain.InboundMessage, sig *domain.ParsedSignal) (*Handling, error) {
	adm, err := c.engine.Admit(ctx, msg.Key(), sig)
	if err != nil {
		if code := domain.CodeOf(err); code != domain.ErrUnknown {
			c.telemetry.Warn(ctx, "Signal rejected",
				semconv.Signal.ErrorCode.String(string(code)),
				attribute.String("error", err.Error()),
			)
			return &Handling{Disposition: DispositionRejected, Reason: string(code)}, nil
		}
		return nil, err
	}
	if adm.Directive == nil {
		return c.dispatch(ctx, execution.CloseJob(adm.Record)), nil
	}
	return c.dispatch(ctx, execution.PlaceJob(adm.Record, adm.Directive)), nil
}

// handleParams correlaciona un reply SL/TP con su entrada.
func (c *Core) handleParams(ctx context.Context, msg *domain.InboundMessage, sig *domain.ParsedSignal) (*Handling, error) {
	if msg.ReplyTo == nil {
		c.telemetry.Info(ctx, "Params without reply chain ignored")
		return &Handling{Disposition: DispositionIgnored, Reason: "no_reply_chain"}, nil
	}

	if c.config.EntryMode == EntryModeImmediate {
		res, err := c.engine.ResolveAdjustment(ctx, *msg.ReplyTo, sig)
		if err != nil {
			return nil, err
		}
		if res.Outcome != correlation.OutcomeExecute {
			return replyHandling(res), nil
		}
		h := c.dispatch(ctx, execution.ModifyJob(res.Entry, sig.StopLoss, sig.TakeProfit))
		h.Outcome = res.Outcome
		return h, nil
	}

	res, err := c.engine.ResolveReply(ctx, *msg.ReplyTo, sig)
	if err != nil {
		return nil, err
	}
	if res.Outcome != correlation.OutcomeExecute {
		return replyHandling(res), nil
	}
	h := c.dispatch(ctx, execution.PlaceJob(res.Entry, res.Directive))
	h.Outcome = res.Outcome
	return h, nil
}

func (c *Core) dispatch(ctx context.Context, job *execution.Job) *Handling {
	h := &Handling{Disposition: DispositionSubmitted, RecordID: job.Record.ID}
	if err := c.pool.Submit(ctx, job); err != nil {
		h.Disposition = DispositionDropped
		h.Reason = err.Error()
	}
	return h
}

func (c *Core) filtered(ctx context.Context, reason string) *Handling {
	c.metrics.RecordMessageFiltered(ctx, attribute.String("reason", reason))
	c.telemetry.Debug(ctx, "Message filtered", attribute.String("reason", reason))
	return &Handling{Disposition: DispositionFiltered, Reason: reason}
}

func replyHandling(res *correlation.Resolution) *Handling {
	h := &Handling{Disposition: DispositionIgnored, Outcome: res.Outcome, Reason: res.Outcome.String()}
	if res.Outcome == correlation.OutcomeRejected {
		h.Disposition = DispositionRejected
	}
	if res.Entry != nil {
		h.RecordID = res.Entry.ID
	}
	return h
}
