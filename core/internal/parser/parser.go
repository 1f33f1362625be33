// Package parser extrae señales de trading de mensajes de chat en texto libre.
//
// Flujo: Normalize → extractores (acción, símbolo, tipo de orden, precios) →
// Classify. Cada extractor usa una tabla ordenada de patrones.
package parser

import (
	"context"
	"strings"
	"time"

	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/domain"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry/metricbundle"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry/semconv"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/utils"
	"go.opentelemetry.io/otel/attribute"
)

// SymbolResolver resuelve el instrumento presente en un texto normalizado.
type SymbolResolver interface {
	Resolve(ctx context.Context, text string) (string, bool)
}

// Parser convierte texto crudo en domain.ParsedSignal.
type Parser struct {
	resolver     SymbolResolver
	closeEnabled bool
	telemetry    *telemetry.Client
	metrics      *metricbundle.SignalMetrics
}

// Option configura el Parser.
type Option func(*Parser)

// WithCloseEnabled habilita la acción CLOSE.
func WithCloseEnabled(enabled bool) Option {
	return func(p *Parser) { p.closeEnabled = enabled }
}

// WithTelemetry inyecta el cliente de telemetría.
func WithTelemetry(tel *telemetry.Client) Option {
	return func(p *Parser) {
		if tel != nil {
			p.telemetry = tel
		}
	}
}

// WithMetrics inyecta el bundle de métricas.
func WithMetrics(m *metricbundle.SignalMetrics) Option {
	return func(p *Parser) { p.metrics = m }
}

// New crea un Parser.
func New(resolver SymbolResolver, opts ...Option) *Parser {
	p := &Parser{
		resolver:  resolver,
		telemetry: telemetry.NewNoop("parser"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CloseEnabled indica si la acción CLOSE está habilitada.
func (p *Parser) CloseEnabled() bool {
	return p.closeEnabled
}

// Extract aplica los extractores sobre texto ya normalizado.
//
// El símbolo solo se resuelve si hay acción: sin acción no puede haber
// instrumento y así el caché del resolver no se contamina con ruido.
func (p *Parser) Extract(ctx context.Context, normalized string) Fields {
	f := Fields{
		Action:     ExtractAction(normalized, p.closeEnabled),
		OrderType:  ExtractOrderType(normalized),
		EntryPrice: ExtractEntryPrice(normalized),
		StopLoss:   ExtractStopLoss(normalized),
		TakeProfit: ExtractTakeProfit(normalized),
	}

	if f.Action != domain.ActionUnknown && p.resolver != nil {
		if symbol, ok := p.resolver.Resolve(ctx, normalized); ok {
			f.Symbol = symbol
		}
	}

	// Precio de entrada sin marcador de mercado ⇒ LIMIT
	if f.EntryPrice != nil && f.OrderType == domain.OrderTypeMarket && !HasMarketMarker(normalized) {
		f.OrderType = domain.OrderTypeLimit
	}

	return f
}

// Parse procesa un mensaje completo.
//
// Retorna (nil, nil) si el texto no contiene una señal (INVALID). Retorna
// (nil, err) con *domain.TradingError si la señal viola un invariante.
func (p *Parser) Parse(ctx context.Context, text string) (*domain.ParsedSignal, error) {
	start := time.Now()
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	ctx, span := p.telemetry.StartSpan(ctx, "core.parser.parse")
	defer span.End()

	normalized := Normalize(text)
	fields := p.Extract(ctx, normalized)

	sig, err := Classify(fields)
	latency := utils.ElapsedMsSince(start)
	if err != nil {
		p.telemetry.RecordError(ctx, err,
			semconv.Signal.ErrorCode.String(string(domain.CodeOf(err))),
		)
		p.telemetry.Warn(ctx, "Signal validation failed",
			attribute.String("error", err.Error()),
			semconv.Signal.ErrorCode.String(string(domain.CodeOf(err))),
			semconv.Signal.Action.String(fields.Action.String()),
			semconv.Signal.Symbol.String(fields.Symbol),
		)
		p.metrics.RecordParseResult(ctx, latency,
			semconv.Signal.Type.String("REJECTED"),
			semconv.Signal.ErrorCode.String(string(domain.CodeOf(err))),
		)
		return nil, err
	}

	p.metrics.RecordParseResult(ctx, latency, semconv.Signal.Type.String(sig.SignalType.String()))
	p.telemetry.SetSpanAttributes(ctx, semconv.Signal.Type.String(sig.SignalType.String()))

	switch sig.SignalType {
	case domain.SignalInvalid:
		p.telemetry.Debug(ctx, "No signal in message")
		return nil, nil
	case domain.SignalComplete, domain.SignalEntryOnly, domain.SignalParamsOnly:
		if sig.HasInstrument() && !sig.HasBothRiskParams() {
			p.telemetry.Warn(ctx, "Signal without full risk parameters",
				semconv.Signal.Action.String(sig.Action.String()),
				semconv.Signal.Symbol.String(sig.Symbol),
			)
		}
		p.telemetry.Info(ctx, "Signal parsed",
			semconv.Signal.Type.String(sig.SignalType.String()),
			semconv.Signal.Action.String(sig.Action.String()),
			semconv.Signal.Symbol.String(sig.Symbol),
			semconv.Signal.OrderType.String(string(sig.OrderType)),
		)
	}

	return sig, nil
}
