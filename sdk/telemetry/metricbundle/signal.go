package metricbundle

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SignalMetrics bundle de métricas del pipeline de señales.
//
// # Métricas de Conteo
//
//   - signal.messages.received: mensajes entrantes aceptados
//   - signal.messages.filtered: mensajes descartados por pre-filtro o allow-list
//   - signal.parse.result: resultado del parseo por signal.type
//   - signal.symbol.lookup: resoluciones de símbolo por signal.source
//   - signal.correlation.outcome: resultado de respuestas y ajustes
//   - signal.execution.completed: ejecuciones finalizadas por signal.status
//
// # Métricas de Latencia
//
//   - signal.parse.latency: duración del parseo (ms)
//   - signal.execution.latency: duración de la llamada al broker (ms)
//
// # Gauges
//
//   - signal.queue.depth: trabajos pendientes en el pool de ejecución
type SignalMetrics struct {
	MessagesReceived   metric.Int64Counter
	MessagesFiltered   metric.Int64Counter
	ParseResult        metric.Int64Counter
	SymbolLookup       metric.Int64Counter
	CorrelationOutcome metric.Int64Counter
	ExecutionCompleted metric.Int64Counter
	ParseLatency       metric.Float64Histogram
	ExecutionLatency   metric.Float64Histogram
	QueueDepth         metric.Int64UpDownCounter
}

// NewSignalMetrics crea los instrumentos sobre el meter indicado.
func NewSignalMetrics(meter metric.Meter) (*SignalMetrics, error) {
	m := &SignalMetrics{}
	var err error

	if m.MessagesReceived, err = meter.Int64Counter("signal.messages.received",
		metric.WithDescription("Inbound messages accepted"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}

	if m.MessagesFiltered, err = meter.Int64Counter("signal.messages.filtered",
		metric.WithDescription("Inbound messages discarded before parsing"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}

	if m.ParseResult, err = meter.Int64Counter("signal.parse.result",
		metric.WithDescription("Parse results by signal type"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}

	if m.SymbolLookup, err = meter.Int64Counter("signal.symbol.lookup",
		metric.WithDescription("Symbol resolutions by source"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}

	if m.CorrelationOutcome, err = meter.Int64Counter("signal.correlation.outcome",
		metric.WithDescription("Reply and adjustment correlation outcomes"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}

	if m.ExecutionCompleted, err = meter.Int64Counter("signal.execution.completed",
		metric.WithDescription("Finalized executions by status"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}

	if m.ParseLatency, err = meter.Float64Histogram("signal.parse.latency",
		metric.WithDescription("Parse duration"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.ExecutionLatency, err = meter.Float64Histogram("signal.execution.latency",
		metric.WithDescription("Broker call duration"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.QueueDepth, err = meter.Int64UpDownCounter("signal.queue.depth",
		metric.WithDescription("Pending jobs in the execution pool"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordMessageReceived registra un mensaje entrante aceptado
func (m *SignalMetrics) RecordMessageReceived(ctx context.Context, attrs ...attribute.KeyValue) {
	if m == nil {
		return
	}
	m.MessagesReceived.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordMessageFiltered registra un mensaje descartado
func (m *SignalMetrics) RecordMessageFiltered(ctx context.Context, attrs ...attribute.KeyValue) {
	if m == nil {
		return
	}
	m.MessagesFiltered.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordParseResult registra el resultado y la duración de un parseo
func (m *SignalMetrics) RecordParseResult(ctx context.Context, latencyMs float64, attrs ...attribute.KeyValue) {
	if m == nil {
		return
	}
	m.ParseResult.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.ParseLatency.Record(ctx, latencyMs, metric.WithAttributes(attrs...))
}

// RecordSymbolLookup registra una resolución de símbolo
func (m *SignalMetrics) RecordSymbolLookup(ctx context.Context, attrs ...attribute.KeyValue) {
	if m == nil {
		return
	}
	m.SymbolLookup.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCorrelationOutcome registra el resultado de una correlación
func (m *SignalMetrics) RecordCorrelationOutcome(ctx context.Context, attrs ...attribute.KeyValue) {
	if m == nil {
		return
	}
	m.CorrelationOutcome.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordExecution registra una ejecución finalizada y su latencia
func (m *SignalMetrics) RecordExecution(ctx context.Context, latencyMs float64, attrs ...attribute.KeyValue) {
	if m == nil {
		return
	}
	m.ExecutionCompleted.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.ExecutionLatency.Record(ctx, latencyMs, metric.WithAttributes(attrs...))
}

// AdjustQueueDepth suma delta a la profundidad de la cola
func (m *SignalMetrics) AdjustQueueDepth(ctx context.Context, delta int64, attrs ...attribute.KeyValue) {
	if m == nil {
		return
	}
	m.QueueDepth.Add(ctx, delta, metric.WithAttributes(attrs...))
}
