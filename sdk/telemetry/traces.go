package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan inicia un span hijo del span del contexto.
//
// Los atributos comunes del contexto (componente) se copian al span. Con las
// trazas deshabilitadas retorna el span actual sin crear uno nuevo.
func (c *Client) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if c.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	if common := GetCommonAttrs(ctx); len(common) > 0 {
		opts = append(opts, trace.WithAttributes(common...))
	}
	return c.tracer.Start(ctx, name, opts...)
}

// RecordError marca el span actual como fallido.
//
// El evento de error lleva los atributos de evento del contexto (record_id,
// reply_to) seguidos de attrs.
func (c *Client) RecordError(ctx context.Context, err error, attrs ...attribute.KeyValue) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	events := GetEventAttrs(ctx)
	all := make([]attribute.KeyValue, 0, len(events)+len(attrs))
	all = append(all, events...)
	all = append(all, attrs...)
	span.RecordError(err, trace.WithAttributes(all...))
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanAttributes añade atributos al span actual
func (c *Client) SetSpanAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attrs...)
}

// GetTraceID extrae el TraceID del contexto
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// GetSpanID extrae el SpanID del contexto
func GetSpanID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.SpanID().String()
}
