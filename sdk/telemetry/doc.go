// Package telemetry proporciona observabilidad para el servicio de señales:
// logs JSON (slog), métricas y trazas OpenTelemetry exportadas vía OTLP gRPC.
//
// Uso básico:
//
//	client, err := telemetry.New(ctx, "signal-core", "production",
//	    telemetry.WithOTLPEndpoint("otel-collector:4317"),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Shutdown(ctx)
//
//	ctx = telemetry.AppendCommonAttrs(ctx, semconv.Signal.Component.String("core"))
//	client.Info(ctx, "Signal stored", semconv.Signal.RecordID.String(id))
//
//	client.SignalMetrics().RecordMessageReceived(ctx)
//
// Con métricas deshabilitadas el meter es noop y los bundles siguen siendo
// seguros de usar.
package telemetry
