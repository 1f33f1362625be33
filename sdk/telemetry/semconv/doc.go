// Package semconv define las claves de atributos OpenTelemetry usadas por el
// pipeline de señales (logs, métricas y trazas).
//
//	client.Info(ctx, "Signal parsed",
//	    semconv.Signal.Symbol.String("XAUUSD"),
//	    semconv.Signal.Type.String("COMPLETE"),
//	)
package semconv
