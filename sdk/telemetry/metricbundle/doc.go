// Package metricbundle agrupa los instrumentos OpenTelemetry del pipeline de
// señales en un único bundle.
//
// Todas las métricas siguen el formato signal.<entidad>.<métrica>, por ejemplo
// signal.messages.received o signal.execution.latency.
package metricbundle
