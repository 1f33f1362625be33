// Package domain contiene tipos de dominio, validaciones y contratos del parser de señales.
//
// # Responsabilidades
//
//   - ParsedSignal y el enum cerrado SignalType
//   - SignalRecord (PendingEntry) y su ciclo de vida EntryStatus
//   - ExecutionDirective y el contrato ExecutionClient del broker
//   - Contratos de persistencia (SignalRepository, MessageRepository)
//   - Sistema de errores del dominio de trading
//
// # Validaciones
//
//	// Geometría de orden LIMIT
//	err := domain.ValidateLimitGeometry(domain.ActionBuy, 4477, domain.Float64(4473), domain.Float64(4519))
//
//	// Directiva completa
//	err := directive.Validate()
//
// # Errores
//
//	err := domain.NewError(domain.ErrInvalidStops, "buy limit requires SL < entry")
//	if domain.IsCode(err, domain.ErrInvalidStops) {
//	    // rechazo de validación
//	}
package domain
