package domain

import (
	"context"
)

// SignalRepository define operaciones de persistencia para SignalRecord.
//
// Implementaciones:
//   - PostgreSQL: core/internal/repository/postgres.go
//   - bbolt (single-node): core/internal/repository/bolt_ledger.go
//
// Las transiciones de estado se expresan como compare-and-swap en el store;
// el core nunca hace read-then-write.
type SignalRepository interface {
	// StorePendingEntry persiste un registro en PENDING_ENTRY y retorna su id.
	// Genera el id si viene vacío.
	StorePendingEntry(ctx context.Context, entry *SignalRecord) (string, error)

	// Create persiste un registro con el estado que trae.
	Create(ctx context.Context, rec *SignalRecord) error

	// FindByCorrelationKey obtiene el registro más reciente para la clave.
	// Retorna nil si no existe.
	FindByCorrelationKey(ctx context.Context, key CorrelationKey) (*SignalRecord, error)

	// GetByID obtiene un registro por id. Retorna nil si no existe.
	GetByID(ctx context.Context, id string) (*SignalRecord, error)

	// TryClaim marca atómicamente PENDING_ENTRY → IN_PROGRESS.
	// Retorna false si el registro ya no estaba pendiente.
	TryClaim(ctx context.Context, id string) (bool, error)

	// CompareAndSetStatus cambia el estado solo si el actual es from.
	CompareAndSetStatus(ctx context.Context, id string, from, to EntryStatus) (bool, error)

	// Finalize persiste el resultado de un registro IN_PROGRESS.
	// Retorna ErrStateConflict si el registro no está IN_PROGRESS.
	Finalize(ctx context.Context, id string, outcome *EntryOutcome) error

	// List obtiene registros ordenados por created_at DESC.
	List(ctx context.Context, limit, offset int) ([]*SignalRecord, error)

	// Stats cuenta registros por estado.
	Stats(ctx context.Context) (*EntryStats, error)
}

// MessageRepository auditoría de mensajes crudos recibidos.
type MessageRepository interface {
	// Record persiste el mensaje. Mensajes repetidos (mismo chat+id) se ignoran.
	Record(ctx context.Context, msg *InboundMessage) error
}

// SymbolRepository símbolos confirmados por el resolver (append-only).
type SymbolRepository interface {
	LoadSymbols(ctx context.Context) ([]string, error)
	SaveSymbol(ctx context.Context, symbol string) error
}

// RepositoryFactory agrupa los repositorios de un backend.
type RepositoryFactory interface {
	SignalRepository() SignalRepository
	MessageRepository() MessageRepository
	SymbolRepository() SymbolRepository
	Close() error
}
