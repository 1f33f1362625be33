package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/domain"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/utils"
)

// MemoryFactory backend en memoria de proceso. Pensado para dry-run y tests;
// no sobrevive reinicios.
type MemoryFactory struct {
	signals  *memorySignalRepo
	messages *memoryMessageRepo
	symbols  *memorySymbolRepo
}

// NewMemory crea un backend en memoria vacío.
func NewMemory() *MemoryFactory {
	return &MemoryFactory{
		signals:  &memorySignalRepo{byID: make(map[string]*domain.SignalRecord)},
		messages: &memoryMessageRepo{seen: make(map[domain.CorrelationKey]domain.InboundMessage)},
		symbols:  &memorySymbolRepo{set: make(map[string]struct{})},
	}
}

func (f *MemoryFactory) SignalRepository() domain.SignalRepository   { return f.signals }
func (f *MemoryFactory) MessageRepository() domain.MessageRepository { return f.messages }
func (f *MemoryFactory) SymbolRepository() domain.SymbolRepository   { return f.symbols }
func (f *MemoryFactory) Close() error                                { return nil }

// Messages retorna una copia de los mensajes auditados, en orden de llegada.
func (f *MemoryFactory) Messages() []domain.InboundMessage {
	return f.messages.snapshot()
}

type memorySignalRepo struct {
	mu    sync.Mutex
	byID  map[string]*domain.SignalRecord
	order []string // Orden de inserción
}

func (r *memorySignalRepo) StorePendingEntry(ctx context.Context, entry *domain.SignalRecord) (string, error) {
	if entry.ID == "" {
		entry.ID = utils.GenerateUUIDv7()
	}
	entry.Status = domain.EntryStatusPending
	if err := r.Create(ctx, entry); err != nil {
		return "", err
	}
	return entry.ID, nil
}

func (r *memorySignalRepo) Create(_ context.Context, rec *domain.SignalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[rec.ID]; exists {
		return domain.NewError(domain.ErrStateConflict, "signal "+rec.ID+" already exists")
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}
	stored := *rec
	r.byID[rec.ID] = &stored
	r.order = append(r.order, rec.ID)
	return nil
}

func (r *memorySignalRepo) FindByCorrelationKey(_ context.Context, key domain.CorrelationKey) (*domain.SignalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Más reciente primero
	for i := len(r.order) - 1; i >= 0; i-- {
		rec := r.byID[r.order[i]]
		if rec.CorrelationKey == key {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memorySignalRepo) GetByID(_ context.Context, id string) (*domain.SignalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *memorySignalRepo) TryClaim(ctx context.Context, id string) (bool, error) {
	return r.CompareAndSetStatus(ctx, id, domain.EntryStatusPending, domain.EntryStatusInProgress)
}

func (r *memorySignalRepo) CompareAndSetStatus(_ context.Context, id string, from, to domain.EntryStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok || rec.Status != from {
		return false, nil
	}
	rec.Status = to
	rec.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *memorySignalRepo) Finalize(_ context.Context, id string, outcome *domain.EntryOutcome) error {
	if err := validateOutcome(outcome); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok || rec.Status != domain.EntryStatusInProgress {
		return errNotInProgress(id)
	}
	outcome.Apply(rec, time.Now().UTC())
	return nil
}

func (r *memorySignalRepo) List(_ context.Context, limit, offset int) ([]*domain.SignalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*domain.SignalRecord, 0, len(r.order))
	for _, id := range r.order {
		cp := *r.byID[id]
		all = append(all, &cp)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	offset = max(offset, 0)
	if offset >= len(all) {
		return nil, nil
	}
	end := min(offset+normalizeLimit(limit), len(all))
	return all[offset:end], nil
}

func (r *memorySignalRepo) Stats(_ context.Context) (*domain.EntryStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := domain.NewEntryStats()
	for _, rec := range r.byID {
		stats.Add(rec.Status, 1)
	}
	return stats, nil
}

type memoryMessageRepo struct {
	mu    sync.Mutex
	seen  map[domain.CorrelationKey]domain.InboundMessage
	order []domain.CorrelationKey
}

func (r *memoryMessageRepo) Record(_ context.Context, msg *domain.InboundMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := msg.Key()
	if _, dup := r.seen[key]; dup {
		return nil
	}
	r.seen[key] = *msg
	r.order = append(r.order, key)
	return nil
}

func (r *memoryMessageRepo) snapshot() []domain.InboundMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.InboundMessage, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.seen[k])
	}
	return out
}

type memorySymbolRepo struct {
	mu  sync.Mutex
	set map[string]struct{}
}

func (r *memorySymbolRepo) LoadSymbols(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.set))
	for s := range r.set {
		out = append(out, s)
	}
	slices.Sort(out)
	return out, nil
}

func (r *memorySymbolRepo) SaveSymbol(_ context.Context, symbol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set[symbol] = struct{}{}
	return nil
}
