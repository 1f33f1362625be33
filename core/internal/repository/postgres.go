// Package repository provee implementaciones de persistencia para el core de señales.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Driver PostgreSQL
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/domain"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/utils"
)

// schemaDDL crea las tablas si no existen. Idempotente.
const schemaDDL = `
CREATE SCHEMA IF NOT EXISTS tgsignals;

CREATE TABLE IF NOT EXISTS tgsignals.signals (
	id            TEXT PRIMARY KEY,
	chat_id       TEXT NOT NULL,
	message_id    TEXT NOT NULL,
	action        TEXT NOT NULL,
	symbol        TEXT NOT NULL,
	order_type    TEXT NOT NULL,
	entry_price   DOUBLE PRECISION,
	stop_loss     DOUBLE PRECISION,
	take_profit   DOUBLE PRECISION,
	signal_type   TEXT NOT NULL,
	status        TEXT NOT NULL,
	volume        DOUBLE PRECISION NOT NULL DEFAULT 0,
	ticket        BIGINT,
	fill_price    DOUBLE PRECISION,
	error_message TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_signals_correlation
	ON tgsignals.signals (chat_id, message_id, created_at DESC);

CREATE TABLE IF NOT EXISTS tgsignals.messages (
	chat_id             TEXT NOT NULL,
	message_id          TEXT NOT NULL,
	reply_to_chat_id    TEXT,
	reply_to_message_id TEXT,
	text                TEXT NOT NULL,
	received_at         TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (chat_id, message_id)
);

CREATE TABLE IF NOT EXISTS tgsignals.resolved_symbols (
	symbol     TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const signalColumns = `id, chat_id, message_id, action, symbol, order_type,
		       entry_price, stop_loss, take_profit, signal_type, status,
		       volume, ticket, fill_price, error_message, created_at, updated_at`

// OpenPostgres abre la conexión y verifica conectividad.
func OpenPostgres(ctx context.Context, connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}

// PostgresFactory implementa domain.RepositoryFactory para PostgreSQL.
type PostgresFactory struct {
	db *sql.DB

	// Repositorios inicializados lazy
	signalRepo  domain.SignalRepository
	messageRepo domain.MessageRepository
	symbolRepo  domain.SymbolRepository
}

// NewPostgresFactory crea un factory de repositorios PostgreSQL.
//
// Uso:
//
//	db, err := repository.OpenPostgres(ctx, connStr)
//	factory := repository.NewPostgresFactory(db)
//	signals := factory.SignalRepository()
func NewPostgresFactory(db *sql.DB) *PostgresFactory {
	return &PostgresFactory{
		db: db,
	}
}

// EnsureSchema crea schema, tablas e índices si no existen.
func (f *PostgresFactory) EnsureSchema(ctx context.Context) error {
	if _, err := f.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// SignalRepository retorna el repositorio de señales.
func (f *PostgresFactory) SignalRepository() domain.SignalRepository {
	if f.signalRepo == nil {
		f.signalRepo = &postgresSignalRepo{db: f.db}
	}
	return f.signalRepo
}

// MessageRepository retorna el repositorio de auditoría de mensajes.
func (f *PostgresFactory) MessageRepository() domain.MessageRepository {
	if f.messageRepo == nil {
		f.messageRepo = &postgresMessageRepo{db: f.db}
	}
	return f.messageRepo
}

// SymbolRepository retorna el repositorio de símbolos confirmados.
func (f *PostgresFactory) SymbolRepository() domain.SymbolRepository {
	if f.symbolRepo == nil {
		f.symbolRepo = &postgresSymbolRepo{db: f.db}
	}
	return f.symbolRepo
}

// Close cierra la conexión.
func (f *PostgresFactory) Close() error {
	return f.db.Close()
}

// ===========================================================================
// postgresSignalRepo
// ===========================================================================

type postgresSignalRepo struct {
	db *sql.DB
}

func (r *postgresSignalRepo) StorePendingEntry(ctx context.Context, entry *domain.SignalRecord) (string, error) {
	if entry.ID == "" {
		entry.ID = utils.GenerateUUIDv7()
	}
	entry.Status = domain.EntryStatusPending
	if err := r.Create(ctx, entry); err != nil {
		return "", err
	}
	return entry.ID, nil
}

func (r *postgresSignalRepo) Create(ctx context.Context, rec *domain.SignalRecord) error {
	query := `
		INSERT INTO tgsignals.signals (
			id, chat_id, message_id, action, symbol, order_type,
			entry_price, stop_loss, take_profit, signal_type, status,
			volume, ticket, fill_price, error_message, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)
	`
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.CorrelationKey.ChatID,
		rec.CorrelationKey.MessageID,
		string(rec.Action),
		rec.Symbol,
		string(rec.OrderType),
		rec.EntryPrice,
		rec.StopLoss,
		rec.TakeProfit,
		rec.SignalType.String(),
		string(rec.Status),
		rec.Volume,
		rec.Ticket,
		rec.FillPrice,
		rec.ErrorMessage,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create signal: %w", err)
	}
	return nil
}

func (r *postgresSignalRepo) FindByCorrelationKey(ctx context.Context, key domain.CorrelationKey) (*domain.SignalRecord, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM tgsignals.signals
		WHERE chat_id = $1 AND message_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	rec, err := scanSignal(r.db.QueryRowContext(ctx, query, key.ChatID, key.MessageID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find signal by correlation key: %w", err)
	}
	return rec, nil
}

func (r *postgresSignalRepo) GetByID(ctx context.Context, id string) (*domain.SignalRecord, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM tgsignals.signals
		WHERE id = $1
	`
	rec, err := scanSignal(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get signal: %w", err)
	}
	return rec, nil
}

func (r *postgresSignalRepo) TryClaim(ctx context.Context, id string) (bool, error) {
	return r.CompareAndSetStatus(ctx, id, domain.EntryStatusPending, domain.EntryStatusInProgress)
}

func (r *postgresSignalRepo) CompareAndSetStatus(ctx context.Context, id string, from, to domain.EntryStatus) (bool, error) {
	query := `
		UPDATE tgsignals.signals
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`
	result, err := r.db.ExecContext(ctx, query, id, string(from), string(to))
	if err != nil {
		return false, fmt.Errorf("failed to update signal status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *postgresSignalRepo) Finalize(ctx context.Context, id string, outcome *domain.EntryOutcome) error {
	if err := validateOutcome(outcome); err != nil {
		return err
	}

	query := `
		UPDATE tgsignals.signals
		SET status        = $2,
		    ticket        = COALESCE($3, ticket),
		    fill_price    = COALESCE($4, fill_price),
		    volume        = COALESCE($5, volume),
		    stop_loss     = COALESCE($6, stop_loss),
		    take_profit   = COALESCE($7, take_profit),
		    error_message = $8,
		    updated_at    = NOW()
		WHERE id = $1 AND status = 'IN_PROGRESS'
	`
	result, err := r.db.ExecContext(ctx, query,
		id,
		string(outcome.Status),
		outcome.Ticket,
		outcome.FillPrice,
		outcome.Volume,
		outcome.StopLoss,
		outcome.TakeProfit,
		outcome.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize signal: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errNotInProgress(id)
	}
	return nil
}

func (r *postgresSignalRepo) List(ctx context.Context, limit, offset int) ([]*domain.SignalRecord, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM tgsignals.signals
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, normalizeLimit(limit), max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to list signals: %w", err)
	}
	defer rows.Close()

	var out []*domain.SignalRecord
	for rows.Next() {
		rec, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate signals: %w", err)
	}
	return out, nil
}

func (r *postgresSignalRepo) Stats(ctx context.Context) (*domain.EntryStats, error) {
	query := `
		SELECT status, COUNT(*)
		FROM tgsignals.signals
		GROUP BY status
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	stats := domain.NewEntryStats()
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		stats.Add(domain.EntryStatus(status), count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stats: %w", err)
	}
	return stats, nil
}

// rowScanner abstrae *sql.Row y *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSignal(row rowScanner) (*domain.SignalRecord, error) {
	var (
		rec                           domain.SignalRecord
		action, orderType, signalType string
		status                        string
		entry, stopLoss, takeProfit   sql.NullFloat64
		fillPrice                     sql.NullFloat64
		ticket                        sql.NullInt64
	)
	err := row.Scan(
		&rec.ID,
		&rec.CorrelationKey.ChatID,
		&rec.CorrelationKey.MessageID,
		&action,
		&rec.Symbol,
		&orderType,
		&entry,
		&stopLoss,
		&takeProfit,
		&signalType,
		&status,
		&rec.Volume,
		&ticket,
		&fillPrice,
		&rec.ErrorMessage,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Action = domain.Action(action)
	rec.OrderType = domain.OrderType(orderType)
	rec.Status = domain.EntryStatus(status)
	if err := rec.SignalType.UnmarshalText([]byte(signalType)); err != nil {
		return nil, err
	}
	rec.EntryPrice = nullFloat(entry)
	rec.StopLoss = nullFloat(stopLoss)
	rec.TakeProfit = nullFloat(takeProfit)
	rec.FillPrice = nullFloat(fillPrice)
	if ticket.Valid {
		rec.Ticket = domain.Int64(ticket.Int64)
	}
	return &rec, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return domain.Float64(v.Float64)
}

// ===========================================================================
// postgresMessageRepo
// ===========================================================================

type postgresMessageRepo struct {
	db *sql.DB
}

func (r *postgresMessageRepo) Record(ctx context.Context, msg *domain.InboundMessage) error {
	query := `
		INSERT INTO tgsignals.messages (
			chat_id, message_id, reply_to_chat_id, reply_to_message_id, text, received_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (chat_id, message_id) DO NOTHING
	`
	var replyChat, replyMsg sql.NullString
	if msg.ReplyTo != nil {
		replyChat = sql.NullString{String: msg.ReplyTo.ChatID, Valid: true}
		replyMsg = sql.NullString{String: msg.ReplyTo.MessageID, Valid: true}
	}
	receivedAt := msg.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		msg.ChatID,
		msg.MessageID,
		replyChat,
		replyMsg,
		msg.Text,
		receivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record message: %w", err)
	}
	return nil
}

// ===========================================================================
// postgresSymbolRepo
// ===========================================================================

type postgresSymbolRepo struct {
	db *sql.DB
}

func (r *postgresSymbolRepo) LoadSymbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT symbol FROM tgsignals.resolved_symbols ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to load symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *postgresSymbolRepo) SaveSymbol(ctx context.Context, symbol string) error {
	query := `
		INSERT INTO tgsignals.resolved_symbols (symbol) VALUES ($1)
		ON CONFLICT (symbol) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, symbol); err != nil {
		return fmt.Errorf("failed to save symbol: %w", err)
	}
	return nil
}
