package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/domain"
)

func newMockFactory(t *testing.T) (*PostgresFactory, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresFactory(db), mock
}

var signalCols = []string{
	"id", "chat_id", "message_id", "action", "symbol", "order_type",
	"entry_price", "stop_loss", "take_profit", "signal_type", "status",
	"volume", "ticket", "fill_price", "error_message", "created_at", "updated_at",
}

func TestPostgres_EnsureSchema(t *testing.T) {
	f, mock := newMockFactory(t)
	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS tgsignals`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, f.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_StorePendingEntryGeneratesID(t *testing.T) {
	f, mock := newMockFactory(t)
	mock.ExpectExec(`INSERT INTO tgsignals\.signals`).
		WithArgs(sqlmock.AnyArg(), "-100", "42", "BUY", "XAUUSD", "MARKET",
			nil, nil, nil, "ENTRY_ONLY", "PENDING_ENTRY", 0.01, nil, nil, "",
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := entryOnly("-100", "42")
	rec.Volume = 0.01
	id, err := f.SignalRepository().StorePendingEntry(context.Background(), rec)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, rec.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FindByCorrelationKey(t *testing.T) {
	f, mock := newMockFactory(t)
	now := time.Now().UTC()
	rows := sqlmock.NewRows(signalCols).AddRow(
		"rec-1", "-100", "42", "BUY", "XAUUSD", "LIMIT",
		4490.0, nil, nil, "ENTRY_ONLY", "PENDING_ENTRY",
		0.01, nil, nil, "", now, now,
	)
	mock.ExpectQuery(`FROM tgsignals\.signals\s+WHERE chat_id = \$1 AND message_id = \$2`).
		WithArgs("-100", "42").
		WillReturnRows(rows)

	rec, err := f.SignalRepository().FindByCorrelationKey(context.Background(), domain.CorrelationKey{ChatID: "-100", MessageID: "42"})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "rec-1", rec.ID)
	assert.Equal(t, domain.OrderTypeLimit, rec.OrderType)
	assert.Equal(t, domain.SignalEntryOnly, rec.SignalType)
	require.NotNil(t, rec.EntryPrice)
	assert.InDelta(t, 4490.0, *rec.EntryPrice, 1e-9)
	assert.Nil(t, rec.StopLoss)
	assert.Nil(t, rec.Ticket)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FindByCorrelationKeyNotFound(t *testing.T) {
	f, mock := newMockFactory(t)
	mock.ExpectQuery(`FROM tgsignals\.signals`).WillReturnError(sql.ErrNoRows)

	rec, err := f.SignalRepository().FindByCorrelationKey(context.Background(), domain.CorrelationKey{ChatID: "a", MessageID: "b"})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestPostgres_TryClaim(t *testing.T) {
	f, mock := newMockFactory(t)
	mock.ExpectExec(`UPDATE tgsignals\.signals\s+SET status = \$3`).
		WithArgs("rec-1", "PENDING_ENTRY", "IN_PROGRESS").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE tgsignals\.signals\s+SET status = \$3`).
		WithArgs("rec-1", "PENDING_ENTRY", "IN_PROGRESS").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := f.SignalRepository()
	ok, err := repo.TryClaim(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TryClaim(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FinalizeConflict(t *testing.T) {
	f, mock := newMockFactory(t)
	mock.ExpectExec(`WHERE id = \$1 AND status = 'IN_PROGRESS'`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := f.SignalRepository().Finalize(context.Background(), "rec-1", &domain.EntryOutcome{
		Status:       domain.EntryStatusError,
		ErrorMessage: "broker reject",
	})
	assert.True(t, domain.IsCode(err, domain.ErrStateConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FinalizeSuccess(t *testing.T) {
	f, mock := newMockFactory(t)
	mock.ExpectExec(`WHERE id = \$1 AND status = 'IN_PROGRESS'`).
		WithArgs("rec-1", "SUCCESS", int64(77), 4490.5, nil, nil, nil, "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := f.SignalRepository().Finalize(context.Background(), "rec-1", &domain.EntryOutcome{
		Status:    domain.EntryStatusSuccess,
		Ticket:    domain.Int64(77),
		FillPrice: domain.Float64(4490.5),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Stats(t *testing.T) {
	f, mock := newMockFactory(t)
	mock.ExpectQuery(`SELECT status, COUNT\(\*\)`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("SUCCESS", int64(4)).
			AddRow("ERROR", int64(1)))

	stats, err := f.SignalRepository().Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Total)
	assert.Equal(t, int64(4), stats.ByStatus[domain.EntryStatusSuccess])
	assert.Equal(t, int64(0), stats.ByStatus[domain.EntryStatusPending])
}

func TestPostgres_ListClampsLimit(t *testing.T) {
	f, mock := newMockFactory(t)
	mock.ExpectQuery(`ORDER BY created_at DESC\s+LIMIT \$1 OFFSET \$2`).
		WithArgs(defaultListLimit, 0).
		WillReturnRows(sqlmock.NewRows(signalCols))

	list, err := f.SignalRepository().List(context.Background(), 0, -3)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecordMessage(t *testing.T) {
	f, mock := newMockFactory(t)
	received := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(`ON CONFLICT \(chat_id, message_id\) DO NOTHING`).
		WithArgs("-100", "43", "-100", "42", "SL 4473 TP 4519", received).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := f.MessageRepository().Record(context.Background(), &domain.InboundMessage{
		ChatID:     "-100",
		MessageID:  "43",
		ReplyTo:    &domain.CorrelationKey{ChatID: "-100", MessageID: "42"},
		Text:       "SL 4473 TP 4519",
		ReceivedAt: received,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Symbols(t *testing.T) {
	f, mock := newMockFactory(t)
	mock.ExpectExec(`INSERT INTO tgsignals\.resolved_symbols`).
		WithArgs("GBPJPY").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT symbol FROM tgsignals\.resolved_symbols`).
		WillReturnRows(sqlmock.NewRows([]string{"symbol"}).AddRow("GBPJPY"))

	repo := f.SymbolRepository()
	require.NoError(t, repo.SaveSymbol(context.Background(), "GBPJPY"))
	syms, err := repo.LoadSymbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"GBPJPY"}, syms)
	assert.NoError(t, mock.ExpectationsWereMet())
}
