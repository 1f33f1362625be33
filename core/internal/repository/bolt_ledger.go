package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/domain"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/utils"
)

var (
	signalsBucket  = []byte("signals")     // id -> SignalRecord JSON
	keysBucket     = []byte("signal_keys") // chat:message -> id (el más reciente)
	sequenceBucket = []byte("signal_seq")  // seq big-endian -> id
	messagesBucket = []byte("messages")    // chat:message -> InboundMessage JSON
	symbolsBucket  = []byte("symbols")     // symbol -> vacío

	errClaimLost = errors.New("claim lost")
)

// BoltLedger backend single-node sobre bbolt. Cada transición de estado se
// evalúa y escribe dentro de una única transacción Update.
type BoltLedger struct {
	db *bolt.DB
}

// OpenBoltLedger abre (o crea) el archivo del ledger y sus buckets.
func OpenBoltLedger(path string) (*BoltLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir ledger path: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{signalsBucket, keysBucket, sequenceBucket, messagesBucket, symbolsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &BoltLedger{db: db}, nil
}

func (l *BoltLedger) SignalRepository() domain.SignalRepository   { return l }
func (l *BoltLedger) MessageRepository() domain.MessageRepository { return l }
func (l *BoltLedger) SymbolRepository() domain.SymbolRepository   { return l }

func (l *BoltLedger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func (l *BoltLedger) StorePendingEntry(ctx context.Context, entry *domain.SignalRecord) (string, error) {
	if entry.ID == "" {
		entry.ID = utils.GenerateUUIDv7()
	}
	entry.Status = domain.EntryStatusPending
	if err := l.Create(ctx, entry); err != nil {
		return "", err
	}
	return entry.ID, nil
}

func (l *BoltLedger) Create(_ context.Context, rec *domain.SignalRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}

	err := l.db.Update(func(tx *bolt.Tx) error {
		signals := tx.Bucket(signalsBucket)
		if signals.Get([]byte(rec.ID)) != nil {
			return domain.NewError(domain.ErrStateConflict, "signal "+rec.ID+" already exists")
		}
		if err := putSignal(signals, rec); err != nil {
			return err
		}
		if err := tx.Bucket(keysBucket).Put([]byte(rec.CorrelationKey.String()), []byte(rec.ID)); err != nil {
			return err
		}
		seqBucket := tx.Bucket(sequenceBucket)
		seq, err := seqBucket.NextSequence()
		if err != nil {
			return err
		}
		return seqBucket.Put(seqKey(seq), []byte(rec.ID))
	})
	if err != nil {
		if domain.CodeOf(err) == domain.ErrStateConflict {
			return err
		}
		return fmt.Errorf("failed to create signal: %w", err)
	}
	return nil
}

func (l *BoltLedger) FindByCorrelationKey(_ context.Context, key domain.CorrelationKey) (*domain.SignalRecord, error) {
	var rec *domain.SignalRecord
	err := l.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(keysBucket).Get([]byte(key.String()))
		if len(id) == 0 {
			return nil
		}
		var err error
		rec, err = getSignal(tx.Bucket(signalsBucket), id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find signal by correlation key: %w", err)
	}
	return rec, nil
}

func (l *BoltLedger) GetByID(_ context.Context, id string) (*domain.SignalRecord, error) {
	var rec *domain.SignalRecord
	err := l.db.View(func(tx *bolt.Tx) error {
		var err error
		rec, err = getSignal(tx.Bucket(signalsBucket), []byte(id))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get signal: %w", err)
	}
	return rec, nil
}

func (l *BoltLedger) TryClaim(ctx context.Context, id string) (bool, error) {
	return l.CompareAndSetStatus(ctx, id, domain.EntryStatusPending, domain.EntryStatusInProgress)
}

func (l *BoltLedger) CompareAndSetStatus(_ context.Context, id string, from, to domain.EntryStatus) (bool, error) {
	err := l.db.Update(func(tx *bolt.Tx) error {
		signals := tx.Bucket(signalsBucket)
		rec, err := getSignal(signals, []byte(id))
		if err != nil {
			return err
		}
		if rec == nil || rec.Status != from {
			return errClaimLost
		}
		rec.Status = to
		rec.UpdatedAt = time.Now().UTC()
		return putSignal(signals, rec)
	})
	if errors.Is(err, errClaimLost) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to update signal status: %w", err)
	}
	return true, nil
}

func (l *BoltLedger) Finalize(_ context.Context, id string, outcome *domain.EntryOutcome) error {
	if err := validateOutcome(outcome); err != nil {
		return err
	}
	err := l.db.Update(func(tx *bolt.Tx) error {
		signals := tx.Bucket(signalsBucket)
		rec, err := getSignal(signals, []byte(id))
		if err != nil {
			return err
		}
		if rec == nil || rec.Status != domain.EntryStatusInProgress {
			return errClaimLost
		}
		outcome.Apply(rec, time.Now().UTC())
		return putSignal(signals, rec)
	})
	if errors.Is(err, errClaimLost) {
		return errNotInProgress(id)
	}
	if err != nil {
		return fmt.Errorf("failed to finalize signal: %w", err)
	}
	return nil
}

// List recorre el índice de secuencia desde el final (más reciente primero).
func (l *BoltLedger) List(_ context.Context, limit, offset int) ([]*domain.SignalRecord, error) {
	limit = normalizeLimit(limit)
	offset = max(offset, 0)

	var out []*domain.SignalRecord
	err := l.db.View(func(tx *bolt.Tx) error {
		signals := tx.Bucket(signalsBucket)
		c := tx.Bucket(sequenceBucket).Cursor()
		skipped := 0
		for k, id := c.Last(); k != nil && len(out) < limit; k, id = c.Prev() {
			if skipped < offset {
				skipped++
				continue
			}
			rec, err := getSignal(signals, id)
			if err != nil {
				return err
			}
			if rec != nil {
				out = append(out, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list signals: %w", err)
	}
	return out, nil
}

func (l *BoltLedger) Stats(_ context.Context) (*domain.EntryStats, error) {
	stats := domain.NewEntryStats()
	err := l.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(signalsBucket).ForEach(func(_, v []byte) error {
			var rec domain.SignalRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			stats.Add(rec.Status, 1)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	return stats, nil
}

func (l *BoltLedger) Record(_ context.Context, msg *domain.InboundMessage) error {
	err := l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(messagesBucket)
		key := []byte(msg.Key().String())
		if b.Get(key) != nil {
			return nil
		}
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
	if err != nil {
		return fmt.Errorf("failed to record message: %w", err)
	}
	return nil
}

func (l *BoltLedger) LoadSymbols(_ context.Context) ([]string, error) {
	var out []string
	err := l.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(symbolsBucket).ForEach(func(k, _ []byte) error {
			out = append(out, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load symbols: %w", err)
	}
	return out, nil
}

func (l *BoltLedger) SaveSymbol(_ context.Context, symbol string) error {
	err := l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(symbolsBucket).Put([]byte(symbol), []byte{})
	})
	if err != nil {
		return fmt.Errorf("failed to save symbol: %w", err)
	}
	return nil
}

func getSignal(b *bolt.Bucket, id []byte) (*domain.SignalRecord, error) {
	data := b.Get(id)
	if len(data) == 0 {
		return nil, nil
	}
	var rec domain.SignalRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func putSignal(b *bolt.Bucket, rec *domain.SignalRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return b.Put([]byte(rec.ID), data)
}

func seqKey(seq uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return buf
}
