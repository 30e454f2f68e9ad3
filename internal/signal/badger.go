package signal

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

const (
	keyPrefix  = "sig:"
	maxRetries = 10
)

// Badger persists counters in a BadgerDB so they survive restarts and never
// go backwards for polling clients.
type Badger struct {
	db     *badger.DB
	logger *slog.Logger
	mu     sync.Mutex // serializes in-process increments; retries cover other writers
}

// BadgerConfig selects where counters live. An empty Path opens an in-memory DB.
type BadgerConfig struct {
	Path   string
	Logger *slog.Logger
}

// NewBadger opens (or creates) the counter database.
func NewBadger(cfg BadgerConfig) (*Badger, error) {
	opts := badger.DefaultOptions(cfg.Path).WithLoggingLevel(badger.WARNING)
	if cfg.Path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger signal store: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Badger{db: db, logger: logger}, nil
}

func (b *Badger) Increment(ctx context.Context, key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var err error
	for range maxRetries {
		if ctx.Err() != nil {
			err = ctx.Err()
			break
		}
		err = b.db.Update(func(txn *badger.Txn) error {
			current, err := readCounter(txn, key)
			if err != nil {
				return err
			}
			return txn.Set(counterKey(key), encodeCounter(current+1))
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		b.logger.Warn("change signal increment failed", "key", key, "error", err)
	}
}

func (b *Badger) Value(_ context.Context, key string) (uint64, error) {
	var value uint64
	err := b.db.View(func(txn *badger.Txn) error {
		v, err := readCounter(txn, key)
		value = v
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("read change signal %s: %w", key, err)
	}
	return value, nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}

func counterKey(key string) []byte {
	return []byte(keyPrefix + key)
}

func readCounter(txn *badger.Txn, key string) (uint64, error) {
	item, err := txn.Get(counterKey(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var value uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("corrupt counter %s: %d bytes", key, len(val))
		}
		value = binary.BigEndian.Uint64(val)
		return nil
	})
	return value, err
}

func encodeCounter(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}
