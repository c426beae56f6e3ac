// Package kvstore is a small JSON key/value cache on top of BadgerDB, used to
// persist slow external lookups (observer elevation, remote name resolution)
// across runs.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Config selects where the store lives. An empty Path opens an in-memory store.
type Config struct {
	Path       string
	GCInterval time.Duration
}

// Store wraps a BadgerDB handle.
type Store struct {
	db         *badger.DB
	inMemory   bool
	gcInterval time.Duration
	logger     *slog.Logger
}

// Open opens (or creates) the store described by cfg.
func Open(cfg Config, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path).WithLogger(nil)
	inMemory := cfg.Path == ""
	if inMemory {
		opts = opts.WithInMemory(true)
	} else {
		opts.ValueLogFileSize = 16 << 20
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store %q: %w", cfg.Path, err)
	}

	gc := cfg.GCInterval
	if gc <= 0 {
		gc = 10 * time.Minute
	}

	logger.Info("kv store opened", "path", cfg.Path, "in_memory", inMemory)
	return &Store{db: db, inMemory: inMemory, gcInterval: gc, logger: logger}, nil
}

// Get decodes the value stored under key into v. It reports false when the
// key is absent or expired.
func (s *Store) Get(key string, v any) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %q: %w", key, err)
	}
	return true, nil
}

// Put stores v under key. A positive ttl makes the entry expire.
func (s *Store) Put(key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", key, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), data)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// Count returns the number of live keys with the given prefix.
func (s *Store) Count(prefix string) (int, error) {
	var n int
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Serve runs value-log garbage collection until ctx is cancelled. It
// satisfies suture.Service.
func (s *Store) Serve(ctx context.Context) error {
	if s.inMemory {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for {
				err := s.db.RunValueLogGC(0.5)
				if err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						s.logger.Warn("kv store gc failed", "error", err)
					}
					break
				}
			}
		}
	}
}

// Close flushes and closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}
