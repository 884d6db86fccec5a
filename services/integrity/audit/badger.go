// Copyright (C) 2026 Kodiak AI (kbrennan@kodiakai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/KodiakAI/KodiakGuard/services/integrity"
)

// keyPrefix namespaces audit records inside the database.
const keyPrefix = "audit/"

// Config holds configuration for a BadgerStore.
type Config struct {
	// Path is the directory for database files.
	// Required unless InMemory is true.
	Path string `yaml:"path"`

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool `yaml:"in_memory"`

	// SyncWrites enables synchronous writes for durability.
	// Default: true.
	SyncWrites bool `yaml:"sync_writes"`

	// Logger receives Badger's internal log output. If nil, Badger's
	// logging is disabled.
	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns production defaults for a persistent store.
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		SyncWrites: true,
	}
}

// InMemoryConfig returns a configuration for testing. Data is lost when
// the store closes.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerStore is a Store backed by embedded BadgerDB. Records are stored
// as JSON under keys that sort lexicographically in append order, so List
// is a single prefix scan.
//
// Thread Safety: Safe for concurrent use.
type BadgerStore struct {
	db *badger.DB

	// mu serializes key assignment so per-sequence ordinals never collide
	// under concurrent appends.
	mu       sync.Mutex
	ordinals map[string]uint64
}

// OpenBadgerStore opens a store with the given configuration, creating
// the directory for persistent stores if it does not exist.
//
// Outputs:
//   - *BadgerStore: The opened store. Caller must call Close when done.
//   - error: Non-nil if the path is missing or the database cannot open.
func OpenBadgerStore(cfg Config) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent audit store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create audit store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open audit store: %w", err)
	}

	store := &BadgerStore{db: db, ordinals: make(map[string]uint64)}
	if err := store.loadOrdinals(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// loadOrdinals rebuilds the per-sequence append counters from existing
// keys so ordering continues correctly after a reopen.
func (s *BadgerStore) loadOrdinals() error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			seqID, ordinal, err := parseKey(it.Item().Key())
			if err != nil {
				return err
			}
			if ordinal >= s.ordinals[seqID] {
				s.ordinals[seqID] = ordinal + 1
			}
		}
		return nil
	})
}

// recordKey builds "audit/<sequence>/<ordinal>" with a fixed-width
// ordinal so lexicographic key order matches append order.
func recordKey(sequenceID string, ordinal uint64) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d", keyPrefix, sequenceID, ordinal))
}

func parseKey(key []byte) (string, uint64, error) {
	var seqID string
	var ordinal uint64
	if _, err := fmt.Sscanf(string(key), keyPrefix+"%s", &seqID); err != nil {
		return "", 0, fmt.Errorf("malformed audit key %q: %w", key, err)
	}
	// seqID now holds "<sequence>/<ordinal>"; split on the last slash.
	for i := len(seqID) - 1; i >= 0; i-- {
		if seqID[i] == '/' {
			if _, err := fmt.Sscanf(seqID[i+1:], "%d", &ordinal); err != nil {
				return "", 0, fmt.Errorf("malformed audit key %q: %w", key, err)
			}
			return seqID[:i], ordinal, nil
		}
	}
	return "", 0, fmt.Errorf("malformed audit key %q: missing ordinal", key)
}

// Append implements Store.
func (s *BadgerStore) Append(ctx context.Context, record integrity.InterventionRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("audit append cancelled: %w", err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal intervention record: %w", err)
	}

	s.mu.Lock()
	ordinal := s.ordinals[record.SequenceID]
	s.ordinals[record.SequenceID] = ordinal + 1
	s.mu.Unlock()

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(record.SequenceID, ordinal), data)
	})
	if err != nil {
		return fmt.Errorf("append intervention record: %w", err)
	}
	return nil
}

// List implements Store.
func (s *BadgerStore) List(ctx context.Context, sequenceID string) ([]integrity.InterventionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("audit list cancelled: %w", err)
	}

	records := []integrity.InterventionRecord{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(keyPrefix + sequenceID + "/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var record integrity.InterventionRecord
				if err := json.Unmarshal(val, &record); err != nil {
					return fmt.Errorf("unmarshal intervention record: %w", err)
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Count implements Store.
func (s *BadgerStore) Count(ctx context.Context, sequenceID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("audit count cancelled: %w", err)
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix + sequenceID + "/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
