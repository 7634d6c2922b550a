package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/careloop/retrieval-engine/internal/core/domain"
)

// BadgerTier is the durable tier: survives restarts and redeploys,
// longest TTL, slowest of the three.
type BadgerTier struct {
	db *badger.DB
}

func NewBadgerTier(path string, logger *slog.Logger) (*BadgerTier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := badger.DefaultOptions(path)
	opts.Logger = &badgerLogger{logger: logger}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return &BadgerTier{db: db}, nil
}

func (t *BadgerTier) Name() string { return "badger" }

func (t *BadgerTier) Get(_ context.Context, key string) (*domain.CacheEntry, error) {
	var entry *domain.CacheEntry
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var decoded domain.CacheEntry
			if err := json.Unmarshal(val, &decoded); err != nil {
				return fmt.Errorf("decode cache entry: %w", err)
			}
			entry = &decoded
			return nil
		})
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrCacheUnavailable, "badger get", err)
	}
	return entry, nil
}

func (t *BadgerTier) Set(_ context.Context, key string, entry domain.CacheEntry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	err = t.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), data)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return domain.WrapError(domain.ErrCacheUnavailable, "badger set", err)
	}
	return nil
}

func (t *BadgerTier) Close() error {
	return t.db.Close()
}

// badgerLogger adapts slog to the badger.Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, args ...any)   { l.logger.Error(fmt.Sprintf(msg, args...)) }
func (l *badgerLogger) Warningf(msg string, args ...any) { l.logger.Warn(fmt.Sprintf(msg, args...)) }
func (l *badgerLogger) Infof(msg string, args ...any)    { l.logger.Debug(fmt.Sprintf(msg, args...)) }
func (l *badgerLogger) Debugf(msg string, args ...any)   { l.logger.Debug(fmt.Sprintf(msg, args...)) }
