package blob

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"investtrack/internal/logger"
)

// BadgerStore keeps payloads in an embedded badger database. An empty data
// directory runs badger fully in memory.
type BadgerStore struct {
	db      *badger.DB
	dataDir string
	log     *zap.SugaredLogger
}

// BadgerOption configures a BadgerStore.
type BadgerOption func(*BadgerStore)

// WithDataDir sets the on-disk location; empty means in-memory.
func WithDataDir(dir string) BadgerOption {
	return func(s *BadgerStore) { s.dataDir = dir }
}

// NewBadgerStore opens the badger database.
func NewBadgerStore(opts ...BadgerOption) (*BadgerStore, error) {
	s := &BadgerStore{log: logger.Named("blob.badger")}
	for _, opt := range opts {
		opt(s)
	}

	var bopts badger.Options
	if s.dataDir == "" {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(s.dataDir, 0o750); err != nil {
			return nil, fmt.Errorf("blob: create data dir: %w", err)
		}
		bopts = badger.DefaultOptions(s.dataDir)
	}
	bopts = bopts.
		WithLogger(badgerLogger{s.log}).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("blob: open badger: %w", err)
	}
	s.db = db
	return s, nil
}

func (s *BadgerStore) Put(_ context.Context, key string, data []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *BadgerStore) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return out, err
}

func (s *BadgerStore) Delete(_ context.Context, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger adapts zap to badger.Logger.
type badgerLogger struct {
	log *zap.SugaredLogger
}

func (l badgerLogger) Errorf(f string, v ...interface{})   { l.log.Errorf(f, v...) }
func (l badgerLogger) Warningf(f string, v ...interface{}) { l.log.Warnf(f, v...) }
func (l badgerLogger) Infof(f string, v ...interface{})    { l.log.Infof(f, v...) }
func (l badgerLogger) Debugf(f string, v ...interface{})   { l.log.Debugf(f, v...) }
