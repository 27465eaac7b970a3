// Package badgerkv backs the tracker's durable slots with a local
// BadgerDB instance so queued records survive process restarts.
package badgerkv

import (
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Store implements storage.Storage on top of BadgerDB.
type Store struct {
	db  *badger.DB
	log *zap.Logger
}

// Open opens (or creates) a Badger database at path.
func Open(path string, log *zap.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	// Badger's own logger is chatty; tracker logging goes through zap.
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger storage at %s: %w", path, err)
	}

	log.Info("Durable storage opened", zap.String("path", path))

	return &Store{db: db, log: log}, nil
}

func (s *Store) Get(key string) ([]byte, bool, error) {
	var value []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read key %s: %w", key, err)
	}

	return value, true, nil
}

func (s *Store) Set(key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	s.log.Info("Closing durable storage")
	return s.db.Close()
}
