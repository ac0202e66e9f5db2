// Package sourcestore persists source file bytes keyed by a FileID, backed
// by BadgerDB. It deliberately stores nothing about query results: every
// process still builds a fresh queryrt.Scheduler with an empty cache and
// re-runs every query, this package only saves re-reading the same file
// bytes off disk redundantly within one process.
package sourcestore

import (
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// FileID identifies one source file. Query kinds in the frontend package
// use this as their primary key.
type FileID uint64

// Store wraps a BadgerDB instance scoped to source bytes only.
type Store struct {
	db *badger.DB
}

// Open creates or reopens a Store rooted at path. Passing an empty path
// opens an in-memory store, useful for tests and the CLI's default mode.
func Open(path string) (*Store, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("sourcestore: open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(id FileID) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return b[:]
}

// Put stores src as the contents of id, overwriting any previous value.
func (s *Store) Put(id FileID, src []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(id), src)
	})
}

// Get returns the bytes stored under id.
func (s *Store) Get(id FileID) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("sourcestore: get %d: %w", id, err)
	}
	return out, nil
}
