// ABOUTME: Unified Storage layer that wraps the document, chunk and thread stores
// ABOUTME: One SQLite database backs ingestion, retrieval and conversation memory
package sqlite

import (
	"context"
	"fmt"
)

// Storage bundles every SQLite-backed store over a single connection
type Storage struct {
	*DocumentStore
	*ChunkStore
	*ThreadStore
	db *DB
}

// NewStorage initializes storage at the default XDG path
func NewStorage() (*Storage, error) {
	return NewStorageWithPath(DefaultDBPath())
}

// NewStorageWithPath initializes storage with a custom database path
func NewStorageWithPath(dbPath string) (*Storage, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newStorage(db), nil
}

// NewStorageInMemory creates an in-memory storage (for testing)
func NewStorageInMemory() (*Storage, error) {
	db, err := OpenInMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	return newStorage(db), nil
}

func newStorage(db *DB) *Storage {
	return &Storage{
		DocumentStore: NewDocumentStore(db),
		ChunkStore:    NewChunkStore(db),
		ThreadStore:   NewThreadStore(db),
		db:            db,
	}
}

// DB exposes the underlying database
func (s *Storage) DB() *DB {
	return s.db
}

// Ping checks the database is reachable
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
