// Package store provides shared persistence error types and the Badger-backed
// enrichment cache. The relational catalog lives in the sqlite subpackage.
package store

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// DefaultEnrichmentTTL bounds how long cached AI responses are reused.
const DefaultEnrichmentTTL = 30 * 24 * time.Hour

// Cache is a TTL cache over AI enrichment responses. Entries are keyed by
// source identifier, so a re-ingested candidate never pays for the same
// model call twice within the TTL.
type Cache struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache opens the cache at path. A non-positive ttl falls back to
// DefaultEnrichmentTTL.
func NewCache(path string, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultEnrichmentTTL
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger != nil {
		logger.Info("enrichment cache opened", "path", path, "ttl", ttl)
	}

	return &Cache{
		db:     db,
		ttl:    ttl,
		logger: logger,
	}, nil
}

// Close gracefully closes the cache database.
func (c *Cache) Close() error {
	if c.logger != nil {
		c.logger.Info("closing enrichment cache")
	}
	return c.db.Close()
}
