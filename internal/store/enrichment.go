package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/shelfmark/shelfmark-server/internal/domain"
)

const (
	enrichClassifyPrefix = "enrich:classify:"
	enrichDescribePrefix = "enrich:describe:"
)

// CachedClassification wraps a classification result with cache info.
type CachedClassification struct {
	Classification *domain.Classification `json:"classification"`
	Model          string                 `json:"model,omitempty"`
	FetchedAt      time.Time              `json:"fetched_at"`
}

// CachedDescription wraps a generated description with cache info.
type CachedDescription struct {
	Description string    `json:"description"`
	Model       string    `json:"model,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// GetCachedClassification retrieves a cached classification by source
// identifier. Returns nil, nil if not found or expired.
func (c *Cache) GetCachedClassification(ctx context.Context, sourceID string) (*CachedClassification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := fmt.Appendf(nil, "%s%s", enrichClassifyPrefix, sourceID)

	var cached CachedClassification
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &cached)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached classification: %w", err)
	}

	// Check if expired
	if time.Since(cached.FetchedAt) > c.ttl {
		return nil, nil // Treat as cache miss
	}

	return &cached, nil
}

// SetCachedClassification stores a classification result. Only successful
// classifications belong here; failures must stay uncached so a later run
// retries them.
func (c *Cache) SetCachedClassification(ctx context.Context, sourceID string, classification *domain.Classification, model string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cached := CachedClassification{
		Classification: classification,
		Model:          model,
		FetchedAt:      time.Now(),
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal cached classification: %w", err)
	}

	key := fmt.Appendf(nil, "%s%s", enrichClassifyPrefix, sourceID)

	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// DeleteCachedClassification removes a cached classification. Idempotent.
func (c *Cache) DeleteCachedClassification(ctx context.Context, sourceID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := fmt.Appendf(nil, "%s%s", enrichClassifyPrefix, sourceID)

	return c.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// GetCachedDescription retrieves a cached description by source identifier.
// Returns nil, nil if not found or expired.
func (c *Cache) GetCachedDescription(ctx context.Context, sourceID string) (*CachedDescription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := fmt.Appendf(nil, "%s%s", enrichDescribePrefix, sourceID)

	var cached CachedDescription
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &cached)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached description: %w", err)
	}

	// Check if expired
	if time.Since(cached.FetchedAt) > c.ttl {
		return nil, nil
	}

	return &cached, nil
}

// SetCachedDescription stores a generated description.
func (c *Cache) SetCachedDescription(ctx context.Context, sourceID, description, model string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cached := CachedDescription{
		Description: description,
		Model:       model,
		FetchedAt:   time.Now(),
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal cached description: %w", err)
	}

	key := fmt.Appendf(nil, "%s%s", enrichDescribePrefix, sourceID)

	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// DeleteCachedDescription removes a cached description. Idempotent.
func (c *Cache) DeleteCachedDescription(ctx context.Context, sourceID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := fmt.Appendf(nil, "%s%s", enrichDescribePrefix, sourceID)

	return c.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}
