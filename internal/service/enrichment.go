package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/errors"
	"github.com/shelfmark/shelfmark-server/internal/gemini"
	"github.com/shelfmark/shelfmark-server/internal/ingest"
	"github.com/shelfmark/shelfmark-server/internal/store"
)

const (
	describeAttempts   = 3
	describeRetryDelay = 500 * time.Millisecond
)

// EnrichmentService answers the pipeline's classification and description
// needs, with a persistent cache in front of the Gemini client so repeat
// encounters with a source record do not re-spend API quota.
type EnrichmentService struct {
	client *gemini.Client
	cache  *store.Cache
	logger *slog.Logger
}

// NewEnrichmentService creates a new enrichment service. A nil cache
// disables caching but not enrichment.
func NewEnrichmentService(client *gemini.Client, cache *store.Cache, logger *slog.Logger) *EnrichmentService {
	return &EnrichmentService{
		client: client,
		cache:  cache,
		logger: logger,
	}
}

var _ ingest.Enricher = (*EnrichmentService)(nil)

// Classify returns genres for a candidate, consulting the cache first.
// Failures are returned to the caller, never cached, so a later run can
// retry the same record.
func (s *EnrichmentService) Classify(ctx context.Context, candidate domain.BookCandidate) (*domain.Classification, error) {
	if s.cache != nil {
		cached, err := s.cache.GetCachedClassification(ctx, candidate.Identifier)
		if err != nil {
			s.logger.Warn("classification cache lookup failed",
				"identifier", candidate.Identifier,
				"error", err,
			)
		} else if cached != nil {
			s.logger.Debug("classification cache hit",
				"identifier", candidate.Identifier,
				"model", cached.Model,
			)
			return cached.Classification, nil
		}
	}

	classification, err := s.client.Classify(ctx, candidate.Title, candidate.Author, candidate.Year, candidate.Description)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetCachedClassification(ctx, candidate.Identifier, classification, s.client.Model()); err != nil {
			s.logger.Warn("failed to cache classification",
				"identifier", candidate.Identifier,
				"error", err,
			)
		}
	}
	return classification, nil
}

// Describe generates a reader-facing description, consulting the cache
// first. Transient failures are retried with a short pause; a disabled or
// unauthorized client fails immediately so the caller can fall back to the
// source description.
func (s *EnrichmentService) Describe(ctx context.Context, candidate domain.BookCandidate) (string, error) {
	if s.cache != nil {
		cached, err := s.cache.GetCachedDescription(ctx, candidate.Identifier)
		if err != nil {
			s.logger.Warn("description cache lookup failed",
				"identifier", candidate.Identifier,
				"error", err,
			)
		} else if cached != nil {
			s.logger.Debug("description cache hit", "identifier", candidate.Identifier)
			return cached.Description, nil
		}
	}

	description, err := s.describeWithRetry(ctx, candidate)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.SetCachedDescription(ctx, candidate.Identifier, description, s.client.Model()); err != nil {
			s.logger.Warn("failed to cache description",
				"identifier", candidate.Identifier,
				"error", err,
			)
		}
	}
	return description, nil
}

func (s *EnrichmentService) describeWithRetry(ctx context.Context, candidate domain.BookCandidate) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= describeAttempts; attempt++ {
		description, err := s.client.Describe(ctx, candidate.Title, candidate.Author, candidate.Year, candidate.Description)
		if err == nil {
			return description, nil
		}
		lastErr = err

		if !retryableDescribeError(err) || attempt == describeAttempts {
			break
		}

		s.logger.Debug("description attempt failed, retrying",
			"identifier", candidate.Identifier,
			"attempt", attempt,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(describeRetryDelay):
		}
	}
	return "", lastErr
}

// retryableDescribeError reports whether another attempt could succeed.
// Configuration problems and rejected prompts fail the same way every time.
func retryableDescribeError(err error) bool {
	return !errors.Is(err, gemini.ErrDisabled) &&
		!errors.Is(err, gemini.ErrUnauthorized) &&
		!errors.Is(err, gemini.ErrBadRequest)
}
