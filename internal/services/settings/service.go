// Package settings provides the cached settings snapshot used by mail sync
// and the keywords API.
package settings

import (
	"context"
	"errors"

	"github.com/Gobusters/ectologger"

	settingsrepo "github.com/Ramsey-B/clover/internal/repositories/settings"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/redis"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const cacheKey = "settings"

// Service reads settings through a short-lived cache so every synced message
// does not hit the database. Writes invalidate the cache.
type Service struct {
	repo   settingsrepo.SettingsRepository
	cache  *redis.Cache
	logger ectologger.Logger
}

// NewService creates a new settings service. cache may be nil, disabling
// caching.
func NewService(repo settingsrepo.SettingsRepository, cache *redis.Cache, logger ectologger.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// Get returns the current settings snapshot, from cache when fresh
func (s *Service) Get(ctx context.Context) (*models.Settings, error) {
	ctx, span := tracing.StartSpan(ctx, "SettingsService.Get")
	defer span.End()

	if s.cache != nil {
		var cached models.Settings
		err := s.cache.GetJSON(ctx, cacheKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, redis.ErrCacheMiss) {
			// cache trouble degrades to a database read
			s.logger.WithContext(ctx).WithError(err).Error("failed to read settings cache")
		}
	}

	loaded, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey, loaded); err != nil {
			s.logger.WithContext(ctx).WithError(err).Error("failed to write settings cache")
		}
	}

	return loaded, nil
}

// UpdateKeywords replaces both keyword lists and invalidates the cache
func (s *Service) UpdateKeywords(ctx context.Context, approval, rejection []string) error {
	ctx, span := tracing.StartSpan(ctx, "SettingsService.UpdateKeywords")
	defer span.End()

	if err := s.repo.UpdateKeywords(ctx, approval, rejection); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, cacheKey); err != nil {
			s.logger.WithContext(ctx).WithError(err).Error("failed to invalidate settings cache")
		}
	}

	return nil
}
