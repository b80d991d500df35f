package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"socialcredit-api/internal/cache"
	"socialcredit-api/internal/model"
	"socialcredit-api/internal/repository"
	"socialcredit-api/pkg/uid"
)

const (
	settingsCacheKey      = "settings"
	settingsGenerationKey = "settings:generation"
)

// cachedSettings is the cached record tagged with the generation that was
// current before it was read from the repository.
type cachedSettings struct {
	Generation string         `json:"generation"`
	Settings   model.Settings `json:"settings"`
}

// SettingsService serves the singleton configuration record through a
// cache. Every write moves the generation key, and cached records of an
// older generation are never served.
type SettingsService struct {
	repo  repository.SettingsRepository
	cache cache.Cache
	ttl   time.Duration
}

// NewSettingsService creates a settings service. A nil cache reads the
// repository on every call.
func NewSettingsService(repo repository.SettingsRepository, c cache.Cache, ttl time.Duration) *SettingsService {
	return &SettingsService{repo: repo, cache: c, ttl: ttl}
}

// Get returns the current settings.
func (s *SettingsService) Get(ctx context.Context) (*model.Settings, error) {
	if s.cache == nil {
		return s.repo.GetSettings(ctx)
	}

	gen, err := s.generation(ctx)
	if err != nil {
		log.Printf("[SettingsService] Cache unavailable, reading repository: %v", err)
		return s.repo.GetSettings(ctx)
	}

	if data, err := s.cache.Get(ctx, settingsCacheKey); err == nil {
		var entry cachedSettings
		if json.Unmarshal(data, &entry) == nil && entry.Generation == gen {
			return &entry.Settings, nil
		}
	}

	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	// A write that landed during the read moved the generation; the record
	// may predate it and is not cached.
	if current, err := s.generation(ctx); err == nil && current == gen {
		s.store(ctx, gen, settings)
	}
	return settings, nil
}

// Set writes a single field.
func (s *SettingsService) Set(ctx context.Context, field model.SettingsField, value int64) error {
	return s.Update(ctx, map[model.SettingsField]int64{field: value})
}

// Update writes several fields in one transaction. Unknown fields fail the
// whole update before anything is written.
func (s *SettingsService) Update(ctx context.Context, fields map[model.SettingsField]int64) error {
	var check model.Settings
	for field, value := range fields {
		if !check.Apply(field, value) {
			return fmt.Errorf("%w: %s", model.ErrUnknownSetting, field)
		}
	}

	if err := s.repo.SetSettings(ctx, fields); err != nil {
		return err
	}
	for field, value := range fields {
		log.Printf("[SettingsService] %s = %d", field, value)
	}

	s.invalidate(ctx)
	return nil
}

func (s *SettingsService) generation(ctx context.Context) (string, error) {
	data, err := s.cache.Get(ctx, settingsGenerationKey)
	if errors.Is(err, cache.ErrCacheMiss) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *SettingsService) store(ctx context.Context, gen string, settings *model.Settings) {
	data, err := json.Marshal(cachedSettings{Generation: gen, Settings: *settings})
	if err == nil {
		err = s.cache.Set(ctx, settingsCacheKey, data, s.ttl)
	}
	if err != nil {
		log.Printf("[SettingsService] Failed to cache settings: %v", err)
	}
}

func (s *SettingsService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, settingsGenerationKey, []byte(uid.New()), 0); err != nil {
		log.Printf("[SettingsService] Failed to advance settings generation: %v", err)
	}
	if err := s.cache.Delete(ctx, settingsCacheKey); err != nil {
		log.Printf("[SettingsService] Failed to invalidate cache: %v", err)
	}
}
