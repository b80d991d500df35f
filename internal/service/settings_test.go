package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"socialcredit-api/internal/model"
	"socialcredit-api/internal/repository"
)

func TestSettingsReadThroughAndInvalidate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	s, err := env.settings.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if *s != (model.Settings{}) {
		t.Errorf("fresh settings = %+v, want zero", s)
	}

	// A write that bypasses the service is hidden by the cache.
	if err := env.store.SetSetting(ctx, model.SettingTaskChannel, 11); err != nil {
		t.Fatal(err)
	}
	s, _ = env.settings.Get(ctx)
	if s.TaskChannelID != 0 {
		t.Errorf("TaskChannelID = %d, want cached 0", s.TaskChannelID)
	}

	// Writes through the service take effect immediately.
	if err := env.settings.Set(ctx, model.SettingJobAdminChannel, 22); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	s, _ = env.settings.Get(ctx)
	if s.TaskChannelID != 11 || s.JobAdminChannelID != 22 {
		t.Errorf("settings = %+v, want task 11 and job admin 22", s)
	}
	if s.AdminChannelFor(model.KindJob) != 22 || s.ChannelFor(model.KindTask) != 11 {
		t.Errorf("channel routing = %d, %d", s.AdminChannelFor(model.KindJob), s.ChannelFor(model.KindTask))
	}
}

func TestSettingsUpdateRejectsUnknownField(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	err := env.settings.Update(ctx, map[model.SettingsField]int64{
		model.SettingCategory: 5,
		"welcome_channel":     6,
	})
	assertErr(t, err, model.ErrUnknownSetting)

	s, _ := env.settings.Get(ctx)
	if s.CategoryID != 0 {
		t.Errorf("CategoryID = %d, want nothing written", s.CategoryID)
	}
}

func TestSettingsWithoutCache(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := NewSettingsService(env.store, nil, 0)

	if err := svc.Set(ctx, model.SettingCategory, 9); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	s, err := svc.Get(ctx)
	if err != nil || s.CategoryID != 9 {
		t.Errorf("Get() = %+v, %v", s, err)
	}
}

// pausingSettingsRepo holds the first GetSettings call after its read
// until release is closed.
type pausingSettingsRepo struct {
	repository.SettingsRepository
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (r *pausingSettingsRepo) GetSettings(ctx context.Context) (*model.Settings, error) {
	settings, err := r.SettingsRepository.GetSettings(ctx)
	r.once.Do(func() {
		close(r.read)
		<-r.release
	})
	return settings, err
}

func TestSettingsWriteDuringLoadIsNotMasked(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	repo := &pausingSettingsRepo{
		SettingsRepository: env.store,
		read:               make(chan struct{}),
		release:            make(chan struct{}),
	}
	svc := NewSettingsService(repo, env.cache, 5*time.Minute)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Get(ctx)
		done <- err
	}()

	<-repo.read
	if err := svc.Set(ctx, model.SettingCategory, 42); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	close(repo.release)
	if err := <-done; err != nil {
		t.Fatalf("in-flight Get() error: %v", err)
	}

	s, err := svc.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if s.CategoryID != 42 {
		t.Errorf("CategoryID after Set(42) = %d, want 42", s.CategoryID)
	}
}

func TestSettingsIgnoresRecordOfOlderGeneration(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	if _, err := env.settings.Get(ctx); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	stale, err := env.cache.Get(ctx, settingsCacheKey)
	if err != nil {
		t.Fatalf("cached record missing: %v", err)
	}

	if err := env.settings.Set(ctx, model.SettingTaskChannel, 7); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	// Put the pre-write record back as a slow replica would.
	env.cache.Set(ctx, settingsCacheKey, stale, time.Minute)

	s, err := env.settings.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if s.TaskChannelID != 7 {
		t.Errorf("TaskChannelID = %d, want 7", s.TaskChannelID)
	}
}
