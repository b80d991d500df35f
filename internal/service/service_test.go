package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"socialcredit-api/internal/cache"
	"socialcredit-api/internal/model"
	"socialcredit-api/internal/repository"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeVerifier struct {
	mu       sync.Mutex
	profiles map[string]model.Profile
	err      error
	calls    int
}

func newFakeVerifier() *fakeVerifier {
	return &fakeVerifier{profiles: make(map[string]model.Profile)}
}

func (f *fakeVerifier) add(username, uuid string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[strings.ToLower(username)] = model.Profile{Exists: true, UUID: uuid, Username: username}
}

func (f *fakeVerifier) Lookup(ctx context.Context, username string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return &model.Profile{Error: f.err.Error()}, f.err
	}
	p, ok := f.profiles[strings.ToLower(username)]
	if !ok {
		return &model.Profile{Exists: false}, nil
	}
	return &p, nil
}

func (f *fakeVerifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (r *recordingNotifier) Notify(ctx context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}

type recordingAudit struct {
	mu     sync.Mutex
	events []model.AuditEvent
}

func (r *recordingAudit) InsertAuditEvent(ctx context.Context, event *model.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

func (r *recordingAudit) GetAuditEvents(ctx context.Context, limit, offset int) ([]model.AuditEvent, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.AuditEvent(nil), r.events...), int64(len(r.events)), nil
}

func (r *recordingAudit) Close() error { return nil }

func (r *recordingAudit) actions() []model.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.AuditAction, len(r.events))
	for i, e := range r.events {
		out[i] = e.Action
	}
	return out
}

type testEnv struct {
	store    *repository.SQLStore
	clock    *testClock
	verifier *fakeVerifier
	notifier *recordingNotifier
	audit    *recordingAudit
	cache    *cache.MemoryCache
	settings *SettingsService
	ledger   *LedgerService
	work     map[model.WorkKind]*WorkRegistry
	sessions *SessionManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := repository.NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	env := &testEnv{
		store:    store,
		clock:    &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		verifier: newFakeVerifier(),
		notifier: &recordingNotifier{},
		audit:    &recordingAudit{},
	}
	env.cache = cache.NewMemoryCacheWithClock(env.clock.Now)
	env.settings = NewSettingsService(store, env.cache, time.Minute)

	env.ledger = NewLedgerService(store, env.verifier, env.settings)
	env.ledger.SetNotifier(env.notifier)
	env.ledger.SetAudit(env.audit)
	env.ledger.SetClock(env.clock.Now)

	env.work = NewWorkRegistries(store, env.ledger)
	for _, r := range env.work {
		r.SetClock(env.clock.Now)
	}

	env.sessions = NewSessionManager(env.cache, env.ledger, 10*time.Minute)
	env.sessions.SetClock(env.clock.Now)
	return env
}

// link registers a player through the verifier.
func (e *testEnv) link(t *testing.T, discordID int64, minecraft string) *model.Account {
	t.Helper()
	uuid := fmt.Sprintf("%032x", discordID)
	e.verifier.add(minecraft, uuid)

	acc, err := e.ledger.Link(context.Background(), LinkRequest{
		DiscordID:         discordID,
		DiscordUsername:   "discord_" + strings.ToLower(minecraft),
		MinecraftUsername: minecraft,
		MinecraftUUID:     uuid,
	})
	if err != nil {
		t.Fatalf("Link(%d, %s) error: %v", discordID, minecraft, err)
	}
	return acc
}

func (e *testEnv) bind(t *testing.T, discordID, channelID int64) {
	t.Helper()
	if _, err := e.ledger.BindLedger(context.Background(), discordID, channelID); err != nil {
		t.Fatalf("BindLedger(%d) error: %v", discordID, err)
	}
}

func (e *testEnv) fund(t *testing.T, discordID, amount int64) {
	t.Helper()
	if _, err := e.store.SetBalance(context.Background(), discordID, amount); err != nil {
		t.Fatalf("SetBalance(%d) error: %v", discordID, err)
	}
}

func (e *testEnv) balance(t *testing.T, discordID int64) int64 {
	t.Helper()
	acc, err := e.ledger.GetAccount(context.Background(), discordID)
	if err != nil {
		t.Fatalf("GetAccount(%d) error: %v", discordID, err)
	}
	return acc.Balance
}

func assertErr(t *testing.T, got, want error) {
	t.Helper()
	if want == nil {
		if got != nil {
			t.Fatalf("unexpected error: %v", got)
		}
		return
	}
	if !errors.Is(got, want) {
		t.Fatalf("error = %v, want %v", got, want)
	}
}
