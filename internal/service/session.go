package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"socialcredit-api/internal/cache"
	"socialcredit-api/internal/model"
)

// DefaultSessionTTL bounds how long a manual entry session waits for a reply.
const DefaultSessionTTL = 10 * time.Minute

const sessionKeyPrefix = "session:"

// BalanceSetter overwrites balances on behalf of an admin.
type BalanceSetter interface {
	SetBalance(ctx context.Context, actorID, discordID, amount int64) (*BalanceChange, error)
}

// ReplyOutcome describes how a session reply was handled.
type ReplyOutcome string

const (
	OutcomeUpdated   ReplyOutcome = "updated"
	OutcomeCancelled ReplyOutcome = "cancelled"
)

// ReplyResult is returned for replies that consumed a session.
type ReplyResult struct {
	Outcome ReplyOutcome   `json:"outcome"`
	Change  *BalanceChange `json:"change,omitempty"`
}

// SessionManager owns manual balance entry sessions. A session waits for
// one "<DiscordID> <Amount>" message from its admin in its reply channel.
type SessionManager struct {
	cache  cache.Cache
	ttl    time.Duration
	ledger BalanceSetter
	now    func() time.Time
}

// NewSessionManager creates a session manager storing sessions in c.
func NewSessionManager(c cache.Cache, ledger BalanceSetter, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{cache: c, ttl: ttl, ledger: ledger, now: time.Now}
}

// SetClock overrides the time source.
func (m *SessionManager) SetClock(now func() time.Time) {
	m.now = now
}

func sessionKey(adminID int64) string {
	return sessionKeyPrefix + strconv.FormatInt(adminID, 10)
}

// Start opens a session for adminID expecting a reply in channelID,
// replacing any previous one.
func (m *SessionManager) Start(ctx context.Context, adminID, channelID int64) (*model.ManualEntrySession, error) {
	now := m.now()
	session := &model.ManualEntrySession{
		AdminID:        adminID,
		Awaiting:       true,
		ReplyChannelID: channelID,
		CreatedAt:      now,
		ExpiresAt:      now.Add(m.ttl),
	}

	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}

	if err := m.cache.Set(ctx, sessionKey(adminID), data, m.ttl); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	SessionEvents.WithLabelValues("started").Inc()

	log.Printf("[SessionManager] Admin %d awaiting entry in channel %d until %s",
		adminID, channelID, session.ExpiresAt.Format(time.RFC3339))
	return session, nil
}

// Get returns the active session of adminID or model.ErrNoSession.
func (m *SessionManager) Get(ctx context.Context, adminID int64) (*model.ManualEntrySession, error) {
	data, err := m.cache.Get(ctx, sessionKey(adminID))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, model.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session model.ManualEntrySession
	if err := json.Unmarshal(data, &session); err != nil {
		m.clear(ctx, adminID)
		return nil, model.ErrNoSession
	}
	if !session.Awaiting || session.Expired(m.now()) {
		m.clear(ctx, adminID)
		SessionEvents.WithLabelValues("expired").Inc()
		return nil, model.ErrNoSession
	}
	return &session, nil
}

// Reply feeds a message from adminID in channelID to its session.
// Messages outside an active session, or in another channel, return
// model.ErrNoSession and leave any session untouched. Every other
// outcome closes the session. The session is consumed before it is
// applied, so concurrent replies across replicas apply at most once.
func (m *SessionManager) Reply(ctx context.Context, adminID, channelID int64, content string) (*ReplyResult, error) {
	session, err := m.Get(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if session.ReplyChannelID != channelID {
		return nil, model.ErrNoSession
	}

	session, err = m.take(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if session.ReplyChannelID != channelID {
		// Replaced by a Start between the two reads.
		m.restore(ctx, session)
		return nil, model.ErrNoSession
	}

	content = strings.TrimSpace(content)
	if strings.EqualFold(content, "cancel") {
		log.Printf("[SessionManager] Admin %d cancelled manual entry", adminID)
		SessionEvents.WithLabelValues("cancelled").Inc()
		return &ReplyResult{Outcome: OutcomeCancelled}, nil
	}

	targetID, amount, err := parseEntry(content)
	if err != nil {
		SessionEvents.WithLabelValues("invalid").Inc()
		return nil, err
	}

	change, err := m.ledger.SetBalance(ctx, adminID, targetID, amount)
	if err != nil {
		SessionEvents.WithLabelValues("failed").Inc()
		return nil, err
	}
	SessionEvents.WithLabelValues("updated").Inc()
	return &ReplyResult{Outcome: OutcomeUpdated, Change: change}, nil
}

// Cancel closes the session of adminID. It returns model.ErrNoSession if
// none was open.
func (m *SessionManager) Cancel(ctx context.Context, adminID int64) error {
	if _, err := m.take(ctx, adminID); err != nil {
		return err
	}
	SessionEvents.WithLabelValues("cancelled").Inc()
	return nil
}

// take removes the session of adminID and returns it if it was active.
func (m *SessionManager) take(ctx context.Context, adminID int64) (*model.ManualEntrySession, error) {
	data, err := m.cache.Take(ctx, sessionKey(adminID))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, model.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume session: %w", err)
	}

	var session model.ManualEntrySession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, model.ErrNoSession
	}
	if !session.Awaiting || session.Expired(m.now()) {
		SessionEvents.WithLabelValues("expired").Inc()
		return nil, model.ErrNoSession
	}
	return &session, nil
}

// restore puts back a session taken by mistake for its remaining lifetime.
func (m *SessionManager) restore(ctx context.Context, session *model.ManualEntrySession) {
	remaining := session.ExpiresAt.Sub(m.now())
	if remaining <= 0 {
		return
	}
	data, err := json.Marshal(session)
	if err == nil {
		err = m.cache.Set(ctx, sessionKey(session.AdminID), data, remaining)
	}
	if err != nil {
		log.Printf("[SessionManager] Failed to restore session of %d: %v", session.AdminID, err)
	}
}

func (m *SessionManager) clear(ctx context.Context, adminID int64) {
	if err := m.cache.Delete(ctx, sessionKey(adminID)); err != nil {
		log.Printf("[SessionManager] Failed to clear session of %d: %v", adminID, err)
	}
}

// parseEntry accepts exactly two digit-only tokens separated by one space.
func parseEntry(content string) (int64, int64, error) {
	parts := strings.Split(content, " ")
	if len(parts) != 2 || !isDigits(parts[0]) || !isDigits(parts[1]) {
		return 0, 0, model.ErrInvalidFormat
	}

	targetID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, model.ErrInvalidFormat
	}
	amount, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, model.ErrInvalidFormat
	}
	return targetID, amount, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
