package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"socialcredit-api/internal/model"
	"socialcredit-api/internal/repository"
)

// Verifier resolves a Minecraft username to its canonical profile.
type Verifier interface {
	Lookup(ctx context.Context, username string) (*model.Profile, error)
}

// LedgerStore is the persistence surface the ledger engine needs.
type LedgerStore interface {
	repository.AccountRepository
	repository.LedgerRepository
}

// LinkRequest carries the fields of a link attempt.
type LinkRequest struct {
	DiscordID         int64  `json:"discord_id"`
	DiscordUsername   string `json:"discord_username"`
	MinecraftUsername string `json:"minecraft_username"`
	MinecraftUUID     string `json:"minecraft_uuid"`
}

// TransferRequest carries the fields of a peer transfer.
type TransferRequest struct {
	SenderID          int64  `json:"sender_discord_id"`
	RecipientUsername string `json:"recipient_minecraft_username"`
	Amount            int64  `json:"amount"`
}

// BalanceChange is the result of a manual balance overwrite.
type BalanceChange struct {
	DiscordID       int64  `json:"discord_id"`
	DiscordUsername string `json:"discord_username"`
	PriorBalance    int64  `json:"prior_balance"`
	Balance         int64  `json:"balance"`
}

// LedgerOpening is what the frontend needs to create a ledger channel.
type LedgerOpening struct {
	Account    model.Account `json:"account"`
	CategoryID int64         `json:"category_id"`
}

// MinecraftName is the answer to a Discord to Minecraft lookup.
type MinecraftName struct {
	Account  model.Account `json:"account"`
	Username string        `json:"minecraft_username"`
	Verified bool          `json:"verified"`
}

// LedgerService implements linking, transfers and balance administration.
type LedgerService struct {
	store    LedgerStore
	verifier Verifier
	settings *SettingsService
	notifier Notifier
	audit    repository.AuditRepository
	now      func() time.Time
}

// NewLedgerService creates a ledger service. Notifications go to the log
// until SetNotifier is called.
func NewLedgerService(store LedgerStore, verifier Verifier, settings *SettingsService) *LedgerService {
	return &LedgerService{
		store:    store,
		verifier: verifier,
		settings: settings,
		notifier: LogNotifier{},
		now:      time.Now,
	}
}

// SetNotifier replaces the credit notification sink.
func (s *LedgerService) SetNotifier(n Notifier) {
	if n != nil {
		s.notifier = n
	}
}

// SetAudit enables the audit trail.
func (s *LedgerService) SetAudit(audit repository.AuditRepository) {
	s.audit = audit
}

// SetClock overrides the time source.
func (s *LedgerService) SetClock(now func() time.Time) {
	s.now = now
}

// Link registers the requester after checking the claimed Minecraft
// identity against the verifier. The verifier is called once, before any
// local check.
func (s *LedgerService) Link(ctx context.Context, req LinkRequest) (acc *model.Account, err error) {
	ctx, finish := startOp(ctx, "link")
	defer func() { finish(err) }()

	username := strings.ToLower(strings.TrimSpace(req.MinecraftUsername))
	uuid := strings.ToLower(strings.TrimSpace(req.MinecraftUUID))

	start := time.Now()
	profile, verr := s.verifier.Lookup(ctx, username)
	observeLookup(start, verr)

	if _, err := s.store.FindAccount(ctx, model.ByDiscordID, req.DiscordID); err == nil {
		return nil, model.ErrAlreadyLinked
	} else if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	if verr != nil {
		log.Printf("[LedgerService] Verifier lookup for %s failed: %v", username, verr)
		return nil, fmt.Errorf("%w: %v", model.ErrVerifierUnavailable, verr)
	}
	if profile == nil || !profile.Exists {
		return nil, model.ErrUnknownExternalIdentity
	}
	if !strings.EqualFold(profile.UUID, uuid) {
		return nil, model.ErrIdentityMismatch
	}

	for _, check := range []struct {
		field model.AccountField
		value string
	}{
		{model.ByMinecraftUsername, username},
		{model.ByMinecraftUUID, uuid},
	} {
		if _, err := s.store.FindAccount(ctx, check.field, check.value); err == nil {
			return nil, model.ErrIdentityTaken
		} else if !errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
	}

	acc, err = s.store.RegisterAccount(ctx, model.Account{
		DiscordID:         req.DiscordID,
		DiscordUsername:   req.DiscordUsername,
		MinecraftUsername: username,
		MinecraftUUID:     uuid,
		JoinedAt:          s.now(),
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[LedgerService] Linked discord_id=%d to minecraft=%s", acc.DiscordID, acc.MinecraftUsername)
	s.record(ctx, model.AuditEvent{Action: model.AuditLink, ActorID: acc.DiscordID, SubjectID: acc.DiscordID, Detail: acc.MinecraftUsername})
	return acc, nil
}

// LinkAdmin registers an administrator without consulting the verifier.
// The Discord handle doubles as the Minecraft username and the Discord id
// as the UUID.
func (s *LedgerService) LinkAdmin(ctx context.Context, discordID int64, discordUsername string) (acc *model.Account, err error) {
	ctx, finish := startOp(ctx, "link_admin")
	defer func() { finish(err) }()

	if _, err := s.store.FindAccount(ctx, model.ByDiscordID, discordID); err == nil {
		return nil, model.ErrAlreadyLinked
	} else if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	acc, err = s.store.RegisterAccount(ctx, model.Account{
		DiscordID:         discordID,
		DiscordUsername:   discordUsername,
		MinecraftUsername: strings.ToLower(discordUsername),
		MinecraftUUID:     strconv.FormatInt(discordID, 10),
		JoinedAt:          s.now(),
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[LedgerService] Linked admin discord_id=%d", discordID)
	s.record(ctx, model.AuditEvent{Action: model.AuditLink, ActorID: discordID, SubjectID: discordID, Detail: "admin"})
	return acc, nil
}

// Transfer moves credits from the sender to the account linked to the
// recipient's Minecraft username.
func (s *LedgerService) Transfer(ctx context.Context, req TransferRequest) (res *model.TransferResult, err error) {
	ctx, finish := startOp(ctx, "transfer")
	defer func() { finish(err) }()

	recipient, err := s.store.FindAccount(ctx, model.ByMinecraftUsername, strings.ToLower(strings.TrimSpace(req.RecipientUsername)))
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.ErrUnknownRecipient
	}
	if err != nil {
		return nil, err
	}

	if req.Amount <= 0 {
		return nil, model.ErrInvalidAmount
	}

	sender, err := s.store.FindAccount(ctx, model.ByDiscordID, req.SenderID)
	if err != nil {
		return nil, err
	}
	if sender.Balance < req.Amount {
		return nil, model.ErrInsufficientFunds
	}
	if recipient.DiscordID == sender.DiscordID {
		return nil, model.ErrSelfTransfer
	}
	if !recipient.HasLedger {
		return nil, model.ErrRecipientNotReady
	}

	record, senderBalance, err := s.store.Transfer(ctx, sender.DiscordID, recipient.DiscordID, req.Amount, s.now())
	if err != nil {
		return nil, err
	}

	CreditsMoved.WithLabelValues("transfer").Add(float64(req.Amount))
	log.Printf("[LedgerService] Transfer #%d: %d credits %d -> %d", record.ID, req.Amount, sender.DiscordID, recipient.DiscordID)

	channelID := *recipient.LedgerChannelID
	s.notify(ctx, Notification{
		Kind:        NotifyTransfer,
		ChannelID:   channelID,
		RecipientID: recipient.DiscordID,
		SenderID:    sender.DiscordID,
		Amount:      req.Amount,
		CreatedAt:   record.CreatedAt,
	})
	s.record(ctx, model.AuditEvent{Action: model.AuditTransfer, ActorID: sender.DiscordID, SubjectID: recipient.DiscordID, Amount: req.Amount})

	return &model.TransferResult{
		Record:             *record,
		SenderBalance:      senderBalance,
		RecipientChannelID: channelID,
	}, nil
}

// SetBalance overwrites an account's balance on behalf of actorID.
func (s *LedgerService) SetBalance(ctx context.Context, actorID, discordID, amount int64) (change *BalanceChange, err error) {
	ctx, finish := startOp(ctx, "set_balance")
	defer func() { finish(err) }()

	acc, err := s.store.FindAccount(ctx, model.ByDiscordID, discordID)
	if err != nil {
		return nil, err
	}
	if amount < 0 {
		return nil, model.ErrInvalidAmount
	}

	prior, err := s.store.SetBalance(ctx, discordID, amount)
	if err != nil {
		return nil, err
	}

	log.Printf("[LedgerService] Admin %d set balance of %d: %d -> %d", actorID, discordID, prior, amount)
	s.record(ctx, model.AuditEvent{
		Action:    model.AuditSet,
		ActorID:   actorID,
		SubjectID: discordID,
		Amount:    amount,
		Detail:    "prior=" + strconv.FormatInt(prior, 10),
	})

	return &BalanceChange{
		DiscordID:       discordID,
		DiscordUsername: acc.DiscordUsername,
		PriorBalance:    prior,
		Balance:         amount,
	}, nil
}

// PayReward settles an accepted claim. A claim is paid at most once.
func (s *LedgerService) PayReward(ctx context.Context, item *model.WorkItem, claimant *model.Account) (payout *model.Payout, err error) {
	ctx, finish := startOp(ctx, "payout")
	defer func() { finish(err) }()

	if item.Reward <= 0 {
		return nil, model.ErrInvalidAmount
	}

	record, balance, err := s.store.SettleClaim(ctx, item.Kind, item.MessageID, claimant.DiscordID, item.Reward, s.now())
	if err != nil {
		return nil, err
	}

	CreditsMoved.WithLabelValues(string(item.Kind)).Add(float64(item.Reward))
	log.Printf("[LedgerService] Paid %s %q reward %d to %d", item.Kind, item.Name, item.Reward, claimant.DiscordID)

	kind := NotifyTaskReward
	if item.Kind == model.KindJob {
		kind = NotifyJobReward
	}
	if claimant.LedgerChannelID != nil {
		s.notify(ctx, Notification{
			Kind:        kind,
			ChannelID:   *claimant.LedgerChannelID,
			RecipientID: claimant.DiscordID,
			SenderID:    model.SystemSenderID,
			Amount:      item.Reward,
			ItemName:    item.Name,
			CreatedAt:   record.CreatedAt,
		})
	}
	s.record(ctx, model.AuditEvent{
		Action:    model.AuditPayout,
		ActorID:   model.SystemSenderID,
		SubjectID: claimant.DiscordID,
		Amount:    item.Reward,
		Detail:    string(item.Kind) + ":" + item.Name,
	})

	claimant.Balance = balance
	return &model.Payout{Item: *item, Claimant: *claimant, Record: *record, NewBalance: balance}, nil
}

// OpenLedger checks that the requester may open a ledger channel and
// returns the category to create it under.
func (s *LedgerService) OpenLedger(ctx context.Context, discordID int64) (*LedgerOpening, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if settings.CategoryID == 0 {
		return nil, model.ErrCategoryNotConfigured
	}

	acc, err := s.store.FindAccount(ctx, model.ByDiscordID, discordID)
	if err != nil {
		return nil, err
	}
	if acc.HasLedger {
		return nil, model.ErrLedgerExists
	}

	return &LedgerOpening{Account: *acc, CategoryID: settings.CategoryID}, nil
}

// BindLedger records the channel created for the requester's ledger.
func (s *LedgerService) BindLedger(ctx context.Context, discordID, channelID int64) (acc *model.Account, err error) {
	ctx, finish := startOp(ctx, "bind_ledger")
	defer func() { finish(err) }()

	acc, err = s.store.FindAccount(ctx, model.ByDiscordID, discordID)
	if err != nil {
		return nil, err
	}
	if acc.HasLedger {
		return nil, model.ErrLedgerExists
	}

	if err := s.store.BindLedgerChannel(ctx, discordID, channelID); err != nil {
		return nil, err
	}

	log.Printf("[LedgerService] Bound ledger channel %d to %d", channelID, discordID)
	s.record(ctx, model.AuditEvent{Action: model.AuditBind, ActorID: discordID, SubjectID: discordID, Detail: strconv.FormatInt(channelID, 10)})

	acc.LedgerChannelID = &channelID
	acc.HasLedger = true
	return acc, nil
}

// GetAccount returns the account linked to discordID.
func (s *LedgerService) GetAccount(ctx context.Context, discordID int64) (*model.Account, error) {
	return s.store.FindAccount(ctx, model.ByDiscordID, discordID)
}

// FindByLedgerChannel returns the account owning channelID.
func (s *LedgerService) FindByLedgerChannel(ctx context.Context, channelID int64) (*model.Account, error) {
	return s.store.FindAccount(ctx, model.ByLedgerChannel, channelID)
}

// DiscordName returns the account linked to a Minecraft username.
func (s *LedgerService) DiscordName(ctx context.Context, minecraftUsername string) (*model.Account, error) {
	return s.store.FindAccount(ctx, model.ByMinecraftUsername, strings.ToLower(strings.TrimSpace(minecraftUsername)))
}

// MinecraftName returns the current Minecraft username of a linked account.
// The name is re-resolved through the verifier to pick up capitalisation;
// when that fails the stored name is returned unverified.
func (s *LedgerService) MinecraftName(ctx context.Context, discordID int64) (*MinecraftName, error) {
	acc, err := s.store.FindAccount(ctx, model.ByDiscordID, discordID)
	if err != nil {
		return nil, err
	}

	result := &MinecraftName{Account: *acc, Username: acc.MinecraftUsername}

	start := time.Now()
	profile, err := s.verifier.Lookup(ctx, acc.MinecraftUsername)
	observeLookup(start, err)
	if err != nil {
		log.Printf("[LedgerService] Verifier lookup for %s failed: %v", acc.MinecraftUsername, err)
		return result, nil
	}
	if profile != nil && profile.Exists {
		result.Username = profile.Username
		result.Verified = true
	}
	return result, nil
}

// ListTransfers returns a page of the account's transfer history.
func (s *LedgerService) ListTransfers(ctx context.Context, discordID int64, page, limit int) ([]model.TransferRecord, int64, error) {
	if _, err := s.store.FindAccount(ctx, model.ByDiscordID, discordID); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.store.ListTransfers(ctx, discordID, limit, (page-1)*limit)
}

func (s *LedgerService) notify(ctx context.Context, n Notification) {
	if err := s.notifier.Notify(ctx, n); err != nil {
		log.Printf("[LedgerService] Notification to channel %d failed: %v", n.ChannelID, err)
	}
}

func (s *LedgerService) record(ctx context.Context, event model.AuditEvent) {
	if s.audit == nil {
		return
	}
	event.CreatedAt = s.now()
	if err := s.audit.InsertAuditEvent(ctx, &event); err != nil {
		log.Printf("[LedgerService] Audit %s failed: %v", event.Action, err)
	}
}
