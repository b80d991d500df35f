package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"socialcredit-api/internal/model"
	"socialcredit-api/internal/repository"
)

// WorkStore is the persistence surface of a work registry.
type WorkStore interface {
	repository.WorkRepository
	repository.AccountRepository
}

// CreateWorkRequest describes a newly posted task or job.
type CreateWorkRequest struct {
	MessageID   int64  `json:"message_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Reward      int64  `json:"reward"`
	AuthorID    int64  `json:"author_id"`
}

// WorkRegistry manages the claimable items of one kind.
type WorkRegistry struct {
	kind   model.WorkKind
	store  WorkStore
	ledger *LedgerService
	now    func() time.Time
}

// NewWorkRegistry creates the registry for kind.
func NewWorkRegistry(kind model.WorkKind, store WorkStore, ledger *LedgerService) *WorkRegistry {
	return &WorkRegistry{kind: kind, store: store, ledger: ledger, now: time.Now}
}

// NewWorkRegistries creates the task and job registries over one store.
func NewWorkRegistries(store WorkStore, ledger *LedgerService) map[model.WorkKind]*WorkRegistry {
	return map[model.WorkKind]*WorkRegistry{
		model.KindTask: NewWorkRegistry(model.KindTask, store, ledger),
		model.KindJob:  NewWorkRegistry(model.KindJob, store, ledger),
	}
}

// Kind returns the registry's discriminant.
func (r *WorkRegistry) Kind() model.WorkKind {
	return r.kind
}

// SetClock overrides the time source.
func (r *WorkRegistry) SetClock(now func() time.Time) {
	r.now = now
}

// Create records a posted item with an empty claim set.
func (r *WorkRegistry) Create(ctx context.Context, req CreateWorkRequest) (item *model.WorkItem, err error) {
	ctx, finish := startOp(ctx, string(r.kind)+"_create")
	defer func() { finish(err) }()

	if req.Reward <= 0 {
		return nil, model.ErrInvalidAmount
	}

	item, err = r.store.CreateWorkItem(ctx, model.WorkItem{
		Kind:        r.kind,
		MessageID:   req.MessageID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Reward:      req.Reward,
		AuthorID:    req.AuthorID,
		CreatedAt:   r.now(),
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[WorkRegistry] Created %s %q (message %d, reward %d)", r.kind, item.Name, item.MessageID, item.Reward)
	return item, nil
}

// FindByMessage returns the item posted as messageID.
func (r *WorkRegistry) FindByMessage(ctx context.Context, messageID int64) (*model.WorkItem, error) {
	return r.store.GetWorkItemByMessage(ctx, r.kind, messageID)
}

// FindByName returns the first item created with name.
func (r *WorkRegistry) FindByName(ctx context.Context, name string) (*model.WorkItem, error) {
	return r.store.GetWorkItemByName(ctx, r.kind, strings.TrimSpace(name))
}

// Claim adds claimantID to the item's claim set and returns the updated item.
func (r *WorkRegistry) Claim(ctx context.Context, messageID, claimantID int64) (item *model.WorkItem, err error) {
	ctx, finish := startOp(ctx, string(r.kind)+"_claim")
	defer func() { finish(err) }()

	if err := r.store.AddClaim(ctx, r.kind, messageID, claimantID, r.now()); err != nil {
		return nil, err
	}

	log.Printf("[WorkRegistry] %d claimed %s message %d", claimantID, r.kind, messageID)
	return r.store.GetWorkItemByMessage(ctx, r.kind, messageID)
}

// Accept pays the reward of the named item to the account linked to
// claimantUsername. Each claim is paid at most once.
func (r *WorkRegistry) Accept(ctx context.Context, itemName, claimantUsername string) (*model.Payout, error) {
	item, err := r.FindByName(ctx, itemName)
	if err != nil {
		return nil, err
	}

	claimant, err := r.store.FindAccount(ctx, model.ByMinecraftUsername, strings.ToLower(strings.TrimSpace(claimantUsername)))
	if err != nil {
		return nil, err
	}
	if !claimant.HasLedger {
		return nil, model.ErrClaimerNotReady
	}
	if !item.ClaimedBy(claimant.DiscordID) {
		return nil, model.ErrNotClaimedByUser
	}

	payout, err := r.ledger.PayReward(ctx, item, claimant)
	if errors.Is(err, model.ErrAlreadyPaid) {
		log.Printf("[WorkRegistry] Rejected repeat payout of %s %q to %d", r.kind, item.Name, claimant.DiscordID)
	}
	return payout, err
}

// ListClaims returns every claim of the item posted as messageID.
func (r *WorkRegistry) ListClaims(ctx context.Context, messageID int64) ([]model.Claim, error) {
	if _, err := r.store.GetWorkItemByMessage(ctx, r.kind, messageID); err != nil {
		return nil, err
	}
	return r.store.ListClaims(ctx, r.kind, messageID)
}
