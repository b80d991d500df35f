package model

import (
	"fmt"
	"time"
)

// WorkKind discriminates the two claimable-work registries.
type WorkKind string

const (
	KindTask WorkKind = "task"
	KindJob  WorkKind = "job"
)

// ParseWorkKind converts a path segment into a WorkKind.
func ParseWorkKind(s string) (WorkKind, error) {
	switch WorkKind(s) {
	case KindTask, KindJob:
		return WorkKind(s), nil
	}
	return "", fmt.Errorf("unknown work kind %q", s)
}

// WorkItem is an admin-posted task or job.
type WorkItem struct {
	ID          int64               `json:"id"`
	Kind        WorkKind            `json:"kind"`
	MessageID   int64               `json:"message_id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Reward      int64               `json:"reward"`
	AuthorID    int64               `json:"author_id"`
	Claims      map[int64]time.Time `json:"claims"`
	CreatedAt   time.Time           `json:"created_at"`
}

// ClaimedBy reports whether claimantID is in the item's claim set.
func (w *WorkItem) ClaimedBy(claimantID int64) bool {
	_, ok := w.Claims[claimantID]
	return ok
}

// Claim is a single claimant's entry for a work item.
type Claim struct {
	Kind       WorkKind   `json:"kind"`
	MessageID  int64      `json:"message_id"`
	ClaimantID int64      `json:"claimant_id"`
	ClaimedAt  time.Time  `json:"claimed_at"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
}

// Payout is the outcome of an accepted claim.
type Payout struct {
	Item       WorkItem       `json:"item"`
	Claimant   Account        `json:"claimant"`
	Record     TransferRecord `json:"record"`
	NewBalance int64          `json:"new_balance"`
}
