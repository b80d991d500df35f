package repository

import (
	"context"
	"time"

	"socialcredit-api/internal/model"
)

// AccountRepository defines account data access methods.
type AccountRepository interface {
	// RegisterAccount inserts a new account with zero balance and no ledger.
	// Returns model.ErrDuplicateIdentity if any unique field is taken.
	RegisterAccount(ctx context.Context, acc model.Account) (*model.Account, error)

	// FindAccount looks an account up by one of its unique fields.
	// Returns model.ErrNotFound if no account matches.
	FindAccount(ctx context.Context, field model.AccountField, value interface{}) (*model.Account, error)

	// BindLedgerChannel attaches a ledger channel to an account.
	BindLedgerChannel(ctx context.Context, discordID, channelID int64) error

	// SetBalance overwrites the balance and returns the previous one.
	SetBalance(ctx context.Context, discordID, balance int64) (int64, error)
}

// LedgerRepository defines balance-moving operations. Each call is one
// database transaction.
type LedgerRepository interface {
	// Transfer debits sender and credits receiver, appending a record.
	// Returns model.ErrInsufficientFunds if the conditional debit fails.
	Transfer(ctx context.Context, senderID, receiverID, amount int64, at time.Time) (*model.TransferRecord, int64, error)

	// SettleClaim marks a claim paid, credits the claimant and appends a
	// reward record. Returns model.ErrAlreadyPaid on a second settlement.
	SettleClaim(ctx context.Context, kind model.WorkKind, messageID, claimantID, reward int64, at time.Time) (*model.TransferRecord, int64, error)

	// ListTransfers returns records where discordID is sender or receiver,
	// newest first, plus the total count.
	ListTransfers(ctx context.Context, discordID int64, limit, offset int) ([]model.TransferRecord, int64, error)
}

// WorkRepository defines claimable-work data access methods.
type WorkRepository interface {
	CreateWorkItem(ctx context.Context, item model.WorkItem) (*model.WorkItem, error)
	GetWorkItemByMessage(ctx context.Context, kind model.WorkKind, messageID int64) (*model.WorkItem, error)
	GetWorkItemByName(ctx context.Context, kind model.WorkKind, name string) (*model.WorkItem, error)

	// AddClaim inserts claimantID into the item's claim set.
	// Returns model.ErrAlreadyClaimed if already present.
	AddClaim(ctx context.Context, kind model.WorkKind, messageID, claimantID int64, at time.Time) error

	// ListClaims returns every claim of an item including settlement state.
	ListClaims(ctx context.Context, kind model.WorkKind, messageID int64) ([]model.Claim, error)
}

// SettingsRepository defines access to the singleton configuration record.
type SettingsRepository interface {
	GetSettings(ctx context.Context) (*model.Settings, error)
	SetSetting(ctx context.Context, field model.SettingsField, value int64) error

	// SetSettings writes every field in one transaction. An unknown field
	// fails the call with model.ErrUnknownSetting before anything is written.
	SetSettings(ctx context.Context, fields map[model.SettingsField]int64) error
}

// Store is the full persistence surface used by the services.
type Store interface {
	AccountRepository
	LedgerRepository
	WorkRepository
	SettingsRepository

	// GetStats returns statistics about the ledger database.
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the repository connection.
	Close() error
}

// AuditRepository defines the optional audit trail sink.
type AuditRepository interface {
	InsertAuditEvent(ctx context.Context, event *model.AuditEvent) error
	GetAuditEvents(ctx context.Context, limit, offset int) ([]model.AuditEvent, int64, error)
	Close() error
}
