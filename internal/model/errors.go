package model

import "errors"

// Ledger and registry errors. Handlers map these to API error codes.
var (
	ErrNotFound                = errors.New("not found")
	ErrDuplicateIdentity       = errors.New("identity already registered")
	ErrAlreadyLinked           = errors.New("account already linked")
	ErrUnknownExternalIdentity = errors.New("minecraft username does not exist")
	ErrIdentityMismatch        = errors.New("uuid does not match username")
	ErrIdentityTaken           = errors.New("minecraft identity already linked to someone")
	ErrVerifierUnavailable     = errors.New("identity verifier unavailable")

	ErrUnknownRecipient  = errors.New("unknown minecraft username")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrSelfTransfer      = errors.New("cannot send money to yourself")
	ErrRecipientNotReady = errors.New("recipient has no ledger channel")

	ErrLedgerExists          = errors.New("ledger channel already exists")
	ErrCategoryNotConfigured = errors.New("ledger category not configured")

	ErrDuplicateItem    = errors.New("work item already exists for message")
	ErrAlreadyClaimed   = errors.New("already claimed")
	ErrClaimerNotReady  = errors.New("claimant has no ledger channel")
	ErrNotClaimedByUser = errors.New("work item not claimed by user")
	ErrAlreadyPaid      = errors.New("claim already paid out")

	ErrNoSession      = errors.New("no manual entry session")
	ErrInvalidFormat  = errors.New("invalid format")
	ErrUnknownSetting = errors.New("unknown setting")
)
