package model

import "time"

// SystemSenderID is recorded as the sender of reward payouts.
const SystemSenderID int64 = 0

// TransferRecord is an immutable ledger log entry.
type TransferRecord struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_discord_id"`
	ReceiverID int64     `json:"receiver_discord_id"`
	Amount     int64     `json:"amount"`
	TaskReward bool      `json:"task_reward"`
	JobReward  bool      `json:"job_reward"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsReward reports whether the record is a payout rather than a peer transfer.
func (t TransferRecord) IsReward() bool {
	return t.TaskReward || t.JobReward
}

// TransferResult is returned to the caller after a completed transfer.
type TransferResult struct {
	Record             TransferRecord `json:"record"`
	SenderBalance      int64          `json:"sender_balance"`
	RecipientChannelID int64          `json:"recipient_channel_id"`
}
