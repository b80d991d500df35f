package model

import "time"

// AuditAction names a completed ledger mutation.
type AuditAction string

const (
	AuditLink     AuditAction = "link"
	AuditTransfer AuditAction = "transfer"
	AuditSet      AuditAction = "set_balance"
	AuditPayout   AuditAction = "payout"
	AuditBind     AuditAction = "bind_ledger"
)

// AuditEvent is one entry in the optional audit trail.
type AuditEvent struct {
	Action    AuditAction `json:"action" bson:"action"`
	ActorID   int64       `json:"actor_id" bson:"actor_id"`
	SubjectID int64       `json:"subject_id" bson:"subject_id"`
	Amount    int64       `json:"amount" bson:"amount"`
	Detail    string      `json:"detail,omitempty" bson:"detail,omitempty"`
	CreatedAt time.Time   `json:"created_at" bson:"created_at"`
}
