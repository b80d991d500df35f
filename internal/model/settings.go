package model

import "time"

// Settings is the singleton guild configuration. Zero means unset.
type Settings struct {
	CategoryID         int64 `json:"category_id"`
	TaskChannelID      int64 `json:"task_channel_id"`
	JobChannelID       int64 `json:"job_channel_id"`
	TaskAdminChannelID int64 `json:"task_admin_channel_id"`
	JobAdminChannelID  int64 `json:"job_admin_channel_id"`
}

// SettingsField names one column of Settings.
type SettingsField string

const (
	SettingCategory         SettingsField = "category"
	SettingTaskChannel      SettingsField = "task_channel"
	SettingJobChannel       SettingsField = "job_channel"
	SettingTaskAdminChannel SettingsField = "task_admin_channel"
	SettingJobAdminChannel  SettingsField = "job_admin_channel"
)

// Apply sets field to value on s. It returns false for unknown fields.
func (s *Settings) Apply(field SettingsField, value int64) bool {
	switch field {
	case SettingCategory:
		s.CategoryID = value
	case SettingTaskChannel:
		s.TaskChannelID = value
	case SettingJobChannel:
		s.JobChannelID = value
	case SettingTaskAdminChannel:
		s.TaskAdminChannelID = value
	case SettingJobAdminChannel:
		s.JobAdminChannelID = value
	default:
		return false
	}
	return true
}

// ChannelFor returns the public posting channel for kind.
func (s *Settings) ChannelFor(kind WorkKind) int64 {
	if kind == KindJob {
		return s.JobChannelID
	}
	return s.TaskChannelID
}

// AdminChannelFor returns the admin review channel for kind.
func (s *Settings) AdminChannelFor(kind WorkKind) int64 {
	if kind == KindJob {
		return s.JobAdminChannelID
	}
	return s.TaskAdminChannelID
}

// ManualEntrySession tracks an admin who is expected to type
// "<DiscordID> <Amount>" into a specific channel.
type ManualEntrySession struct {
	AdminID        int64     `json:"admin_id"`
	Awaiting       bool      `json:"awaiting"`
	ReplyChannelID int64     `json:"reply_channel_id"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its deadline at now.
func (s *ManualEntrySession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
