package model

import "time"

// Account is a Discord user linked to a Minecraft identity.
type Account struct {
	ID                int64     `json:"id"`
	DiscordID         int64     `json:"discord_id"`
	DiscordUsername   string    `json:"discord_username"`
	MinecraftUsername string    `json:"minecraft_username"`
	MinecraftUUID     string    `json:"minecraft_uuid"`
	Balance           int64     `json:"balance"`
	HasLedger         bool      `json:"has_ledger"`
	LedgerChannelID   *int64    `json:"ledger_channel_id,omitempty"`
	JoinedAt          time.Time `json:"joined_at"`
}

// AccountField names a unique column an account can be looked up by.
type AccountField string

const (
	ByDiscordID         AccountField = "discord_id"
	ByDiscordUsername   AccountField = "discord_username"
	ByMinecraftUsername AccountField = "minecraft_username"
	ByMinecraftUUID     AccountField = "minecraft_uuid"
	ByLedgerChannel     AccountField = "ledger_channel_id"
)

// Valid reports whether f is one of the lookup fields above.
func (f AccountField) Valid() bool {
	switch f {
	case ByDiscordID, ByDiscordUsername, ByMinecraftUsername, ByMinecraftUUID, ByLedgerChannel:
		return true
	}
	return false
}

// Profile is what the identity verifier knows about a Minecraft username.
type Profile struct {
	Exists   bool   `json:"exists"`
	UUID     string `json:"uuid,omitempty"`
	Username string `json:"username,omitempty"`
	Error    string `json:"error,omitempty"`
}
