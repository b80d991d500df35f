package handler

import (
	"net/http"
	"strings"

	"socialcredit-api/internal/service"
	"socialcredit-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// LedgerHandler handles account, transfer and lookup requests from the bot.
type LedgerHandler struct {
	ledger *service.LedgerService
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(ledger *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// Link handles POST /api/v1/accounts/link
func (h *LedgerHandler) Link(w http.ResponseWriter, r *http.Request) {
	var req service.LinkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := firstError(
		requireField("discord_id", req.DiscordID > 0, "is required"),
		requireField("discord_username", req.DiscordUsername != "", "is required"),
		requireField("minecraft_username", strings.TrimSpace(req.MinecraftUsername) != "", "is required"),
		requireField("minecraft_uuid", strings.TrimSpace(req.MinecraftUUID) != "", "is required"),
	); err != nil {
		writeError(w, r, err)
		return
	}

	acc, err := h.ledger.Link(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Created(w, acc)
}

type linkAdminRequest struct {
	DiscordID       int64  `json:"discord_id"`
	DiscordUsername string `json:"discord_username"`
}

// LinkAdmin handles POST /api/v1/accounts/link-admin
func (h *LedgerHandler) LinkAdmin(w http.ResponseWriter, r *http.Request) {
	var req linkAdminRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := firstError(
		requireField("discord_id", req.DiscordID > 0, "is required"),
		requireField("discord_username", req.DiscordUsername != "", "is required"),
	); err != nil {
		writeError(w, r, err)
		return
	}

	acc, err := h.ledger.LinkAdmin(r.Context(), req.DiscordID, req.DiscordUsername)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Created(w, acc)
}

// GetAccount handles GET /api/v1/accounts/{discord_id}
func (h *LedgerHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	discordID, err := idParam(r, "discord_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	acc, err := h.ledger.GetAccount(r.Context(), discordID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, acc)
}

// OpenLedger handles POST /api/v1/accounts/{discord_id}/ledger/open
func (h *LedgerHandler) OpenLedger(w http.ResponseWriter, r *http.Request) {
	discordID, err := idParam(r, "discord_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	opening, err := h.ledger.OpenLedger(r.Context(), discordID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, opening)
}

type bindLedgerRequest struct {
	ChannelID int64 `json:"channel_id"`
}

// BindLedger handles PUT /api/v1/accounts/{discord_id}/ledger
func (h *LedgerHandler) BindLedger(w http.ResponseWriter, r *http.Request) {
	discordID, err := idParam(r, "discord_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req bindLedgerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := requireField("channel_id", req.ChannelID > 0, "is required"); err != nil {
		writeError(w, r, err)
		return
	}

	acc, err := h.ledger.BindLedger(r.Context(), discordID, req.ChannelID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, acc)
}

// ListTransfers handles GET /api/v1/accounts/{discord_id}/transfers
func (h *LedgerHandler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	discordID, err := idParam(r, "discord_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, limit := pageParams(r)

	records, total, err := h.ledger.ListTransfers(r.Context(), discordID, page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSONWithMeta(w, http.StatusOK, records, page, limit, total)
}

// MinecraftName handles GET /api/v1/accounts/{discord_id}/minecraft
func (h *LedgerHandler) MinecraftName(w http.ResponseWriter, r *http.Request) {
	discordID, err := idParam(r, "discord_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	name, err := h.ledger.MinecraftName(r.Context(), discordID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, name)
}

// LookupMinecraft handles GET /api/v1/lookup/minecraft/{username}
func (h *LedgerHandler) LookupMinecraft(w http.ResponseWriter, r *http.Request) {
	acc, err := h.ledger.DiscordName(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, acc)
}

// LookupChannel handles GET /api/v1/lookup/channel/{channel_id}
func (h *LedgerHandler) LookupChannel(w http.ResponseWriter, r *http.Request) {
	channelID, err := idParam(r, "channel_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	acc, err := h.ledger.FindByLedgerChannel(r.Context(), channelID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, acc)
}

// Transfer handles POST /api/v1/transfers
func (h *LedgerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req service.TransferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := firstError(
		requireField("sender_discord_id", req.SenderID > 0, "is required"),
		requireField("recipient_minecraft_username", strings.TrimSpace(req.RecipientUsername) != "", "is required"),
	); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.ledger.Transfer(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Created(w, res)
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
