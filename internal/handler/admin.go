package handler

import (
	"net/http"
	"runtime"
	"time"

	"socialcredit-api/internal/model"
	"socialcredit-api/internal/repository"
	"socialcredit-api/internal/service"
	"socialcredit-api/pkg/apierror"
	"socialcredit-api/pkg/response"
)

// AdminHandler handles admin-only HTTP requests.
type AdminHandler struct {
	ledger    *service.LedgerService
	sessions  *service.SessionManager
	settings  *service.SettingsService
	stats     service.StatsSource
	audit     repository.AuditRepository // nil when the audit trail is disabled
	dbType    string
	cacheType string
	startTime time.Time
}

// AdminDeps groups the admin handler's collaborators.
type AdminDeps struct {
	Ledger    *service.LedgerService
	Sessions  *service.SessionManager
	Settings  *service.SettingsService
	Stats     service.StatsSource
	Audit     repository.AuditRepository
	DBType    string
	CacheType string
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps AdminDeps) *AdminHandler {
	return &AdminHandler{
		ledger:    deps.Ledger,
		sessions:  deps.Sessions,
		settings:  deps.Settings,
		stats:     deps.Stats,
		audit:     deps.Audit,
		dbType:    deps.DBType,
		cacheType: deps.CacheType,
		startTime: time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["db_type"] = h.dbType
	stats["cache_type"] = h.cacheType

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	if h.stats != nil {
		ledgerStats, err := h.stats.GetStats(ctx)
		if err == nil {
			ledgerStats["status"] = "connected"
			stats["ledger"] = ledgerStats
		} else {
			stats["ledger"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		}
	} else {
		stats["ledger"] = map[string]interface{}{"status": "not_configured"}
	}

	if h.audit != nil {
		stats["audit"] = map[string]interface{}{"status": "enabled"}
	} else {
		stats["audit"] = map[string]interface{}{"status": "not_configured"}
	}

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

type setBalanceRequest struct {
	Amount  *int64 `json:"amount"`
	ActorID int64  `json:"actor_id"`
}

// SetBalance handles PUT /api/v1/admin/balances/{discord_id}
func (h *AdminHandler) SetBalance(w http.ResponseWriter, r *http.Request) {
	discordID, err := idParam(r, "discord_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req setBalanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := requireField("amount", req.Amount != nil, "is required"); err != nil {
		writeError(w, r, err)
		return
	}

	change, err := h.ledger.SetBalance(r.Context(), req.ActorID, discordID, *req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, change)
}

type startSessionRequest struct {
	ChannelID int64 `json:"channel_id"`
}

// StartSession handles POST /api/v1/admin/sessions/{admin_id}
func (h *AdminHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	adminID, err := idParam(r, "admin_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req startSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := requireField("channel_id", req.ChannelID > 0, "is required"); err != nil {
		writeError(w, r, err)
		return
	}

	session, err := h.sessions.Start(r.Context(), adminID, req.ChannelID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Created(w, session)
}

type sessionReplyRequest struct {
	ChannelID int64  `json:"channel_id"`
	Content   string `json:"content"`
}

// SessionReply handles POST /api/v1/admin/sessions/{admin_id}/reply
func (h *AdminHandler) SessionReply(w http.ResponseWriter, r *http.Request) {
	adminID, err := idParam(r, "admin_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req sessionReplyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.sessions.Reply(r.Context(), adminID, req.ChannelID, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, res)
}

// CancelSession handles DELETE /api/v1/admin/sessions/{admin_id}
func (h *AdminHandler) CancelSession(w http.ResponseWriter, r *http.Request) {
	adminID, err := idParam(r, "admin_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.sessions.Cancel(r.Context(), adminID); err != nil {
		writeError(w, r, err)
		return
	}
	response.NoContent(w)
}

// GetSettings handles GET /api/v1/admin/settings
func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, settings)
}

// UpdateSettings handles PATCH /api/v1/admin/settings
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req map[model.SettingsField]int64
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req) == 0 {
		writeError(w, r, apierror.BadRequest("no settings given"))
		return
	}

	if err := h.settings.Update(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}

	settings, err := h.settings.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, settings)
}

// GetAuditEvents handles GET /api/v1/admin/audit
func (h *AdminHandler) GetAuditEvents(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeError(w, r, apierror.ServiceUnavailable("Audit trail is not configured"))
		return
	}

	page, limit := pageParams(r)
	events, total, err := h.audit.GetAuditEvents(r.Context(), limit, (page-1)*limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSONWithMeta(w, http.StatusOK, events, page, limit, total)
}
