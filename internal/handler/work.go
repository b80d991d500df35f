package handler

import (
	"net/http"
	"strings"

	"socialcredit-api/internal/model"
	"socialcredit-api/internal/service"
	"socialcredit-api/pkg/apierror"
	"socialcredit-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// WorkHandler handles task and job requests.
type WorkHandler struct {
	registries map[model.WorkKind]*service.WorkRegistry
}

// NewWorkHandler creates a new work handler.
func NewWorkHandler(registries map[model.WorkKind]*service.WorkRegistry) *WorkHandler {
	return &WorkHandler{registries: registries}
}

func (h *WorkHandler) registry(r *http.Request) (*service.WorkRegistry, error) {
	kind, err := model.ParseWorkKind(chi.URLParam(r, "kind"))
	if err != nil {
		return nil, apierror.NotFound("unknown work kind")
	}
	reg, ok := h.registries[kind]
	if !ok {
		return nil, apierror.NotFound("unknown work kind")
	}
	return reg, nil
}

// Create handles POST /api/v1/work/{kind}
func (h *WorkHandler) Create(w http.ResponseWriter, r *http.Request) {
	reg, err := h.registry(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req service.CreateWorkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := firstError(
		requireField("message_id", req.MessageID > 0, "is required"),
		requireField("name", strings.TrimSpace(req.Name) != "", "is required"),
	); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := reg.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Created(w, item)
}

// FindByName handles GET /api/v1/work/{kind}?name=
func (h *WorkHandler) FindByName(w http.ResponseWriter, r *http.Request) {
	reg, err := h.registry(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	name := r.URL.Query().Get("name")
	if err := requireField("name", strings.TrimSpace(name) != "", "query parameter is required"); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := reg.FindByName(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, item)
}

// Get handles GET /api/v1/work/{kind}/{message_id}
func (h *WorkHandler) Get(w http.ResponseWriter, r *http.Request) {
	reg, err := h.registry(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	messageID, err := idParam(r, "message_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	item, err := reg.FindByMessage(r.Context(), messageID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, item)
}

// ListClaims handles GET /api/v1/work/{kind}/{message_id}/claims
func (h *WorkHandler) ListClaims(w http.ResponseWriter, r *http.Request) {
	reg, err := h.registry(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	messageID, err := idParam(r, "message_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	claims, err := reg.ListClaims(r.Context(), messageID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, claims)
}

type claimRequest struct {
	ClaimantID int64 `json:"claimant_id"`
}

// Claim handles POST /api/v1/work/{kind}/{message_id}/claims
func (h *WorkHandler) Claim(w http.ResponseWriter, r *http.Request) {
	reg, err := h.registry(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	messageID, err := idParam(r, "message_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req claimRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := requireField("claimant_id", req.ClaimantID > 0, "is required"); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := reg.Claim(r.Context(), messageID, req.ClaimantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Created(w, item)
}

type acceptRequest struct {
	Name              string `json:"name"`
	MinecraftUsername string `json:"claimant_minecraft_username"`
}

// Accept handles POST /api/v1/work/{kind}/accept
func (h *WorkHandler) Accept(w http.ResponseWriter, r *http.Request) {
	reg, err := h.registry(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req acceptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := firstError(
		requireField("name", strings.TrimSpace(req.Name) != "", "is required"),
		requireField("claimant_minecraft_username", strings.TrimSpace(req.MinecraftUsername) != "", "is required"),
	); err != nil {
		writeError(w, r, err)
		return
	}

	payout, err := reg.Accept(r.Context(), req.Name, req.MinecraftUsername)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, payout)
}
