package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mjimenez-dev/casita/internal/apperr"
	"github.com/mjimenez-dev/casita/internal/auth"
	"github.com/mjimenez-dev/casita/internal/model"
	"github.com/mjimenez-dev/casita/internal/photo"
	"github.com/mjimenez-dev/casita/internal/store"
	"github.com/mjimenez-dev/casita/internal/websocket"
)

type FamilyHandler struct {
	families *store.FamilyStore
	users    *store.UserStore
	photos   *photo.Store
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewFamilyHandler(fs *store.FamilyStore, us *store.UserStore, ps *photo.Store, hub *websocket.Hub, logger *slog.Logger) *FamilyHandler {
	return &FamilyHandler{families: fs, users: us, photos: ps, hub: hub, logger: logger.With("component", "families")}
}

func (h *FamilyHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

type familyRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MaxMembers  int    `json:"max_members"`
	Timezone    string `json:"timezone"`
	Active      *bool  `json:"is_active"`
}

// List returns every family with its member roster. Superadmin only.
func (h *FamilyHandler) List(w http.ResponseWriter, r *http.Request) {
	if !auth.IsSuperadmin(r.Context()) {
		writeError(w, apperr.New(apperr.Forbidden, "superadmin access required"))
		return
	}

	families, err := h.families.List()
	if err != nil {
		h.logger.Error("list families failed", "error", err)
		writeError(w, err)
		return
	}

	out := make([]model.FamilyWithMembers, 0, len(families))
	for _, f := range families {
		members, err := h.users.ListByFamily(f.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		fm := model.FamilyWithMembers{Family: f, Members: members, MemberCount: len(members)}
		for _, m := range members {
			if m.Role == model.RoleAdmin {
				fm.AdminCount++
			} else {
				fm.UserCount++
			}
		}
		out = append(out, fm)
	}
	writeJSON(w, http.StatusOK, out)
}

// ListPublic serves the login form's family picker without authentication:
// active families only, names and ids, nothing else.
func (h *FamilyHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	families, err := h.families.ListActive()
	if err != nil {
		writeError(w, err)
		return
	}

	type publicFamily struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	out := make([]publicFamily, 0, len(families))
	for _, f := range families {
		out = append(out, publicFamily{ID: f.ID, Name: f.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *FamilyHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !auth.IsSuperadmin(r.Context()) {
		writeError(w, apperr.New(apperr.Forbidden, "superadmin access required"))
		return
	}

	var req familyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid JSON"))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, apperr.New(apperr.Validation, "name is required"))
		return
	}

	family, err := h.families.Create(req.Name, req.Description, req.MaxMembers, req.Timezone, auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(websocket.NewEvent("family", "created", family.ID, nil))
	writeJSON(w, http.StatusCreated, family)
}

func (h *FamilyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid id"))
		return
	}

	family, err := h.families.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if family == nil {
		writeError(w, apperr.New(apperr.NotFound, "family not found"))
		return
	}
	if !auth.CanViewFamilyEntity(r.Context(), &family.ID) {
		writeError(w, apperr.New(apperr.Forbidden, "not allowed to view this family"))
		return
	}
	writeJSON(w, http.StatusOK, family)
}

func (h *FamilyHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !auth.IsSuperadmin(r.Context()) {
		writeError(w, apperr.New(apperr.Forbidden, "superadmin access required"))
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid id"))
		return
	}

	existing, err := h.families.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing == nil {
		writeError(w, apperr.New(apperr.NotFound, "family not found"))
		return
	}

	var req familyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid JSON"))
		return
	}

	// Unset fields keep their current values
	name := existing.Name
	if n := strings.TrimSpace(req.Name); n != "" {
		name = n
	}
	description := existing.Description
	if req.Description != "" {
		description = req.Description
	}
	maxMembers := existing.MaxMembers
	if req.MaxMembers > 0 {
		maxMembers = req.MaxMembers
	}
	timezone := existing.Timezone
	if req.Timezone != "" {
		timezone = req.Timezone
	}
	active := existing.Active
	if req.Active != nil {
		active = *req.Active
	}

	family, err := h.families.Update(id, name, description, active, maxMembers, timezone)
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(websocket.NewEvent("family", "updated", family.ID, &family.ID))
	writeJSON(w, http.StatusOK, family)
}

// Delete removes the family and everything it owns in one transaction,
// then unlinks the photo files the cascade orphaned.
func (h *FamilyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !auth.IsSuperadmin(r.Context()) {
		writeError(w, apperr.New(apperr.Forbidden, "superadmin access required"))
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid id"))
		return
	}

	existing, err := h.families.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing == nil {
		writeError(w, apperr.New(apperr.NotFound, "family not found"))
		return
	}

	paths, err := h.families.DeleteCascade(id)
	if err != nil {
		h.logger.Error("family deletion failed", "family_id", id, "error", err)
		writeError(w, err)
		return
	}
	if h.photos != nil {
		h.photos.Delete(paths...)
	}

	h.logger.Info("family deleted", "family_id", id, "name", existing.Name, "photos_removed", len(paths))
	h.broadcast(websocket.NewEvent("family", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

type createAdminRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// CreateAdmin provisions an admin account inside the family.
func (h *FamilyHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	if !auth.IsSuperadmin(r.Context()) {
		writeError(w, apperr.New(apperr.Forbidden, "superadmin access required"))
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid id"))
		return
	}

	family, err := h.families.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if family == nil {
		writeError(w, apperr.New(apperr.NotFound, "family not found"))
		return
	}

	var req createAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid JSON"))
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if len(req.Username) < 3 {
		writeError(w, apperr.New(apperr.Validation, "username must be at least 3 characters"))
		return
	}
	if len(req.Password) < 6 {
		writeError(w, apperr.New(apperr.Validation, "password must be at least 6 characters"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	admin, err := h.users.Create(req.Username, hash, model.RoleAdmin, &family.ID, req.FullName, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("family admin created", "family_id", family.ID, "username", admin.Username)
	writeJSON(w, http.StatusCreated, admin)
}

// Stats aggregates membership and activity counts for the family.
func (h *FamilyHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid id"))
		return
	}

	family, err := h.families.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if family == nil {
		writeError(w, apperr.New(apperr.NotFound, "family not found"))
		return
	}
	if !auth.CanManageFamilyEntity(r.Context(), &family.ID) {
		writeError(w, apperr.New(apperr.Forbidden, "admin access required"))
		return
	}

	stats, err := h.families.Stats(id, today())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
