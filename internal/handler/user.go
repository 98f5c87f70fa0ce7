package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mjimenez-dev/casita/internal/apperr"
	"github.com/mjimenez-dev/casita/internal/auth"
	"github.com/mjimenez-dev/casita/internal/model"
	"github.com/mjimenez-dev/casita/internal/store"
)

type UserHandler struct {
	users  *store.UserStore
	logger *slog.Logger
}

func NewUserHandler(us *store.UserStore, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: us, logger: logger.With("component", "users")}
}

// List returns active users: admins see their own family, superadmins see
// everyone.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var familyID *int64
	switch ac.Role {
	case model.RoleSuperadmin:
	case model.RoleAdmin:
		if ac.FamilyID == nil {
			writeError(w, apperr.New(apperr.Forbidden, "admin has no family"))
			return
		}
		familyID = ac.FamilyID
	default:
		writeError(w, apperr.New(apperr.Forbidden, "admin access required"))
		return
	}

	users, err := h.users.ListActive(familyID)
	if err != nil {
		h.logger.Error("list users failed", "error", err)
		writeError(w, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Create adds a member to the caller's family (admin) or an arbitrary
// user (superadmin, who may also set the role).
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if !auth.IsAdmin(r.Context()) {
		writeError(w, apperr.New(apperr.Forbidden, "admin access required"))
		return
	}

	var req createUserRequest
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

	role := model.RoleUser
	familyID := ac.FamilyID
	if ac.Role == model.RoleSuperadmin && req.Role != "" {
		switch req.Role {
		case model.RoleUser, model.RoleAdmin, model.RoleSuperadmin:
			role = req.Role
		default:
			writeError(w, apperr.New(apperr.Validation, "invalid role"))
			return
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.Create(req.Username, hash, role, familyID, req.FullName, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("user created", "username", user.Username, "by", ac.Username)
	writeJSON(w, http.StatusCreated, user)
}

type updateUserRequest struct {
	FullName string  `json:"full_name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Role     *string `json:"role"`
	Active   *bool   `json:"is_active"`
	Credits  *int    `json:"credits"`
}

// Update edits a user. Regular users may change their own profile and
// password; role and active flags need family authority over the target.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid id"))
		return
	}

	target, err := h.users.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if target == nil {
		writeError(w, apperr.New(apperr.NotFound, "user not found"))
		return
	}
	if !auth.CanActOnUser(r.Context(), target) {
		writeError(w, apperr.New(apperr.Forbidden, "not allowed to modify this user"))
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid JSON"))
		return
	}

	adminChange := req.Role != nil || req.Active != nil || req.Credits != nil
	if adminChange && !auth.IsAdmin(r.Context()) {
		writeError(w, apperr.New(apperr.Forbidden, "role, credit and active changes require admin access"))
		return
	}

	// Unset fields keep their current values
	fullName := target.FullName
	if req.FullName != "" {
		fullName = req.FullName
	}
	email := target.Email
	if req.Email != "" {
		email = req.Email
	}

	var updated *model.User
	if adminChange {
		role := target.Role
		if req.Role != nil {
			switch *req.Role {
			case model.RoleUser, model.RoleAdmin, model.RoleSuperadmin:
				role = *req.Role
			default:
				writeError(w, apperr.New(apperr.Validation, "invalid role"))
				return
			}
			if role == model.RoleSuperadmin && !auth.IsSuperadmin(r.Context()) {
				writeError(w, apperr.New(apperr.Forbidden, "only superadmins may grant superadmin"))
				return
			}
		}
		active := target.Active
		if req.Active != nil {
			active = *req.Active
		}
		updated, err = h.users.UpdateAdmin(id, fullName, email, role, active)
	} else {
		updated, err = h.users.UpdateProfile(id, fullName, email)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	if req.Credits != nil {
		if err := h.users.SetCredits(id, *req.Credits); err != nil {
			writeError(w, err)
			return
		}
		updated, err = h.users.GetByID(id)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	if req.Password != "" {
		if len(req.Password) < 6 {
			writeError(w, apperr.New(apperr.Validation, "password must be at least 6 characters"))
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := h.users.SetPassword(id, hash); err != nil {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, updated)
}

// Delete removes a user. Self-deletion is forbidden so a family cannot
// lock itself out of administration.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid id"))
		return
	}

	ac, _ := auth.FromContext(r.Context())
	if !auth.IsAdmin(r.Context()) {
		writeError(w, apperr.New(apperr.Forbidden, "admin access required"))
		return
	}
	if ac.UserID == id {
		writeError(w, apperr.New(apperr.Forbidden, "you cannot delete your own account"))
		return
	}

	target, err := h.users.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if target == nil {
		writeError(w, apperr.New(apperr.NotFound, "user not found"))
		return
	}
	if !auth.CanActOnUser(r.Context(), target) {
		writeError(w, apperr.New(apperr.Forbidden, "not allowed to delete this user"))
		return
	}

	if err := h.users.Delete(id); err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("user deleted", "user_id", id, "by", ac.Username)
	w.WriteHeader(http.StatusNoContent)
}

// Stats returns the target user's assignment counts and balance.
func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid id"))
		return
	}

	target, err := h.users.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if target == nil {
		writeError(w, apperr.New(apperr.NotFound, "user not found"))
		return
	}
	if !auth.CanActOnUser(r.Context(), target) {
		writeError(w, apperr.New(apperr.Forbidden, "not allowed to view this user"))
		return
	}

	stats, err := h.users.Stats(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
