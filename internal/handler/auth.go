package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mjimenez-dev/casita/internal/apperr"
	"github.com/mjimenez-dev/casita/internal/auth"
	"github.com/mjimenez-dev/casita/internal/config"
	"github.com/mjimenez-dev/casita/internal/middleware"
	"github.com/mjimenez-dev/casita/internal/model"
	"github.com/mjimenez-dev/casita/internal/store"
)

type AuthHandler struct {
	users    *store.UserStore
	families *store.FamilyStore
	tokens   *auth.Tokens
	cfg      *config.Config
	logger   *slog.Logger
}

func NewAuthHandler(us *store.UserStore, fs *store.FamilyStore, tokens *auth.Tokens, cfg *config.Config, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: us, families: fs, tokens: tokens, cfg: cfg, logger: logger.With("component", "auth")}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FamilyID *int64 `json:"family_id"`
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	FamilyID *int64 `json:"family_id"`
}

type loginResponse struct {
	Token string      `json:"access_token"`
	User  *model.User `json:"user"`
}

// Register creates a regular user account. Role escalation is not
// possible here; admins are created through the family endpoints.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
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

	if req.FamilyID != nil {
		family, err := h.families.GetByID(*req.FamilyID)
		if err != nil {
			h.logger.Error("family lookup failed", "error", err)
			writeError(w, err)
			return
		}
		if family == nil || !family.Active {
			writeError(w, apperr.New(apperr.NotFound, "family not found"))
			return
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("password hash failed", "error", err)
		writeError(w, err)
		return
	}

	user, err := h.users.Create(req.Username, hash, model.RoleUser, req.FamilyID, req.FullName, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("user registered", "username", user.Username, "user_id", user.ID)
	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, false)
}

// LoginWithFamily additionally checks the declared family membership, so
// the shared login form cannot sign a user into someone else's household.
func (h *AuthHandler) LoginWithFamily(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, true)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, checkFamily bool) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid JSON"))
		return
	}

	user, err := h.users.GetByUsername(strings.TrimSpace(req.Username))
	if err != nil {
		h.logger.Error("user lookup failed", "error", err)
		writeError(w, err)
		return
	}
	// Same error for unknown user and bad password
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, apperr.New(apperr.Unauthenticated, "incorrect username or password"))
		return
	}
	if !user.Active {
		writeError(w, apperr.New(apperr.Unauthenticated, "account is disabled"))
		return
	}

	if checkFamily {
		if req.FamilyID == nil {
			writeError(w, apperr.New(apperr.Validation, "family_id is required"))
			return
		}
		if user.FamilyID == nil || *user.FamilyID != *req.FamilyID {
			writeError(w, apperr.New(apperr.Unauthenticated, "user does not belong to this family"))
			return
		}
	}

	token, err := h.tokens.Mint(user.ID, user.Username)
	if err != nil {
		h.logger.Error("token mint failed", "error", err)
		writeError(w, err)
		return
	}

	h.setAuthCookie(w, token, int(auth.TokenTTL.Seconds()))
	h.logger.Info("login", "username", user.Username, "user_id", user.ID)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.setAuthCookie(w, "", -1)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil {
		writeError(w, apperr.New(apperr.NotFound, "user not found"))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// setAuthCookie mirrors the bearer token into an HTTP-only cookie for
// browser clients. Production uses Secure + SameSite=None so cross-site
// frontends work; development stays on Lax over plain HTTP.
func (h *AuthHandler) setAuthCookie(w http.ResponseWriter, token string, maxAge int) {
	cookie := &http.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if h.cfg.Production() {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, cookie)
}
