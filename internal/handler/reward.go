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
	"github.com/mjimenez-dev/casita/internal/websocket"
)

type RewardHandler struct {
	rewards *store.RewardStore
	users   *store.UserStore
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewRewardHandler(rs *store.RewardStore, us *store.UserStore, hub *websocket.Hub, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{rewards: rs, users: us, hub: hub, logger: logger.With("component", "rewards")}
}

func (h *RewardHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

type rewardRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Cost        int    `json:"cost"`
	Active      *bool  `json:"is_active"`
}

func (r *rewardRequest) validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return apperr.New(apperr.Validation, "name is required")
	}
	if r.Cost <= 0 {
		return apperr.New(apperr.Validation, "cost must be a positive integer")
	}
	return nil
}

// List returns the active rewards visible to the caller's family.
func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var familyID *int64
	if ac.Role != model.RoleSuperadmin {
		familyID = ac.FamilyID
		if familyID == nil {
			none := int64(-1)
			familyID = &none
		}
	}

	rewards, err := h.rewards.ListActive(familyID)
	if err != nil {
		h.logger.Error("list rewards failed", "error", err)
		writeError(w, err)
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if !auth.IsAdmin(r.Context()) {
		writeError(w, apperr.New(apperr.Forbidden, "admin access required"))
		return
	}

	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid JSON"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	reward, err := h.rewards.Create(req.Name, req.Description, req.Cost, ac.FamilyID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(websocket.NewEvent("reward", "created", reward.ID, reward.FamilyID))
	writeJSON(w, http.StatusCreated, reward)
}

func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid id"))
		return
	}

	existing, err := h.rewards.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing == nil {
		writeError(w, apperr.New(apperr.NotFound, "reward not found"))
		return
	}
	if !auth.CanManageFamilyEntity(r.Context(), existing.FamilyID) {
		writeError(w, apperr.New(apperr.Forbidden, "not allowed to modify this reward"))
		return
	}

	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid JSON"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	active := existing.Active
	if req.Active != nil {
		active = *req.Active
	}

	reward, err := h.rewards.Update(id, req.Name, req.Description, req.Cost, active)
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(websocket.NewEvent("reward", "updated", reward.ID, reward.FamilyID))
	writeJSON(w, http.StatusOK, reward)
}

// Delete removes a reward, degrading to deactivation when redemption
// history references it.
func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid id"))
		return
	}

	existing, err := h.rewards.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing == nil {
		writeError(w, apperr.New(apperr.NotFound, "reward not found"))
		return
	}
	if !auth.CanManageFamilyEntity(r.Context(), existing.FamilyID) {
		writeError(w, apperr.New(apperr.Forbidden, "not allowed to delete this reward"))
		return
	}

	removed, err := h.rewards.Delete(id)
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(websocket.NewEvent("reward", "deleted", id, existing.FamilyID))
	if removed {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated", "reason": "redemption history exists"})
}

// Redeem spends the caller's credits on an active, family-visible reward.
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid id"))
		return
	}

	reward, err := h.rewards.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if reward == nil || !reward.Active {
		writeError(w, apperr.New(apperr.NotFound, "reward not found"))
		return
	}
	if !auth.CanViewFamilyEntity(r.Context(), reward.FamilyID) {
		writeError(w, apperr.New(apperr.Forbidden, "reward belongs to another family"))
		return
	}

	userID := auth.UserID(r.Context())
	redemption, err := h.rewards.Redeem(reward.ID, userID, reward.Cost)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("reward redeemed", "reward_id", reward.ID, "user_id", userID, "cost", reward.Cost)
	h.broadcast(websocket.NewEvent("reward", "redeemed", reward.ID, reward.FamilyID))
	writeJSON(w, http.StatusCreated, redemption)
}

// Redemptions returns the caller's redemption history; ?user_id lets an
// admin inspect a family member's history.
func (h *RewardHandler) Redemptions(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	if v := r.URL.Query().Get("user_id"); v != "" {
		targetID, err := parseUserIDQuery(v)
		if err != nil {
			writeError(w, err)
			return
		}
		if targetID != userID {
			target, err := h.users.GetByID(targetID)
			if err != nil {
				writeError(w, err)
				return
			}
			if target == nil {
				writeError(w, apperr.New(apperr.NotFound, "user not found"))
				return
			}
			if !auth.IsAdmin(r.Context()) || !auth.CanActOnUser(r.Context(), target) {
				writeError(w, apperr.New(apperr.Forbidden, "not allowed to view this user's redemptions"))
				return
			}
		}
		userID = targetID
	}

	history, err := h.rewards.ListRedemptionsByUser(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if history == nil {
		history = []model.RewardRedemption{}
	}
	writeJSON(w, http.StatusOK, history)
}
