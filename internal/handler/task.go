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

type TaskHandler struct {
	tasks  *store.TaskStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewTaskHandler(ts *store.TaskStore, hub *websocket.Hub, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: ts, hub: hub, logger: logger.With("component", "tasks")}
}

func (h *TaskHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

type taskRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Credits     int    `json:"credits"`
	Type        string `json:"task_type"`
	Periodicity string `json:"periodicity"`
}

func (r *taskRequest) validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return apperr.New(apperr.Validation, "name is required")
	}
	if r.Credits <= 0 {
		return apperr.New(apperr.Validation, "credits must be a positive integer")
	}
	if r.Type == "" {
		r.Type = model.TaskIndividual
	}
	if r.Type != model.TaskIndividual && r.Type != model.TaskCollective {
		return apperr.New(apperr.Validation, "task_type must be individual or collective")
	}
	if r.Periodicity == "" {
		r.Periodicity = model.PeriodicityDaily
	}
	switch r.Periodicity {
	case model.PeriodicityDaily, model.PeriodicityWeekly, model.PeriodicitySpecial:
	default:
		return apperr.New(apperr.Validation, "periodicity must be daily, weekly or special")
	}
	return nil
}

// List returns the active tasks visible to the caller's family.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var familyID *int64
	if ac.Role != model.RoleSuperadmin {
		familyID = ac.FamilyID
		if familyID == nil {
			// Familyless users see only the global catalog
			none := int64(-1)
			familyID = &none
		}
	}

	tasks, err := h.tasks.ListActive(familyID)
	if err != nil {
		h.logger.Error("list tasks failed", "error", err)
		writeError(w, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Create adds a task owned by the caller's family; superadmins without a
// family create global tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if !auth.IsAdmin(r.Context()) {
		writeError(w, apperr.New(apperr.Forbidden, "admin access required"))
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid JSON"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	task, err := h.tasks.Create(req.Name, req.Description, req.Credits, req.Type, req.Periodicity, ac.FamilyID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(websocket.NewEvent("task", "created", task.ID, task.FamilyID))
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid id"))
		return
	}

	task, err := h.tasks.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if task == nil || !task.Active {
		writeError(w, apperr.New(apperr.NotFound, "task not found"))
		return
	}
	if !auth.CanViewFamilyEntity(r.Context(), task.FamilyID) {
		writeError(w, apperr.New(apperr.Forbidden, "not allowed to view this task"))
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid id"))
		return
	}

	existing, err := h.tasks.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing == nil || !existing.Active {
		writeError(w, apperr.New(apperr.NotFound, "task not found"))
		return
	}
	if !auth.CanManageFamilyEntity(r.Context(), existing.FamilyID) {
		writeError(w, apperr.New(apperr.Forbidden, "not allowed to modify this task"))
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid JSON"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	task, err := h.tasks.Update(id, req.Name, req.Description, req.Credits, req.Type, req.Periodicity)
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(websocket.NewEvent("task", "updated", task.ID, task.FamilyID))
	writeJSON(w, http.StatusOK, task)
}

// Delete soft-deletes the task so its assignment history stays valid.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid id"))
		return
	}

	existing, err := h.tasks.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing == nil || !existing.Active {
		writeError(w, apperr.New(apperr.NotFound, "task not found"))
		return
	}
	if !auth.CanManageFamilyEntity(r.Context(), existing.FamilyID) {
		writeError(w, apperr.New(apperr.Forbidden, "not allowed to delete this task"))
		return
	}

	if err := h.tasks.Deactivate(id); err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(websocket.NewEvent("task", "deleted", id, existing.FamilyID))
	w.WriteHeader(http.StatusNoContent)
}
