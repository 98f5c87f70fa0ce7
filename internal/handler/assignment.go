package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mjimenez-dev/casita/internal/apperr"
	"github.com/mjimenez-dev/casita/internal/auth"
	"github.com/mjimenez-dev/casita/internal/config"
	"github.com/mjimenez-dev/casita/internal/model"
	"github.com/mjimenez-dev/casita/internal/photo"
	"github.com/mjimenez-dev/casita/internal/store"
	"github.com/mjimenez-dev/casita/internal/websocket"
)

type AssignmentHandler struct {
	assignments *store.AssignmentStore
	tasks       *store.TaskStore
	photos      *store.PhotoStore
	files       *photo.Store
	cfg         *config.Config
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewAssignmentHandler(as *store.AssignmentStore, ts *store.TaskStore, ps *store.PhotoStore, files *photo.Store, cfg *config.Config, hub *websocket.Hub, logger *slog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		assignments: as,
		tasks:       ts,
		photos:      ps,
		files:       files,
		cfg:         cfg,
		hub:         hub,
		logger:      logger.With("component", "assignments"),
	}
}

func (h *AssignmentHandler) broadcast(action string, a *model.TaskAssignment, task *model.Task) {
	if h.hub == nil {
		return
	}
	var familyID *int64
	if task != nil {
		familyID = task.FamilyID
	}
	h.hub.Broadcast(websocket.NewEvent("assignment", action, a.ID, familyID))
}

// Assign binds an active, visible task to the caller for a scheduled day
// (default today). Self-service for regular users only; admins review
// work, they do not take it. Uniqueness is enforced by the store.
func (h *AssignmentHandler) Assign(w http.ResponseWriter, r *http.Request) {
	if auth.IsAdmin(r.Context()) {
		writeError(w, apperr.New(apperr.Forbidden, "administrators cannot self-assign tasks"))
		return
	}

	taskID, err := strconv.ParseInt(r.PathValue("task_id"), 10, 64)
	if err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid task_id"))
		return
	}

	var req struct {
		Date string `json:"scheduled_date"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.New(apperr.Validation, "invalid JSON"))
			return
		}
	}
	date := req.Date
	if date == "" {
		date = today()
	} else if _, err := time.Parse(dateLayout, date); err != nil {
		writeError(w, apperr.New(apperr.Validation, "scheduled_date must be a YYYY-MM-DD date"))
		return
	}

	task, err := h.tasks.GetByID(taskID)
	if err != nil {
		writeError(w, err)
		return
	}
	if task == nil || !task.Active {
		writeError(w, apperr.New(apperr.NotFound, "task not found"))
		return
	}
	if !auth.CanViewFamilyEntity(r.Context(), task.FamilyID) {
		writeError(w, apperr.New(apperr.Forbidden, "task belongs to another family"))
		return
	}

	perUserDay := h.cfg.AssignmentScope == config.ScopePerUserDay
	a, err := h.assignments.Assign(task, auth.UserID(r.Context()), date, perUserDay)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("task assigned", "assignment_id", a.ID, "task_id", task.ID, "user_id", a.UserID, "date", date)
	h.broadcast("created", a, task)
	writeJSON(w, http.StatusCreated, a)
}

// Complete marks the caller's pending assignment as done.
func (h *AssignmentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	a, task, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	updated, err := h.assignments.Complete(a.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcast("completed", updated, task)
	writeJSON(w, http.StatusOK, updated)
}

// CompleteWithPhoto saves the uploaded photo first, then flips the status
// and records the photo row in one transaction. If the transaction fails
// the saved files are removed again.
func (h *AssignmentHandler) CompleteWithPhoto(w http.ResponseWriter, r *http.Request) {
	a, task, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(photo.MaxUploadSize); err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, apperr.New(apperr.Validation, "photo file is required"))
		return
	}
	defer file.Close()

	saved, err := h.files.Save(file, header.Filename)
	if err != nil {
		writeError(w, err)
		return
	}

	p := &model.TaskCompletionPhoto{
		AssignmentID:     a.ID,
		Filename:         saved.Filename,
		OriginalFilename: header.Filename,
		FilePath:         saved.FilePath,
		FileSize:         saved.Size,
		MimeType:         saved.MimeType,
	}
	if saved.ThumbnailPath != "" {
		p.ThumbnailPath = &saved.ThumbnailPath
	}

	updated, err := h.assignments.CompleteWithPhoto(a.ID, p)
	if err != nil {
		h.files.Delete(saved.FilePath, saved.ThumbnailPath)
		writeError(w, err)
		return
	}

	h.logger.Info("assignment completed with photo", "assignment_id", a.ID, "file", saved.Filename)
	h.broadcast("completed", updated, task)
	writeJSON(w, http.StatusOK, updated)
}

// Approve settles a completed assignment: terminal state plus the credit
// award, atomically.
func (h *AssignmentHandler) Approve(w http.ResponseWriter, r *http.Request) {
	a, task, ok := h.loadReviewable(w, r)
	if !ok {
		return
	}

	updated, err := h.assignments.Approve(a.ID, auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("assignment approved", "assignment_id", a.ID, "credits", updated.CreditsSnapshot, "by", auth.UserID(r.Context()))
	h.broadcast("approved", updated, task)
	writeJSON(w, http.StatusOK, updated)
}

// Reject is the terminal no-credit outcome of review.
func (h *AssignmentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	a, task, ok := h.loadReviewable(w, r)
	if !ok {
		return
	}

	updated, err := h.assignments.Reject(a.ID, auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcast("rejected", updated, task)
	writeJSON(w, http.StatusOK, updated)
}

// ListMine returns the caller's assignments, optionally date-filtered.
func (h *AssignmentHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	from, err := dateQuery(r, "from_date", "")
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := dateQuery(r, "to_date", "")
	if err != nil {
		writeError(w, err)
		return
	}

	userID := auth.UserID(r.Context())
	details, err := h.assignments.ListDetailed(store.Filter{UserID: &userID, FromDate: from, ToDate: to})
	if err != nil {
		writeError(w, err)
		return
	}
	h.attachPhotos(details)
	if details == nil {
		details = []model.AssignmentDetail{}
	}
	writeJSON(w, http.StatusOK, details)
}

// ListAll returns every assignment the caller administers: family scope
// for admins, everything for superadmins.
func (h *AssignmentHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.adminFilter(w, r)
	if !ok {
		return
	}

	var err error
	if filter.FromDate, err = dateQuery(r, "from_date", ""); err != nil {
		writeError(w, err)
		return
	}
	if filter.ToDate, err = dateQuery(r, "to_date", ""); err != nil {
		writeError(w, err)
		return
	}
	filter.Status = r.URL.Query().Get("status")

	details, err := h.assignments.ListDetailed(filter)
	if err != nil {
		writeError(w, err)
		return
	}
	h.attachPhotos(details)
	if details == nil {
		details = []model.AssignmentDetail{}
	}
	writeJSON(w, http.StatusOK, details)
}

// PendingApprovals lists completed assignments awaiting review.
func (h *AssignmentHandler) PendingApprovals(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.adminFilter(w, r)
	if !ok {
		return
	}
	filter.Status = model.StatusCompleted

	details, err := h.assignments.ListDetailed(filter)
	if err != nil {
		writeError(w, err)
		return
	}
	h.attachPhotos(details)
	if details == nil {
		details = []model.AssignmentDetail{}
	}
	writeJSON(w, http.StatusOK, details)
}

// DailyStats counts assignments per status over a date range, default
// today.
func (h *AssignmentHandler) DailyStats(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.adminFilter(w, r)
	if !ok {
		return
	}

	from, err := dateQuery(r, "from_date", today())
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := dateQuery(r, "to_date", from)
	if err != nil {
		writeError(w, err)
		return
	}

	stats, err := h.assignments.DailyStats(filter.FamilyID, from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ResetAll wipes the assignment ledger for the caller's scope. Credits
// already settled stay settled.
func (h *AssignmentHandler) ResetAll(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.adminFilter(w, r)
	if !ok {
		return
	}

	count, paths, err := h.assignments.ResetAll(filter.FamilyID)
	if err != nil {
		h.logger.Error("assignment reset failed", "error", err)
		writeError(w, err)
		return
	}
	if h.files != nil {
		h.files.Delete(paths...)
	}

	h.logger.Info("assignments reset", "deleted", count, "photos_removed", len(paths), "by", auth.UserID(r.Context()))
	if h.hub != nil {
		h.hub.Broadcast(websocket.NewEvent("assignment", "reset", 0, filter.FamilyID))
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": count})
}

// loadOwned resolves the assignment for the mutating owner-only paths.
func (h *AssignmentHandler) loadOwned(w http.ResponseWriter, r *http.Request) (*model.TaskAssignment, *model.Task, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid id"))
		return nil, nil, false
	}

	a, err := h.assignments.GetByID(id)
	if err != nil {
		writeError(w, err)
		return nil, nil, false
	}
	if a == nil {
		writeError(w, apperr.New(apperr.NotFound, "assignment not found"))
		return nil, nil, false
	}
	if !auth.OwnsAssignment(r.Context(), a) {
		writeError(w, apperr.New(apperr.Forbidden, "assignment belongs to another user"))
		return nil, nil, false
	}

	task, err := h.tasks.GetByID(a.TaskID)
	if err != nil {
		writeError(w, err)
		return nil, nil, false
	}
	return a, task, true
}

// loadReviewable resolves the assignment for approve/reject and checks
// family authority over the owning task.
func (h *AssignmentHandler) loadReviewable(w http.ResponseWriter, r *http.Request) (*model.TaskAssignment, *model.Task, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid id"))
		return nil, nil, false
	}

	a, err := h.assignments.GetByID(id)
	if err != nil {
		writeError(w, err)
		return nil, nil, false
	}
	if a == nil {
		writeError(w, apperr.New(apperr.NotFound, "assignment not found"))
		return nil, nil, false
	}

	task, err := h.tasks.GetByID(a.TaskID)
	if err != nil {
		writeError(w, err)
		return nil, nil, false
	}
	if task == nil {
		writeError(w, apperr.New(apperr.NotFound, "task not found"))
		return nil, nil, false
	}
	if !auth.CanManageFamilyEntity(r.Context(), task.FamilyID) {
		writeError(w, apperr.New(apperr.Forbidden, "not allowed to review this assignment"))
		return nil, nil, false
	}
	return a, task, true
}

// adminFilter builds the family scope for admin-only list endpoints.
func (h *AssignmentHandler) adminFilter(w http.ResponseWriter, r *http.Request) (store.Filter, bool) {
	ac, _ := auth.FromContext(r.Context())
	switch ac.Role {
	case model.RoleSuperadmin:
		return store.Filter{}, true
	case model.RoleAdmin:
		if ac.FamilyID == nil {
			writeError(w, apperr.New(apperr.Forbidden, "admin has no family"))
			return store.Filter{}, false
		}
		return store.Filter{FamilyID: ac.FamilyID}, true
	default:
		writeError(w, apperr.New(apperr.Forbidden, "admin access required"))
		return store.Filter{}, false
	}
}

// attachPhotos fills each detail's photo list; listing keeps working if
// the lookup fails for one row.
func (h *AssignmentHandler) attachPhotos(details []model.AssignmentDetail) {
	for i := range details {
		photos, err := h.photos.ListByAssignment(details[i].ID)
		if err != nil {
			h.logger.Warn("photo lookup failed", "assignment_id", details[i].ID, "error", err)
			continue
		}
		details[i].Photos = photos
	}
}
