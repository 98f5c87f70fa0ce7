package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mjimenez-dev/casita/internal/apperr"
	"github.com/mjimenez-dev/casita/internal/auth"
	"github.com/mjimenez-dev/casita/internal/model"
	"github.com/mjimenez-dev/casita/internal/photo"
	"github.com/mjimenez-dev/casita/internal/store"
	"github.com/mjimenez-dev/casita/internal/websocket"
)

type PhotoHandler struct {
	photos      *store.PhotoStore
	assignments *store.AssignmentStore
	tasks       *store.TaskStore
	files       *photo.Store
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewPhotoHandler(ps *store.PhotoStore, as *store.AssignmentStore, ts *store.TaskStore, files *photo.Store, hub *websocket.Hub, logger *slog.Logger) *PhotoHandler {
	return &PhotoHandler{
		photos:      ps,
		assignments: as,
		tasks:       ts,
		files:       files,
		hub:         hub,
		logger:      logger.With("component", "photos"),
	}
}

// Upload attaches evidence to the caller's completed assignment. The file
// lands on disk first; a failed insert removes it again.
func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := strconv.ParseInt(r.PathValue("assignment_id"), 10, 64)
	if err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid assignment_id"))
		return
	}

	a, err := h.assignments.GetByID(assignmentID)
	if err != nil {
		writeError(w, err)
		return
	}
	if a == nil {
		writeError(w, apperr.New(apperr.NotFound, "assignment not found"))
		return
	}
	if !auth.OwnsAssignment(r.Context(), a) {
		writeError(w, apperr.New(apperr.Forbidden, "assignment belongs to another user"))
		return
	}
	if a.Status != model.StatusCompleted {
		writeError(w, apperr.New(apperr.InvalidState, "photos attach to completed assignments only"))
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

	created, err := h.photos.Create(p)
	if err != nil {
		h.files.Delete(saved.FilePath, saved.ThumbnailPath)
		writeError(w, err)
		return
	}

	h.logger.Info("photo uploaded", "photo_id", created.ID, "assignment_id", a.ID, "size", created.FileSize)
	if h.hub != nil {
		h.hub.Broadcast(websocket.NewEvent("photo", "created", created.ID, h.taskFamily(a)))
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListByAssignment returns an assignment's photos to its owner or an
// admin with authority over the task.
func (h *PhotoHandler) ListByAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid id"))
		return
	}

	a, ok := h.loadVisible(w, r, id)
	if !ok {
		return
	}

	photos, err := h.photos.ListByAssignment(a.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if photos == nil {
		photos = []model.TaskCompletionPhoto{}
	}
	writeJSON(w, http.StatusOK, photos)
}

func (h *PhotoHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("photo_id"), 10, 64)
	if err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid photo_id"))
		return
	}

	p, err := h.photos.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if p == nil {
		writeError(w, apperr.New(apperr.NotFound, "photo not found"))
		return
	}

	if _, ok := h.loadVisible(w, r, p.AssignmentID); !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Delete removes the photo row first, then the files best-effort, so a
// failed unlink can never resurrect a deleted record.
func (h *PhotoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("photo_id"), 10, 64)
	if err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid photo_id"))
		return
	}

	p, err := h.photos.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if p == nil {
		writeError(w, apperr.New(apperr.NotFound, "photo not found"))
		return
	}

	a, err := h.assignments.GetByID(p.AssignmentID)
	if err != nil {
		writeError(w, err)
		return
	}
	if a == nil || !auth.CanManageFamilyEntity(r.Context(), h.taskFamily(a)) {
		writeError(w, apperr.New(apperr.Forbidden, "admin access required"))
		return
	}

	if err := h.photos.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	thumb := ""
	if p.ThumbnailPath != nil {
		thumb = *p.ThumbnailPath
	}
	h.files.Delete(p.FilePath, thumb)

	h.logger.Info("photo deleted", "photo_id", id, "by", auth.UserID(r.Context()))
	if h.hub != nil {
		h.hub.Broadcast(websocket.NewEvent("photo", "deleted", id, h.taskFamily(a)))
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadVisible checks read access: assignment owner, or family authority
// over the owning task.
func (h *PhotoHandler) loadVisible(w http.ResponseWriter, r *http.Request, assignmentID int64) (*model.TaskAssignment, bool) {
	a, err := h.assignments.GetByID(assignmentID)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	if a == nil {
		writeError(w, apperr.New(apperr.NotFound, "assignment not found"))
		return nil, false
	}
	if !auth.OwnsAssignment(r.Context(), a) && !auth.CanManageFamilyEntity(r.Context(), h.taskFamily(a)) {
		writeError(w, apperr.New(apperr.Forbidden, "not allowed to view this assignment"))
		return nil, false
	}
	return a, true
}

func (h *PhotoHandler) taskFamily(a *model.TaskAssignment) *int64 {
	task, err := h.tasks.GetByID(a.TaskID)
	if err != nil || task == nil {
		return nil
	}
	return task.FamilyID
}
