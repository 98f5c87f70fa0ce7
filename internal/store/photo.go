package store

import (
	"database/sql"
	"fmt"

	"github.com/mjimenez-dev/casita/internal/apperr"
	"github.com/mjimenez-dev/casita/internal/model"
)

type PhotoStore struct {
	db *sql.DB
}

func NewPhotoStore(db *sql.DB) *PhotoStore {
	return &PhotoStore{db: db}
}

func scanPhoto(scanner interface{ Scan(...any) error }) (*model.TaskCompletionPhoto, error) {
	var p model.TaskCompletionPhoto
	var thumb sql.NullString

	err := scanner.Scan(
		&p.ID, &p.AssignmentID, &p.Filename, &p.OriginalFilename,
		&p.FilePath, &thumb, &p.FileSize, &p.MimeType, &p.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	if thumb.Valid {
		p.ThumbnailPath = &thumb.String
	}
	return &p, nil
}

const photoCols = `id, task_assignment_id, filename, original_filename, file_path, thumbnail_path, file_size, mime_type, uploaded_at`

func (s *PhotoStore) Create(p *model.TaskCompletionPhoto) (*model.TaskCompletionPhoto, error) {
	var thumb sql.NullString
	if p.ThumbnailPath != nil {
		thumb = sql.NullString{String: *p.ThumbnailPath, Valid: true}
	}
	result, err := s.db.Exec(
		`INSERT INTO task_completion_photos (task_assignment_id, filename, original_filename, file_path, thumbnail_path, file_size, mime_type)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.AssignmentID, p.Filename, p.OriginalFilename, p.FilePath, thumb, p.FileSize, p.MimeType,
	)
	if err != nil {
		return nil, fmt.Errorf("insert photo: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *PhotoStore) GetByID(id int64) (*model.TaskCompletionPhoto, error) {
	row := s.db.QueryRow(`SELECT `+photoCols+` FROM task_completion_photos WHERE id = ?`, id)
	p, err := scanPhoto(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get photo: %w", err)
	}
	return p, nil
}

func (s *PhotoStore) ListByAssignment(assignmentID int64) ([]model.TaskCompletionPhoto, error) {
	rows, err := s.db.Query(
		`SELECT `+photoCols+` FROM task_completion_photos WHERE task_assignment_id = ? ORDER BY uploaded_at ASC`,
		assignmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	var photos []model.TaskCompletionPhoto
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		photos = append(photos, *p)
	}
	return photos, rows.Err()
}

// Delete removes the row only; file removal is the caller's job and runs
// after the row is gone so a failed unlink never leaves a dangling record.
func (s *PhotoStore) Delete(id int64) error {
	result, err := s.db.Exec(`DELETE FROM task_completion_photos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperr.New(apperr.NotFound, "photo not found")
	}
	return nil
}
