package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mjimenez-dev/casita/internal/apperr"
	"github.com/mjimenez-dev/casita/internal/assignment"
	"github.com/mjimenez-dev/casita/internal/model"
)

type AssignmentStore struct {
	db *sql.DB
}

func NewAssignmentStore(db *sql.DB) *AssignmentStore {
	return &AssignmentStore{db: db}
}

func scanAssignment(scanner interface{ Scan(...any) error }) (*model.TaskAssignment, error) {
	var a model.TaskAssignment
	var completedAt, approvedAt sql.NullTime
	var approvedBy sql.NullInt64

	err := scanner.Scan(
		&a.ID, &a.TaskID, &a.UserID, &a.Status, &a.ScheduledDate,
		&a.CreditsSnapshot, &completedAt, &approvedAt, &approvedBy, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	if approvedAt.Valid {
		a.ApprovedAt = &approvedAt.Time
	}
	if approvedBy.Valid {
		a.ApprovedBy = &approvedBy.Int64
	}
	return &a, nil
}

const assignmentCols = `id, task_id, user_id, status, scheduled_date, credits_snapshot, completed_at, approved_at, approved_by, created_at`

// Assign creates a pending assignment of task to user for the given day
// (YYYY-MM-DD), snapshotting the task's credit value. Duplicate active
// assignments in the task's uniqueness scope fail with Conflict; the
// partial unique index backs the check so concurrent callers cannot both
// succeed. When perUserDay is set, an individual task is also refused if
// the user already holds any active individual-task assignment that day.
func (s *AssignmentStore) Assign(task *model.Task, userID int64, date string, perUserDay bool) (*model.TaskAssignment, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if perUserDay && task.Type == model.TaskIndividual {
		var n int
		err := tx.QueryRow(`
			SELECT COUNT(*) FROM task_assignments a
			JOIN tasks t ON t.id = a.task_id
			WHERE a.user_id = ? AND a.scheduled_date = ? AND t.task_type = ?
			  AND a.status IN (?, ?)`,
			userID, date, model.TaskIndividual, model.StatusPending, model.StatusCompleted,
		).Scan(&n)
		if err != nil {
			return nil, fmt.Errorf("check daily scope: %w", err)
		}
		if n > 0 {
			return nil, apperr.New(apperr.Conflict, "you already have an individual task assigned today")
		}
	}

	result, err := tx.Exec(
		`INSERT INTO task_assignments (task_id, user_id, scheduled_date, credits_snapshot, scope_key) VALUES (?, ?, ?, ?, ?)`,
		task.ID, userID, date, task.Credits, assignment.ScopeKey(task.Type, userID),
	)
	if isUniqueViolation(err) {
		return nil, apperr.Wrap(apperr.Conflict, "task is already assigned for this day", err)
	}
	if err != nil {
		return nil, fmt.Errorf("insert assignment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit assign: %w", err)
	}
	return s.GetByID(id)
}

func (s *AssignmentStore) GetByID(id int64) (*model.TaskAssignment, error) {
	row := s.db.QueryRow(`SELECT `+assignmentCols+` FROM task_assignments WHERE id = ?`, id)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

// Complete moves a pending assignment to completed. The status guard in
// the UPDATE makes the transition race-safe: a concurrent writer that got
// there first leaves zero rows affected, surfaced as InvalidState.
func (s *AssignmentStore) Complete(id int64) (*model.TaskAssignment, error) {
	result, err := s.db.Exec(
		`UPDATE task_assignments SET status = ?, completed_at = ? WHERE id = ? AND status = ?`,
		model.StatusCompleted, time.Now().UTC(), id, model.StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("complete assignment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, apperr.New(apperr.InvalidState, "assignment is not in pending status")
	}
	return s.GetByID(id)
}

// CompleteWithPhoto flips the status and records the photo row in one
// transaction: if either fails, neither is retained. The photo files must
// already exist on disk; on error the caller removes them.
func (s *AssignmentStore) CompleteWithPhoto(id int64, p *model.TaskCompletionPhoto) (*model.TaskAssignment, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE task_assignments SET status = ?, completed_at = ? WHERE id = ? AND status = ?`,
		model.StatusCompleted, time.Now().UTC(), id, model.StatusPending,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.TransactionFailed, "completion could not be applied", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, apperr.New(apperr.InvalidState, "assignment is not in pending status")
	}

	var thumb sql.NullString
	if p.ThumbnailPath != nil {
		thumb = sql.NullString{String: *p.ThumbnailPath, Valid: true}
	}
	_, err = tx.Exec(
		`INSERT INTO task_completion_photos (task_assignment_id, filename, original_filename, file_path, thumbnail_path, file_size, mime_type)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, p.Filename, p.OriginalFilename, p.FilePath, thumb, p.FileSize, p.MimeType,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.TransactionFailed, "photo could not be recorded", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Wrap(apperr.TransactionFailed, "completion could not be applied", err)
	}
	return s.GetByID(id)
}

// Approve moves a completed assignment to approved and credits the
// snapshot value to its user. Both writes share one transaction so a
// crash can neither grant credits without the approved record nor the
// reverse.
func (s *AssignmentStore) Approve(id, approverID int64) (*model.TaskAssignment, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE task_assignments SET status = ?, approved_at = ?, approved_by = ? WHERE id = ? AND status = ?`,
		model.StatusApproved, time.Now().UTC(), approverID, id, model.StatusCompleted,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.TransactionFailed, "approval could not be applied", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, apperr.New(apperr.InvalidState, "assignment must be completed before review")
	}

	_, err = tx.Exec(
		`UPDATE users SET credits = credits + (SELECT credits_snapshot FROM task_assignments WHERE id = ?)
		 WHERE id = (SELECT user_id FROM task_assignments WHERE id = ?)`,
		id, id,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.TransactionFailed, "credit award could not be applied", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Wrap(apperr.TransactionFailed, "approval could not be applied", err)
	}
	return s.GetByID(id)
}

// Reject moves a completed assignment to rejected with no credit effect.
func (s *AssignmentStore) Reject(id, approverID int64) (*model.TaskAssignment, error) {
	result, err := s.db.Exec(
		`UPDATE task_assignments SET status = ?, approved_by = ? WHERE id = ? AND status = ?`,
		model.StatusRejected, approverID, id, model.StatusCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("reject assignment: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, apperr.New(apperr.InvalidState, "assignment must be completed before review")
	}
	return s.GetByID(id)
}

// Filter narrows assignment queries. Zero values mean "no constraint";
// FamilyID scopes to assignments whose task or user belongs to the family.
type Filter struct {
	UserID   *int64
	FamilyID *int64
	Status   string
	FromDate string // YYYY-MM-DD, inclusive
	ToDate   string // YYYY-MM-DD, inclusive
}

func (f Filter) where() (string, []any) {
	clause := ` WHERE 1 = 1`
	var args []any
	if f.UserID != nil {
		clause += ` AND a.user_id = ?`
		args = append(args, *f.UserID)
	}
	if f.FamilyID != nil {
		clause += ` AND (u.family_id = ? OR t.family_id = ?)`
		args = append(args, *f.FamilyID, *f.FamilyID)
	}
	if f.Status != "" {
		clause += ` AND a.status = ?`
		args = append(args, f.Status)
	}
	if f.FromDate != "" {
		clause += ` AND a.scheduled_date >= ?`
		args = append(args, f.FromDate)
	}
	if f.ToDate != "" {
		clause += ` AND a.scheduled_date <= ?`
		args = append(args, f.ToDate)
	}
	return clause, args
}

// ListDetailed returns matching assignments enriched with their task and
// user summaries, newest scheduled day first.
func (s *AssignmentStore) ListDetailed(f Filter) ([]model.AssignmentDetail, error) {
	clause, args := f.where()
	rows, err := s.db.Query(`
		SELECT a.id, a.task_id, a.user_id, a.status, a.scheduled_date, a.credits_snapshot,
		       a.completed_at, a.approved_at, a.approved_by, a.created_at,
		       t.id, t.name, t.description, t.credits, t.task_type, t.periodicity, t.family_id, t.is_active, t.created_at,
		       u.id, u.username
		FROM task_assignments a
		JOIN tasks t ON t.id = a.task_id
		JOIN users u ON u.id = a.user_id`+clause+`
		ORDER BY a.scheduled_date DESC, a.id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var details []model.AssignmentDetail
	for rows.Next() {
		var d model.AssignmentDetail
		var task model.Task
		var user model.UserSummary
		var completedAt, approvedAt sql.NullTime
		var approvedBy, taskFamilyID sql.NullInt64
		var taskActive int

		err := rows.Scan(
			&d.ID, &d.TaskID, &d.UserID, &d.Status, &d.ScheduledDate, &d.CreditsSnapshot,
			&completedAt, &approvedAt, &approvedBy, &d.CreatedAt,
			&task.ID, &task.Name, &task.Description, &task.Credits, &task.Type,
			&task.Periodicity, &taskFamilyID, &taskActive, &task.CreatedAt,
			&user.ID, &user.Username,
		)
		if err != nil {
			return nil, fmt.Errorf("scan assignment detail: %w", err)
		}

		if completedAt.Valid {
			d.CompletedAt = &completedAt.Time
		}
		if approvedAt.Valid {
			d.ApprovedAt = &approvedAt.Time
		}
		if approvedBy.Valid {
			d.ApprovedBy = &approvedBy.Int64
		}
		task.Active = taskActive != 0
		if taskFamilyID.Valid {
			task.FamilyID = &taskFamilyID.Int64
		}
		d.Task = &task
		d.User = &user
		details = append(details, d)
	}
	return details, rows.Err()
}

// DailyStats counts assignments per status over a scheduled_date range.
func (s *AssignmentStore) DailyStats(familyID *int64, from, to string) (*model.DailyStats, error) {
	query := `
		SELECT a.status, COUNT(*)
		FROM task_assignments a
		JOIN tasks t ON t.id = a.task_id
		JOIN users u ON u.id = a.user_id
		WHERE a.scheduled_date >= ? AND a.scheduled_date <= ?`
	args := []any{from, to}
	if familyID != nil {
		query += ` AND (u.family_id = ? OR t.family_id = ?)`
		args = append(args, *familyID, *familyID)
	}
	query += ` GROUP BY a.status`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("daily stats: %w", err)
	}
	defer rows.Close()

	st := &model.DailyStats{FromDate: from, ToDate: to}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		switch status {
		case model.StatusPending:
			st.Pending = n
		case model.StatusCompleted:
			st.Completed = n
		case model.StatusApproved:
			st.Approved = n
		case model.StatusRejected:
			st.Rejected = n
		}
		st.Total += n
	}
	return st, rows.Err()
}

// ResetAll deletes assignments (family-scoped when familyID is set, or
// system-wide) together with their photo rows in one transaction. No
// credit reversal happens. It returns the count of deleted assignments
// and the web paths of their photos for post-commit file cleanup.
func (s *AssignmentStore) ResetAll(familyID *int64) (int, []string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	scope := ``
	var args []any
	if familyID != nil {
		scope = ` WHERE user_id IN (SELECT id FROM users WHERE family_id = ?)
		          OR task_id IN (SELECT id FROM tasks WHERE family_id = ?)`
		args = []any{*familyID, *familyID}
	}

	rows, err := tx.Query(`
		SELECT p.file_path, p.thumbnail_path FROM task_completion_photos p
		WHERE p.task_assignment_id IN (SELECT id FROM task_assignments`+scope+`)`, args...)
	if err != nil {
		return 0, nil, apperr.Wrap(apperr.TransactionFailed, "reset failed", err)
	}
	var paths []string
	for rows.Next() {
		var filePath string
		var thumbPath sql.NullString
		if err := rows.Scan(&filePath, &thumbPath); err != nil {
			rows.Close()
			return 0, nil, apperr.Wrap(apperr.TransactionFailed, "reset failed", err)
		}
		paths = append(paths, filePath)
		if thumbPath.Valid {
			paths = append(paths, thumbPath.String)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, nil, apperr.Wrap(apperr.TransactionFailed, "reset failed", err)
	}

	result, err := tx.Exec(`DELETE FROM task_assignments`+scope, args...)
	if err != nil {
		return 0, nil, apperr.Wrap(apperr.TransactionFailed, "reset failed", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, nil, fmt.Errorf("rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, apperr.Wrap(apperr.TransactionFailed, "reset failed", err)
	}
	return int(n), paths, nil
}
