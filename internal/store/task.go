package store

import (
	"database/sql"
	"fmt"

	"github.com/mjimenez-dev/casita/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var active int
	var familyID sql.NullInt64

	err := scanner.Scan(
		&t.ID, &t.Name, &t.Description, &t.Credits, &t.Type,
		&t.Periodicity, &familyID, &active, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Active = active != 0
	if familyID.Valid {
		t.FamilyID = &familyID.Int64
	}
	return &t, nil
}

const taskCols = `id, name, description, credits, task_type, periodicity, family_id, is_active, created_at`

func (s *TaskStore) Create(name, description string, credits int, taskType, periodicity string, familyID *int64) (*model.Task, error) {
	var fID sql.NullInt64
	if familyID != nil {
		fID = sql.NullInt64{Int64: *familyID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO tasks (name, description, credits, task_type, periodicity, family_id) VALUES (?, ?, ?, ?, ?, ?)`,
		name, description, credits, taskType, periodicity, fID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// GetByID returns the task regardless of its active flag; callers that
// must not see soft-deleted tasks check Active themselves.
func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ListActive returns active tasks visible to the given family: the
// family's own plus global (familyless) tasks. A nil familyID returns
// every active task (superadmin view).
func (s *TaskStore) ListActive(familyID *int64) ([]model.Task, error) {
	query := `SELECT ` + taskCols + ` FROM tasks WHERE is_active = 1`
	var args []any
	if familyID != nil {
		query += ` AND (family_id = ? OR family_id IS NULL)`
		args = append(args, *familyID)
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) Update(id int64, name, description string, credits int, taskType, periodicity string) (*model.Task, error) {
	_, err := s.db.Exec(
		`UPDATE tasks SET name = ?, description = ?, credits = ?, task_type = ?, periodicity = ? WHERE id = ?`,
		name, description, credits, taskType, periodicity, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(id)
}

// Deactivate soft-deletes a task so assignment history stays intact.
func (s *TaskStore) Deactivate(id int64) error {
	_, err := s.db.Exec(`UPDATE tasks SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate task: %w", err)
	}
	return nil
}
