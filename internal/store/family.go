package store

import (
	"database/sql"
	"fmt"

	"github.com/mjimenez-dev/casita/internal/apperr"
	"github.com/mjimenez-dev/casita/internal/model"
)

type FamilyStore struct {
	db *sql.DB
}

func NewFamilyStore(db *sql.DB) *FamilyStore {
	return &FamilyStore{db: db}
}

func scanFamily(scanner interface{ Scan(...any) error }) (*model.Family, error) {
	var f model.Family
	var active int
	var createdBy sql.NullInt64

	err := scanner.Scan(
		&f.ID, &f.Name, &f.Description, &active, &f.MaxMembers,
		&f.Timezone, &createdBy, &f.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	f.Active = active != 0
	if createdBy.Valid {
		f.CreatedBy = &createdBy.Int64
	}
	return &f, nil
}

const familyCols = `id, name, description, is_active, max_members, timezone, created_by, created_at`

func (s *FamilyStore) Create(name, description string, maxMembers int, timezone string, createdBy int64) (*model.Family, error) {
	if maxMembers <= 0 {
		maxMembers = 10
	}
	if timezone == "" {
		timezone = "UTC"
	}

	result, err := s.db.Exec(
		`INSERT INTO families (name, description, max_members, timezone, created_by) VALUES (?, ?, ?, ?, ?)`,
		name, description, maxMembers, timezone, createdBy,
	)
	if isUniqueViolation(err) {
		return nil, apperr.Wrap(apperr.Conflict, "family name already exists", err)
	}
	if err != nil {
		return nil, fmt.Errorf("insert family: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *FamilyStore) GetByID(id int64) (*model.Family, error) {
	row := s.db.QueryRow(`SELECT `+familyCols+` FROM families WHERE id = ?`, id)
	f, err := scanFamily(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}
	return f, nil
}

// List returns all families, newest first.
func (s *FamilyStore) List() ([]model.Family, error) {
	rows, err := s.db.Query(`SELECT ` + familyCols + ` FROM families ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}
	defer rows.Close()

	var families []model.Family
	for rows.Next() {
		f, err := scanFamily(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family: %w", err)
		}
		families = append(families, *f)
	}
	return families, rows.Err()
}

// ListActive returns active families ordered by name, for the public
// login form.
func (s *FamilyStore) ListActive() ([]model.Family, error) {
	rows, err := s.db.Query(`SELECT ` + familyCols + ` FROM families WHERE is_active = 1 ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list active families: %w", err)
	}
	defer rows.Close()

	var families []model.Family
	for rows.Next() {
		f, err := scanFamily(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family: %w", err)
		}
		families = append(families, *f)
	}
	return families, rows.Err()
}

func (s *FamilyStore) Update(id int64, name, description string, active bool, maxMembers int, timezone string) (*model.Family, error) {
	var a int
	if active {
		a = 1
	}
	_, err := s.db.Exec(
		`UPDATE families SET name = ?, description = ?, is_active = ?, max_members = ?, timezone = ? WHERE id = ?`,
		name, description, a, maxMembers, timezone, id,
	)
	if isUniqueViolation(err) {
		return nil, apperr.Wrap(apperr.Conflict, "family name already exists", err)
	}
	if err != nil {
		return nil, fmt.Errorf("update family: %w", err)
	}
	return s.GetByID(id)
}

// DeleteCascade removes a family and everything it owns in one
// transaction: member assignments (and their photo rows), the family's
// tasks and rewards (redemptions cascade), then the family itself, with
// member family references cleared. It returns the web paths of deleted
// photos so the caller can unlink files after commit.
func (s *FamilyStore) DeleteCascade(id int64) ([]string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Collect photo paths before the rows cascade away.
	rows, err := tx.Query(`
		SELECT p.file_path, p.thumbnail_path
		FROM task_completion_photos p
		JOIN task_assignments a ON a.id = p.task_assignment_id
		LEFT JOIN users u ON u.id = a.user_id
		LEFT JOIN tasks t ON t.id = a.task_id
		WHERE u.family_id = ? OR t.family_id = ?`, id, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.TransactionFailed, "family deletion failed", err)
	}
	var paths []string
	for rows.Next() {
		var filePath string
		var thumbPath sql.NullString
		if err := rows.Scan(&filePath, &thumbPath); err != nil {
			rows.Close()
			return nil, apperr.Wrap(apperr.TransactionFailed, "family deletion failed", err)
		}
		paths = append(paths, filePath)
		if thumbPath.Valid {
			paths = append(paths, thumbPath.String)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.TransactionFailed, "family deletion failed", err)
	}

	steps := []struct {
		query string
		args  []any
	}{
		{`DELETE FROM task_assignments WHERE user_id IN (SELECT id FROM users WHERE family_id = ?)`, []any{id}},
		{`DELETE FROM task_assignments WHERE task_id IN (SELECT id FROM tasks WHERE family_id = ?)`, []any{id}},
		{`DELETE FROM tasks WHERE family_id = ?`, []any{id}},
		{`DELETE FROM rewards WHERE family_id = ?`, []any{id}},
		{`UPDATE users SET family_id = NULL WHERE family_id = ?`, []any{id}},
		{`DELETE FROM families WHERE id = ?`, []any{id}},
	}
	for _, st := range steps {
		if _, err := tx.Exec(st.query, st.args...); err != nil {
			return nil, apperr.Wrap(apperr.TransactionFailed, "family deletion failed", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Wrap(apperr.TransactionFailed, "family deletion failed", err)
	}
	return paths, nil
}

// Stats aggregates membership and task activity for one family.
func (s *FamilyStore) Stats(id int64, today string) (*model.FamilyStats, error) {
	var st model.FamilyStats

	err := s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE family_id = ?`, id).Scan(&st.TotalMembers)
	if err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}
	err = s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE family_id = ? AND is_active = 1`, id).Scan(&st.ActiveMembers)
	if err != nil {
		return nil, fmt.Errorf("count active members: %w", err)
	}
	err = s.db.QueryRow(`SELECT COUNT(*) FROM tasks WHERE family_id = ? AND is_active = 1`, id).Scan(&st.TotalTasks)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	err = s.db.QueryRow(`
		SELECT COUNT(*) FROM task_assignments a
		JOIN users u ON u.id = a.user_id
		WHERE u.family_id = ? AND a.scheduled_date = ? AND a.status IN (?, ?)`,
		id, today, model.StatusCompleted, model.StatusApproved,
	).Scan(&st.CompletedTasksToday)
	if err != nil {
		return nil, fmt.Errorf("count completed today: %w", err)
	}
	err = s.db.QueryRow(`
		SELECT COUNT(*) FROM task_assignments a
		JOIN users u ON u.id = a.user_id
		WHERE u.family_id = ? AND a.status = ?`,
		id, model.StatusPending,
	).Scan(&st.PendingTasks)
	if err != nil {
		return nil, fmt.Errorf("count pending: %w", err)
	}
	var credits sql.NullInt64
	err = s.db.QueryRow(`SELECT SUM(credits) FROM users WHERE family_id = ?`, id).Scan(&credits)
	if err != nil {
		return nil, fmt.Errorf("sum credits: %w", err)
	}
	st.TotalCreditsEarned = int(credits.Int64)

	return &st, nil
}
