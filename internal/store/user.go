package store

import (
	"database/sql"
	"fmt"

	"github.com/mjimenez-dev/casita/internal/apperr"
	"github.com/mjimenez-dev/casita/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var active int
	var familyID sql.NullInt64

	err := scanner.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Credits,
		&active, &familyID, &u.FullName, &u.Email, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Active = active != 0
	if familyID.Valid {
		u.FamilyID = &familyID.Int64
	}
	return &u, nil
}

const userCols = `id, username, password_hash, role, credits, is_active, family_id, full_name, email, created_at`

func (s *UserStore) Create(username, passwordHash, role string, familyID *int64, fullName, email string) (*model.User, error) {
	var fID sql.NullInt64
	if familyID != nil {
		fID = sql.NullInt64{Int64: *familyID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO users (username, password_hash, role, family_id, full_name, email) VALUES (?, ?, ?, ?, ?, ?)`,
		username, passwordHash, role, fID, fullName, email,
	)
	if isUniqueViolation(err) {
		return nil, apperr.Wrap(apperr.Conflict, "username already registered", err)
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByUsername(username string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

// HasSuperadmin reports whether any superadmin account exists.
func (s *UserStore) HasSuperadmin() (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE role = ?`, model.RoleSuperadmin).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count superadmins: %w", err)
	}
	return n > 0, nil
}

// ListActive returns active users, optionally restricted to one family.
func (s *UserStore) ListActive(familyID *int64) ([]model.User, error) {
	query := `SELECT ` + userCols + ` FROM users WHERE is_active = 1`
	var args []any
	if familyID != nil {
		query += ` AND family_id = ?`
		args = append(args, *familyID)
	}
	query += ` ORDER BY username ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// ListByFamily returns every member of a family, active or not.
func (s *UserStore) ListByFamily(familyID int64) ([]model.User, error) {
	rows, err := s.db.Query(
		`SELECT `+userCols+` FROM users WHERE family_id = ? ORDER BY username ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list family members: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateProfile sets the caller-editable fields.
func (s *UserStore) UpdateProfile(id int64, fullName, email string) (*model.User, error) {
	_, err := s.db.Exec(
		`UPDATE users SET full_name = ?, email = ? WHERE id = ?`,
		fullName, email, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update user profile: %w", err)
	}
	return s.GetByID(id)
}

// UpdateAdmin sets the admin-editable fields on top of the profile fields.
func (s *UserStore) UpdateAdmin(id int64, fullName, email, role string, active bool) (*model.User, error) {
	var a int
	if active {
		a = 1
	}
	_, err := s.db.Exec(
		`UPDATE users SET full_name = ?, email = ?, role = ?, is_active = ? WHERE id = ?`,
		fullName, email, role, a, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.GetByID(id)
}

// SetCredits overwrites a user's balance. Negative balances are refused.
func (s *UserStore) SetCredits(id int64, credits int) error {
	if credits < 0 {
		return apperr.New(apperr.Validation, "credits cannot be negative")
	}
	_, err := s.db.Exec(`UPDATE users SET credits = ? WHERE id = ?`, credits, id)
	if err != nil {
		return fmt.Errorf("set credits: %w", err)
	}
	return nil
}

func (s *UserStore) SetPassword(id int64, passwordHash string) error {
	_, err := s.db.Exec(`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	return nil
}

func (s *UserStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// Stats aggregates a user's assignment history by status.
func (s *UserStore) Stats(id int64) (*model.UserStats, error) {
	user, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}

	counts := map[string]int{}
	rows, err := s.db.Query(
		`SELECT status, COUNT(*) FROM task_assignments WHERE user_id = ? GROUP BY status`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("count assignments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &model.UserStats{
		TotalTasksCompleted: counts[model.StatusApproved],
		TotalCreditsEarned:  user.Credits,
		PendingTasks:        counts[model.StatusPending],
		ApprovedTasks:       counts[model.StatusApproved],
		RejectedTasks:       counts[model.StatusRejected],
	}, nil
}
