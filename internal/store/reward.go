package store

import (
	"database/sql"
	"fmt"

	"github.com/mjimenez-dev/casita/internal/apperr"
	"github.com/mjimenez-dev/casita/internal/model"
)

type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

func scanReward(scanner interface{ Scan(...any) error }) (*model.Reward, error) {
	var r model.Reward
	var familyID sql.NullInt64
	var active int

	err := scanner.Scan(&r.ID, &r.Name, &r.Description, &r.Cost, &familyID, &active, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	if familyID.Valid {
		r.FamilyID = &familyID.Int64
	}
	r.Active = active != 0
	return &r, nil
}

const rewardCols = `id, name, description, cost, family_id, is_active, created_at`

func (s *RewardStore) Create(name, description string, cost int, familyID *int64) (*model.Reward, error) {
	result, err := s.db.Exec(
		`INSERT INTO rewards (name, description, cost, family_id) VALUES (?, ?, ?, ?)`,
		name, description, cost, familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) GetByID(id int64) (*model.Reward, error) {
	row := s.db.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

// ListActive returns active rewards visible to a family: its own plus the
// global catalog. A nil familyID lists everything active.
func (s *RewardStore) ListActive(familyID *int64) ([]model.Reward, error) {
	query := `SELECT ` + rewardCols + ` FROM rewards WHERE is_active = 1`
	var args []any
	if familyID != nil {
		query += ` AND (family_id = ? OR family_id IS NULL)`
		args = append(args, *familyID)
	}
	query += ` ORDER BY cost ASC, name ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

func (s *RewardStore) Update(id int64, name, description string, cost int, active bool) (*model.Reward, error) {
	_, err := s.db.Exec(
		`UPDATE rewards SET name = ?, description = ?, cost = ?, is_active = ? WHERE id = ?`,
		name, description, cost, active, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes the reward when no redemptions reference it; otherwise
// it deactivates instead so the ledger keeps its reward rows. The bool
// reports whether the row was actually removed.
func (s *RewardStore) Delete(id int64) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM reward_redemptions WHERE reward_id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count redemptions: %w", err)
	}

	if n > 0 {
		_, err := s.db.Exec(`UPDATE rewards SET is_active = 0 WHERE id = ?`, id)
		if err != nil {
			return false, fmt.Errorf("deactivate reward: %w", err)
		}
		return false, nil
	}

	_, err = s.db.Exec(`DELETE FROM rewards WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete reward: %w", err)
	}
	return true, nil
}

// Redeem debits the reward's cost from the user and records the
// redemption atomically. The debit is conditional on sufficient balance
// so two concurrent redemptions cannot overspend.
func (s *RewardStore) Redeem(rewardID, userID int64, cost int) (*model.RewardRedemption, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE users SET credits = credits - ? WHERE id = ? AND credits >= ?`,
		cost, userID, cost,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.TransactionFailed, "redemption could not be applied", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, apperr.New(apperr.InsufficientCredits, "not enough credits for this reward")
	}

	insert, err := tx.Exec(
		`INSERT INTO reward_redemptions (reward_id, user_id) VALUES (?, ?)`,
		rewardID, userID,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.TransactionFailed, "redemption could not be applied", err)
	}
	id, err := insert.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Wrap(apperr.TransactionFailed, "redemption could not be applied", err)
	}
	return s.GetRedemption(id)
}

func (s *RewardStore) GetRedemption(id int64) (*model.RewardRedemption, error) {
	row := s.db.QueryRow(`
		SELECT rr.id, rr.reward_id, rr.user_id, rr.redeemed_at,
		       r.id, r.name, r.description, r.cost, r.family_id, r.is_active, r.created_at
		FROM reward_redemptions rr
		JOIN rewards r ON r.id = rr.reward_id
		WHERE rr.id = ?`, id)
	rd, err := scanRedemption(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get redemption: %w", err)
	}
	return rd, nil
}

// ListRedemptionsByUser returns the user's redemption history, newest
// first, each row joined with its reward.
func (s *RewardStore) ListRedemptionsByUser(userID int64) ([]model.RewardRedemption, error) {
	rows, err := s.db.Query(`
		SELECT rr.id, rr.reward_id, rr.user_id, rr.redeemed_at,
		       r.id, r.name, r.description, r.cost, r.family_id, r.is_active, r.created_at
		FROM reward_redemptions rr
		JOIN rewards r ON r.id = rr.reward_id
		WHERE rr.user_id = ?
		ORDER BY rr.redeemed_at DESC, rr.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	defer rows.Close()

	var redemptions []model.RewardRedemption
	for rows.Next() {
		rd, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		redemptions = append(redemptions, *rd)
	}
	return redemptions, rows.Err()
}

func scanRedemption(scanner interface{ Scan(...any) error }) (*model.RewardRedemption, error) {
	var rd model.RewardRedemption
	var r model.Reward
	var familyID sql.NullInt64
	var active int

	err := scanner.Scan(
		&rd.ID, &rd.RewardID, &rd.UserID, &rd.RedeemedAt,
		&r.ID, &r.Name, &r.Description, &r.Cost, &familyID, &active, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if familyID.Valid {
		r.FamilyID = &familyID.Int64
	}
	r.Active = active != 0
	rd.Reward = &r
	return &rd, nil
}
