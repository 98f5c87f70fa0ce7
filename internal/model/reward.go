package model

import "time"

type Reward struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Cost        int       `json:"cost"`
	FamilyID    *int64    `json:"family_id"`
	Active      bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

type RewardRedemption struct {
	ID         int64     `json:"id"`
	RewardID   int64     `json:"reward_id"`
	UserID     int64     `json:"user_id"`
	RedeemedAt time.Time `json:"redeemed_at"`
	Reward     *Reward   `json:"reward,omitempty"`
}
