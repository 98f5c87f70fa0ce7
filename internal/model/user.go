package model

import "time"

// Role values for User.Role.
const (
	RoleSuperadmin = "superadmin"
	RoleAdmin      = "admin"
	RoleUser       = "user"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Credits      int       `json:"credits"`
	Active       bool      `json:"is_active"`
	FamilyID     *int64    `json:"family_id"`
	FullName     string    `json:"full_name,omitempty"`
	Email        string    `json:"email,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserStats summarizes a user's assignment history and balance.
type UserStats struct {
	TotalTasksCompleted int `json:"total_tasks_completed"`
	TotalCreditsEarned  int `json:"total_credits_earned"`
	PendingTasks        int `json:"pending_tasks"`
	ApprovedTasks       int `json:"approved_tasks"`
	RejectedTasks       int `json:"rejected_tasks"`
}
