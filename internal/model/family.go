package model

import "time"

type Family struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Active      bool      `json:"is_active"`
	MaxMembers  int       `json:"max_members"`
	Timezone    string    `json:"timezone"`
	CreatedBy   *int64    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// FamilyWithMembers is the admin listing shape: the family plus its roster.
type FamilyWithMembers struct {
	Family
	Members     []User `json:"members"`
	MemberCount int    `json:"member_count"`
	AdminCount  int    `json:"admin_count"`
	UserCount   int    `json:"user_count"`
}

// FamilyStats aggregates membership and task activity for one family.
type FamilyStats struct {
	TotalMembers        int `json:"total_members"`
	ActiveMembers       int `json:"active_members"`
	TotalTasks          int `json:"total_tasks"`
	CompletedTasksToday int `json:"completed_tasks_today"`
	PendingTasks        int `json:"pending_tasks"`
	TotalCreditsEarned  int `json:"total_credits_earned"`
}
