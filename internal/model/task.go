package model

import "time"

// Task type values.
const (
	TaskIndividual = "individual"
	TaskCollective = "collective"
)

// Periodicity values. Advisory labels only; nothing schedules off them.
const (
	PeriodicityDaily   = "daily"
	PeriodicityWeekly  = "weekly"
	PeriodicitySpecial = "special"
)

type Task struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Credits     int       `json:"credits"`
	Type        string    `json:"task_type"`
	Periodicity string    `json:"periodicity"`
	FamilyID    *int64    `json:"family_id"`
	Active      bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Assignment status values. Lifecycle: pending -> completed -> approved|rejected.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
)

// TaskAssignment is one occurrence of a task bound to a user for a day.
// CreditsSnapshot is the task's credit value frozen at assignment time;
// it is what approval awards, so later task edits never reprice history.
type TaskAssignment struct {
	ID              int64      `json:"id"`
	TaskID          int64      `json:"task_id"`
	UserID          int64      `json:"user_id"`
	Status          string     `json:"status"`
	ScheduledDate   string     `json:"scheduled_date"` // YYYY-MM-DD
	CreditsSnapshot int        `json:"credits_snapshot"`
	CompletedAt     *time.Time `json:"completed_at"`
	ApprovedAt      *time.Time `json:"approved_at"`
	ApprovedBy      *int64     `json:"approved_by"`
	CreatedAt       time.Time  `json:"created_at"`
}

// AssignmentDetail enriches an assignment with joined task/user/photo summaries.
type AssignmentDetail struct {
	TaskAssignment
	Task   *Task                 `json:"task,omitempty"`
	User   *UserSummary          `json:"user,omitempty"`
	Photos []TaskCompletionPhoto `json:"photos,omitempty"`
}

// UserSummary is the minimal user shape embedded in assignment listings.
type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// DailyStats counts assignments per status over a scheduled_date range.
type DailyStats struct {
	FromDate  string `json:"from_date"`
	ToDate    string `json:"to_date"`
	Total     int    `json:"total"`
	Pending   int    `json:"pending"`
	Completed int    `json:"completed"`
	Approved  int    `json:"approved"`
	Rejected  int    `json:"rejected"`
}
