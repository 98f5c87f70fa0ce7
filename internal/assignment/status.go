// Package assignment holds the lifecycle rules for task assignments.
// The lifecycle is strictly linear:
//
//	pending -> completed -> approved | rejected
//
// approved and rejected are terminal and no transition may skip
// completed. The store enforces the same rules with guarded updates so a
// concurrent writer cannot slip a stale transition through; this package
// is what handlers consult to produce precise errors first.
package assignment

import (
	"strconv"

	"github.com/mjimenez-dev/casita/internal/apperr"
	"github.com/mjimenez-dev/casita/internal/model"
)

// ScopeKey computes the uniqueness key stored with each assignment row.
// Collective tasks block the whole (task, day) slot; individual tasks
// block only (task, user, day). Keep in sync with the partial unique
// index over active rows.
func ScopeKey(taskType string, userID int64) string {
	if taskType == model.TaskCollective {
		return "c"
	}
	return "u:" + strconv.FormatInt(userID, 10)
}

// CheckComplete validates the pending -> completed transition.
func CheckComplete(a *model.TaskAssignment) error {
	if a.Status != model.StatusPending {
		return apperr.New(apperr.InvalidState, "assignment is not in pending status")
	}
	return nil
}

// CheckReview validates the completed -> approved|rejected transition.
func CheckReview(a *model.TaskAssignment) error {
	if a.Status != model.StatusCompleted {
		return apperr.New(apperr.InvalidState, "assignment must be completed before review")
	}
	return nil
}

// Active reports whether the assignment still occupies its uniqueness
// slot for the day.
func Active(status string) bool {
	return status == model.StatusPending || status == model.StatusCompleted
}
