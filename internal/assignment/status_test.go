package assignment

import (
	"testing"

	"github.com/mjimenez-dev/casita/internal/apperr"
	"github.com/mjimenez-dev/casita/internal/model"
)

func TestScopeKey(t *testing.T) {
	if got := ScopeKey(model.TaskCollective, 42); got != "c" {
		t.Errorf("collective scope key = %q, want c", got)
	}
	if got := ScopeKey(model.TaskIndividual, 42); got != "u:42" {
		t.Errorf("individual scope key = %q, want u:42", got)
	}
	// Different users never collide on individual tasks.
	if ScopeKey(model.TaskIndividual, 1) == ScopeKey(model.TaskIndividual, 2) {
		t.Error("individual scope keys for different users must differ")
	}
}

func TestCheckComplete(t *testing.T) {
	if err := CheckComplete(&model.TaskAssignment{Status: model.StatusPending}); err != nil {
		t.Errorf("pending should be completable: %v", err)
	}
	for _, status := range []string{model.StatusCompleted, model.StatusApproved, model.StatusRejected} {
		err := CheckComplete(&model.TaskAssignment{Status: status})
		if !apperr.Is(err, apperr.InvalidState) {
			t.Errorf("complete from %s: err = %v, want InvalidState", status, err)
		}
	}
}

func TestCheckReview(t *testing.T) {
	if err := CheckReview(&model.TaskAssignment{Status: model.StatusCompleted}); err != nil {
		t.Errorf("completed should be reviewable: %v", err)
	}
	// Rejecting a pending assignment skips completed and must fail; the
	// terminal states must never transition again.
	for _, status := range []string{model.StatusPending, model.StatusApproved, model.StatusRejected} {
		err := CheckReview(&model.TaskAssignment{Status: status})
		if !apperr.Is(err, apperr.InvalidState) {
			t.Errorf("review from %s: err = %v, want InvalidState", status, err)
		}
	}
}

func TestActive(t *testing.T) {
	if !Active(model.StatusPending) || !Active(model.StatusCompleted) {
		t.Error("pending and completed are active")
	}
	if Active(model.StatusApproved) || Active(model.StatusRejected) {
		t.Error("terminal states are not active")
	}
}
