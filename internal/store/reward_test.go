package store

import (
	"testing"

	"github.com/mjimenez-dev/casita/internal/apperr"
	"github.com/mjimenez-dev/casita/internal/model"
)

func TestRewardCRUD(t *testing.T) {
	db := setupTestDB(t)
	rs := NewRewardStore(db)

	// Create
	reward, err := rs.Create("Movie night", "pick the film", 20, nil)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	if reward.Name != "Movie night" {
		t.Errorf("name = %q, want %q", reward.Name, "Movie night")
	}
	if reward.Cost != 20 {
		t.Errorf("cost = %d, want 20", reward.Cost)
	}
	if !reward.Active {
		t.Error("new reward should be active")
	}

	// Update
	updated, err := rs.Update(reward.ID, "Movie night", "any film", 15, true)
	if err != nil {
		t.Fatalf("update reward: %v", err)
	}
	if updated.Cost != 15 {
		t.Errorf("updated cost = %d, want 15", updated.Cost)
	}

	// Delete with no redemptions removes the row
	removed, err := rs.Delete(reward.ID)
	if err != nil {
		t.Fatalf("delete reward: %v", err)
	}
	if !removed {
		t.Error("expected hard delete")
	}
	got, _ := rs.GetByID(reward.ID)
	if got != nil {
		t.Error("expected nil for deleted reward")
	}
}

func TestRewardGetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	rs := NewRewardStore(db)

	got, err := rs.GetByID(9999)
	if err != nil {
		t.Fatalf("get reward: %v", err)
	}
	if got != nil {
		t.Error("expected nil for nonexistent reward")
	}
}

func TestRewardListActiveVisibility(t *testing.T) {
	db := setupTestDB(t)
	rs := NewRewardStore(db)

	fam := seedFamily(t, db, "lopez")
	other := seedFamily(t, db, "perez")

	rs.Create("family treat", "", 5, &fam.ID)
	rs.Create("other treat", "", 5, &other.ID)
	rs.Create("global treat", "", 5, nil)
	retired, _ := rs.Create("retired", "", 5, &fam.ID)
	rs.Update(retired.ID, "retired", "", 5, false)

	rewards, err := rs.ListActive(&fam.ID)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(rewards) != 2 {
		t.Fatalf("expected 2 visible rewards, got %d", len(rewards))
	}

	all, err := rs.ListActive(nil)
	if err != nil {
		t.Fatalf("list all active: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 active rewards, got %d", len(all))
	}
}

func TestRedeemDebitsCredits(t *testing.T) {
	db := setupTestDB(t)
	rs := NewRewardStore(db)
	us := NewUserStore(db)
	as := NewAssignmentStore(db)

	user := seedUser(t, db, "ana", model.RoleUser, nil)
	admin := seedUser(t, db, "boss", model.RoleAdmin, nil)
	task := seedTask(t, db, "big job", model.TaskIndividual, 25, nil)

	a, _ := as.Assign(task, user.ID, "2026-09-01", false)
	as.Complete(a.ID)
	as.Approve(a.ID, admin.ID)

	reward, _ := rs.Create("Movie night", "", 20, nil)

	redemption, err := rs.Redeem(reward.ID, user.ID, reward.Cost)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if redemption.Reward == nil || redemption.Reward.ID != reward.ID {
		t.Error("redemption should embed its reward")
	}

	got, _ := us.GetByID(user.ID)
	if got.Credits != 5 {
		t.Errorf("credits after redeem = %d, want 5", got.Credits)
	}
}

func TestRedeemInsufficientCredits(t *testing.T) {
	db := setupTestDB(t)
	rs := NewRewardStore(db)
	us := NewUserStore(db)

	user := seedUser(t, db, "broke", model.RoleUser, nil)
	reward, _ := rs.Create("Yacht", "", 1000, nil)

	_, err := rs.Redeem(reward.ID, user.ID, reward.Cost)
	if apperr.KindOf(err) != apperr.InsufficientCredits {
		t.Fatalf("expected InsufficientCredits, got %v", err)
	}

	// No partial effects
	got, _ := us.GetByID(user.ID)
	if got.Credits != 0 {
		t.Errorf("credits = %d, want 0", got.Credits)
	}
	history, _ := rs.ListRedemptionsByUser(user.ID)
	if len(history) != 0 {
		t.Errorf("expected empty history, got %d rows", len(history))
	}
}

func TestRewardDeleteDegradesWithHistory(t *testing.T) {
	db := setupTestDB(t)
	rs := NewRewardStore(db)
	as := NewAssignmentStore(db)

	user := seedUser(t, db, "ana", model.RoleUser, nil)
	admin := seedUser(t, db, "boss", model.RoleAdmin, nil)
	task := seedTask(t, db, "big job", model.TaskIndividual, 25, nil)

	a, _ := as.Assign(task, user.ID, "2026-09-01", false)
	as.Complete(a.ID)
	as.Approve(a.ID, admin.ID)

	reward, _ := rs.Create("Movie night", "", 10, nil)
	if _, err := rs.Redeem(reward.ID, user.ID, reward.Cost); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	removed, err := rs.Delete(reward.ID)
	if err != nil {
		t.Fatalf("delete reward: %v", err)
	}
	if removed {
		t.Error("reward with history should deactivate, not delete")
	}

	got, _ := rs.GetByID(reward.ID)
	if got == nil {
		t.Fatal("reward row should survive")
	}
	if got.Active {
		t.Error("reward should be inactive")
	}

	// History stays intact
	history, _ := rs.ListRedemptionsByUser(user.ID)
	if len(history) != 1 {
		t.Fatalf("expected 1 redemption, got %d", len(history))
	}
	if history[0].Reward.Name != "Movie night" {
		t.Errorf("joined reward name = %q, want %q", history[0].Reward.Name, "Movie night")
	}
}
