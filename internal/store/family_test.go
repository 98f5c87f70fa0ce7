package store

import (
	"testing"

	"github.com/mjimenez-dev/casita/internal/apperr"
	"github.com/mjimenez-dev/casita/internal/model"
)

func TestFamilyCRUD(t *testing.T) {
	db := setupTestDB(t)
	fs := NewFamilyStore(db)
	creator := seedUser(t, db, "root", model.RoleSuperadmin, nil)

	// Create
	fam, err := fs.Create("garcia", "the garcias", 6, "Europe/Madrid", creator.ID)
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	if fam.Name != "garcia" {
		t.Errorf("name = %q, want %q", fam.Name, "garcia")
	}
	if fam.MaxMembers != 6 {
		t.Errorf("max_members = %d, want 6", fam.MaxMembers)
	}
	if fam.Timezone != "Europe/Madrid" {
		t.Errorf("timezone = %q, want %q", fam.Timezone, "Europe/Madrid")
	}
	if fam.CreatedBy == nil || *fam.CreatedBy != creator.ID {
		t.Errorf("created_by = %v, want %d", fam.CreatedBy, creator.ID)
	}

	// Update
	updated, err := fs.Update(fam.ID, "garcia", "updated", false, 8, "UTC")
	if err != nil {
		t.Fatalf("update family: %v", err)
	}
	if updated.Description != "updated" {
		t.Errorf("description = %q, want %q", updated.Description, "updated")
	}
	if updated.Active {
		t.Error("family should be inactive after update")
	}

	// ListActive excludes the deactivated family
	active, err := fs.ListActive()
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	for _, f := range active {
		if f.ID == fam.ID {
			t.Error("inactive family should not be listed")
		}
	}
}

func TestFamilyCreateDefaults(t *testing.T) {
	db := setupTestDB(t)
	fs := NewFamilyStore(db)
	creator := seedUser(t, db, "root", model.RoleSuperadmin, nil)

	fam, err := fs.Create("defaults", "", 0, "", creator.ID)
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	if fam.MaxMembers != 10 {
		t.Errorf("max_members = %d, want default 10", fam.MaxMembers)
	}
	if fam.Timezone != "UTC" {
		t.Errorf("timezone = %q, want default UTC", fam.Timezone)
	}
}

func TestFamilyCreateDuplicateName(t *testing.T) {
	db := setupTestDB(t)
	fs := NewFamilyStore(db)
	creator := seedUser(t, db, "root", model.RoleSuperadmin, nil)

	if _, err := fs.Create("dup", "", 10, "UTC", creator.ID); err != nil {
		t.Fatalf("create family: %v", err)
	}
	_, err := fs.Create("dup", "", 10, "UTC", creator.ID)
	if apperr.KindOf(err) != apperr.Conflict {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestFamilyGetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	fs := NewFamilyStore(db)

	got, err := fs.GetByID(9999)
	if err != nil {
		t.Fatalf("get family: %v", err)
	}
	if got != nil {
		t.Error("expected nil for nonexistent family")
	}
}

func TestFamilyDeleteCascade(t *testing.T) {
	db := setupTestDB(t)
	fs := NewFamilyStore(db)
	us := NewUserStore(db)
	ts := NewTaskStore(db)
	as := NewAssignmentStore(db)
	ps := NewPhotoStore(db)

	fam := seedFamily(t, db, "doomed")
	member := seedUser(t, db, "member", model.RoleUser, &fam.ID)
	task := seedTask(t, db, "chore", model.TaskIndividual, 5, &fam.ID)

	rs := NewRewardStore(db)
	reward, err := rs.Create("candy", "", 3, &fam.ID)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	if err := us.SetCredits(member.ID, 3); err != nil {
		t.Fatalf("set credits: %v", err)
	}
	if _, err := rs.Redeem(reward.ID, member.ID, reward.Cost); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	a, err := as.Assign(task, member.ID, "2026-09-01", false)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	thumb := "/uploads/task-photos/thumbnails/thumb_a.jpg"
	if _, err := ps.Create(&model.TaskCompletionPhoto{
		AssignmentID:     a.ID,
		Filename:         "a.jpg",
		OriginalFilename: "orig.jpg",
		FilePath:         "/uploads/task-photos/a.jpg",
		ThumbnailPath:    &thumb,
		FileSize:         100,
		MimeType:         "image/jpeg",
	}); err != nil {
		t.Fatalf("create photo: %v", err)
	}

	paths, err := fs.DeleteCascade(fam.ID)
	if err != nil {
		t.Fatalf("delete cascade: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 photo paths, got %d", len(paths))
	}

	got, _ := fs.GetByID(fam.ID)
	if got != nil {
		t.Error("family should be gone")
	}
	if task, _ := ts.GetByID(task.ID); task != nil {
		t.Error("family task should be gone")
	}
	if a, _ := as.GetByID(a.ID); a != nil {
		t.Error("assignment should be gone")
	}
	if r, _ := rs.GetByID(reward.ID); r != nil {
		t.Error("family reward should be gone")
	}

	// Child rows owned by the deleted rows must be gone too
	var photos, redemptions int
	if err := db.QueryRow(`SELECT COUNT(*) FROM task_completion_photos`).Scan(&photos); err != nil {
		t.Fatalf("count photos: %v", err)
	}
	if photos != 0 {
		t.Errorf("photo rows after cascade = %d, want 0", photos)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM reward_redemptions`).Scan(&redemptions); err != nil {
		t.Fatalf("count redemptions: %v", err)
	}
	if redemptions != 0 {
		t.Errorf("redemption rows after cascade = %d, want 0", redemptions)
	}

	// Members survive, detached from the family
	u, err := us.GetByID(member.ID)
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if u == nil {
		t.Fatal("member should survive family deletion")
	}
	if u.FamilyID != nil {
		t.Errorf("member family_id = %v, want nil", *u.FamilyID)
	}
}

func TestFamilyStats(t *testing.T) {
	db := setupTestDB(t)
	fs := NewFamilyStore(db)
	as := NewAssignmentStore(db)
	us := NewUserStore(db)

	fam := seedFamily(t, db, "statsfam")
	worker := seedUser(t, db, "worker", model.RoleUser, &fam.ID)
	admin := seedUser(t, db, "admin", model.RoleAdmin, &fam.ID)
	inactive := seedUser(t, db, "idle", model.RoleUser, &fam.ID)
	us.UpdateAdmin(inactive.ID, "", "", model.RoleUser, false)

	task := seedTask(t, db, "sweep", model.TaskIndividual, 4, &fam.ID)
	seedTask(t, db, "mop", model.TaskIndividual, 2, &fam.ID)

	today := "2026-09-01"
	a, err := as.Assign(task, worker.ID, today, false)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := as.Complete(a.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := as.Approve(a.ID, admin.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	stats, err := fs.Stats(fam.ID, today)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalMembers != 3 {
		t.Errorf("total members = %d, want 3", stats.TotalMembers)
	}
	if stats.ActiveMembers != 2 {
		t.Errorf("active members = %d, want 2", stats.ActiveMembers)
	}
	if stats.TotalTasks != 2 {
		t.Errorf("total tasks = %d, want 2", stats.TotalTasks)
	}
	if stats.CompletedTasksToday != 1 {
		t.Errorf("completed today = %d, want 1", stats.CompletedTasksToday)
	}
	if stats.TotalCreditsEarned != 4 {
		t.Errorf("credits earned = %d, want 4", stats.TotalCreditsEarned)
	}
}
