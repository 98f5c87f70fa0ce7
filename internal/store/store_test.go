package store

import (
	"database/sql"
	"testing"

	"github.com/mjimenez-dev/casita/internal/database"
	"github.com/mjimenez-dev/casita/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedFamily(t *testing.T, db *sql.DB, name string) *model.Family {
	t.Helper()
	creator := seedUser(t, db, name+"-creator", model.RoleSuperadmin, nil)
	f, err := NewFamilyStore(db).Create(name, "", 10, "UTC", creator.ID)
	if err != nil {
		t.Fatalf("seed family %s: %v", name, err)
	}
	return f
}

func seedUser(t *testing.T, db *sql.DB, username, role string, familyID *int64) *model.User {
	t.Helper()
	u, err := NewUserStore(db).Create(username, "x", role, familyID, "", "")
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

func seedTask(t *testing.T, db *sql.DB, name, taskType string, credits int, familyID *int64) *model.Task {
	t.Helper()
	task, err := NewTaskStore(db).Create(name, "", credits, taskType, model.PeriodicityDaily, familyID)
	if err != nil {
		t.Fatalf("seed task %s: %v", name, err)
	}
	return task
}
