package server

import (
	"fmt"
	"log/slog"

	"github.com/mjimenez-dev/casita/internal/auth"
	"github.com/mjimenez-dev/casita/internal/model"
	"github.com/mjimenez-dev/casita/internal/store"
)

// EnsureSuperadmin provisions the first superadmin account from the
// bootstrap credentials. A fresh install has no account that could create
// one through the API, so this runs once at startup. It is a no-op when
// credentials are unset or a superadmin already exists.
func EnsureSuperadmin(users *store.UserStore, username, password string, logger *slog.Logger) error {
	if username == "" || password == "" {
		return nil
	}
	if len(password) < 6 {
		return fmt.Errorf("bootstrap password must be at least 6 characters")
	}

	exists, err := users.HasSuperadmin()
	if err != nil {
		return fmt.Errorf("check superadmin: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash bootstrap password: %w", err)
	}
	u, err := users.Create(username, hash, model.RoleSuperadmin, nil, "", "")
	if err != nil {
		return fmt.Errorf("create superadmin: %w", err)
	}

	logger.Info("bootstrap superadmin created", "username", u.Username, "user_id", u.ID)
	return nil
}
