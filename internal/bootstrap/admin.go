// Package bootstrap provisions the superuser configured under bootstrap_admin.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"evidence-hub/internal/config"
	"evidence-hub/internal/db"
	"evidence-hub/internal/models"
	"evidence-hub/internal/security"
	"go.uber.org/zap"
)

type Result string

const (
	Created Result = "created"
	Updated Result = "updated"
)

type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
}

// EnsureAdmin creates the configured superuser, or resets the password, name and
// privileges of an existing account with that username.
func EnsureAdmin(ctx context.Context, users UserStore, cfg *config.Bootstrap, log *zap.Logger) (Result, error) {
	if cfg == nil || cfg.Username == "" {
		return "", errors.New("bootstrap_admin.username is not configured")
	}
	if cfg.Password == "" {
		return "", errors.New("bootstrap_admin.password is not configured")
	}

	hash, err := security.HashPassword(cfg.Password)
	if err != nil {
		return "", err
	}

	user, err := users.GetUserByUsername(ctx, cfg.Username)
	switch {
	case errors.Is(err, db.ErrNotFound):
		user = &models.User{Username: cfg.Username, Email: cfg.Email}
	case err != nil:
		return "", fmt.Errorf("look up %q: %w", cfg.Username, err)
	}

	user.PasswordHash = hash
	user.FirstName = cfg.FirstName
	user.LastName = cfg.LastName
	user.Role = models.RoleAdmin
	user.IsStaff = true
	user.IsSuperuser = true
	user.IsActive = true

	if user.ID == 0 {
		if err := users.CreateUser(ctx, user); err != nil {
			return "", err
		}
		log.Info("created admin user", zap.String("username", user.Username))
		return Created, nil
	}
	if err := users.UpdateUser(ctx, user); err != nil {
		return "", err
	}
	log.Info("updated admin user", zap.String("username", user.Username),
		zap.Bool("is_staff", user.IsStaff), zap.Bool("is_superuser", user.IsSuperuser))
	return Updated, nil
}
