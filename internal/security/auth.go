package security

import (
	"context"
	"errors"

	"evidence-hub/internal/db"
	"evidence-hub/internal/models"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// dummyHash keeps the cost of a failed lookup close to a failed comparison.
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z7lFHTQ9vUyiaz3bXrPl9mKa"

// Authenticate returns the active account matching username and password.
func Authenticate(ctx context.Context, users UserLookup, username, password string) (*models.User, error) {
	user, err := users.GetUserByUsername(ctx, username)
	if errors.Is(err, db.ErrNotFound) {
		ComparePasswords(dummyHash, password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !ComparePasswords(user.PasswordHash, password) || !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
