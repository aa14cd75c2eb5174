package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"evidence-hub/internal/models"
)

const userColumns = `id, username, password_hash, email, first_name, last_name, role,
	is_staff, is_superuser, is_active, profile_picture, date_joined`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Email,
		&user.FirstName, &user.LastName, &user.Role, &user.IsStaff, &user.IsSuperuser,
		&user.IsActive, &user.ProfilePicture, &user.DateJoined)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser inserts user and fills in its id. A taken username yields ErrDuplicate.
func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	if user.DateJoined.IsZero() {
		user.DateJoined = now()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	query := `INSERT INTO users (username, password_hash, email, first_name, last_name, role,
		is_staff, is_superuser, is_active, profile_picture, date_joined)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`
	err := db.queryRow(ctx, query, user.Username, user.PasswordHash, user.Email,
		user.FirstName, user.LastName, user.Role, user.IsStaff, user.IsSuperuser,
		user.IsActive, user.ProfilePicture, user.DateJoined).Scan(&user.ID)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create user %q: %w", user.Username, err)
	}
	return nil
}

// UpdateUser rewrites every mutable column of an existing account.
func (db *DB) UpdateUser(ctx context.Context, user *models.User) error {
	query := `UPDATE users SET password_hash = ?, email = ?, first_name = ?, last_name = ?,
		role = ?, is_staff = ?, is_superuser = ?, is_active = ?, profile_picture = ?
		WHERE id = ?`
	res, err := db.exec(ctx, query, user.PasswordHash, user.Email, user.FirstName,
		user.LastName, user.Role, user.IsStaff, user.IsSuperuser, user.IsActive,
		user.ProfilePicture, user.ID)
	if err != nil {
		return fmt.Errorf("update user %d: %w", user.ID, err)
	}
	return expectOne(res)
}

func (db *DB) SetProfilePicture(ctx context.Context, userID int, path string) error {
	res, err := db.exec(ctx, "UPDATE users SET profile_picture = ? WHERE id = ?", path, userID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(db.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username))
}

func (db *DB) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	return scanUser(db.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
}

func (db *DB) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int
	err := db.queryRow(ctx, "SELECT COUNT(*) FROM users WHERE LOWER(username) = LOWER(?)", username).Scan(&n)
	return n > 0, err
}

// ListUsers returns accounts newest first, optionally narrowed by a case-insensitive
// match on username, email or name.
func (db *DB) ListUsers(ctx context.Context, search string) ([]models.User, error) {
	query := "SELECT " + userColumns + " FROM users"
	var args []any
	if search != "" {
		p := db.likePattern(search)
		query += ` WHERE LOWER(username) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\'
			OR LOWER(first_name) LIKE ? ESCAPE '\' OR LOWER(last_name) LIKE ? ESCAPE '\'`
		args = append(args, p, p, p, p)
	}
	query += " ORDER BY date_joined DESC, id DESC"

	rows, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
