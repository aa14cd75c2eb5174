package db

import (
	"context"
	"fmt"

	"evidence-hub/internal/models"
)

// RecordLogin appends one login event. Events are never updated.
func (db *DB) RecordLogin(ctx context.Context, e *models.LoginEvent) error {
	if e.LoginTime.IsZero() {
		e.LoginTime = now()
	}
	query := `INSERT INTO login_events (user_id, login_time, ip_address, user_agent)
		VALUES (?, ?, ?, ?) RETURNING id`
	if err := db.queryRow(ctx, query, e.UserID, e.LoginTime, e.IPAddress, e.UserAgent).Scan(&e.ID); err != nil {
		return fmt.Errorf("record login for user %d: %w", e.UserID, err)
	}
	return nil
}

// ListLogins returns the newest login events first. search matches username or IP
// address; limit <= 0 means no limit.
func (db *DB) ListLogins(ctx context.Context, search string, limit int) ([]models.LoginEvent, error) {
	query := `SELECT l.id, l.user_id, u.username, l.login_time, l.ip_address, l.user_agent
		FROM login_events l JOIN users u ON u.id = l.user_id`
	var args []any
	if search != "" {
		p := db.likePattern(search)
		query += ` WHERE LOWER(u.username) LIKE ? ESCAPE '\' OR LOWER(l.ip_address) LIKE ? ESCAPE '\'`
		args = append(args, p, p)
	}
	query += " ORDER BY l.login_time DESC, l.id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.LoginEvent
	for rows.Next() {
		var e models.LoginEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.Username, &e.LoginTime, &e.IPAddress, &e.UserAgent); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
