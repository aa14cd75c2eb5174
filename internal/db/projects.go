package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"evidence-hub/internal/models"
	"go.uber.org/zap"
)

const projectColumns = `p.id, p.user_id, u.username, p.idea, p.file_type, p.file_path,
	p.link_url, p.description, p.file_name, p.file_size, COALESCE(p.public_id, ''),
	p.prediction_confidence, p.verdict, p.created_at`

const projectFrom = " FROM projects p JOIN users u ON u.id = p.user_id"

// ProjectFilter narrows project queries. Zero values mean "no restriction".
type ProjectFilter struct {
	UserID int
	// Search is matched case-insensitively against idea, public id and file name.
	Search string
	Since  time.Time
	Until  time.Time
}

func (f ProjectFilter) where(db *DB) (string, []any) {
	var clauses []string
	var args []any
	if f.UserID != 0 {
		clauses = append(clauses, "p.user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Search != "" {
		p := db.likePattern(f.Search)
		clauses = append(clauses, `(LOWER(p.idea) LIKE ? ESCAPE '\'
			OR LOWER(COALESCE(p.public_id, '')) LIKE ? ESCAPE '\'
			OR LOWER(p.file_name) LIKE ? ESCAPE '\')`)
		args = append(args, p, p, p)
	}
	if !f.Since.IsZero() {
		clauses = append(clauses, "p.created_at >= ?")
		args = append(args, f.Since.UTC())
	}
	if !f.Until.IsZero() {
		clauses = append(clauses, "p.created_at < ?")
		args = append(args, f.Until.UTC())
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// MonthRange returns the half-open UTC interval covering the given month.
func MonthRange(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func scanProject(row rowScanner) (*models.Project, error) {
	p := &models.Project{}
	err := row.Scan(&p.ID, &p.UserID, &p.Username, &p.Idea, &p.FileType, &p.FilePath,
		&p.LinkURL, &p.Description, &p.FileName, &p.FileSize, &p.PublicID,
		&p.PredictionConfidence, &p.Verdict, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CreateProject normalizes and inserts p, then assigns its public id from the new
// primary key. Both writes share one transaction.
func (db *DB) CreateProject(ctx context.Context, p *models.Project) error {
	p.Normalize()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insert := db.rebind(`INSERT INTO projects (user_id, idea, file_type, file_path, link_url,
		description, file_name, file_size, prediction_confidence, verdict, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err = tx.QueryRowContext(ctx, insert, p.UserID, p.Idea, p.FileType, p.FilePath,
		p.LinkURL, p.Description, p.FileName, p.FileSize, p.PredictionConfidence,
		p.Verdict, p.CreatedAt).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}

	publicID := models.PublicIDFor(p.ID)
	if _, err := tx.ExecContext(ctx, db.rebind("UPDATE projects SET public_id = ? WHERE id = ?"), publicID, p.ID); err != nil {
		return fmt.Errorf("assign public id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	p.PublicID = publicID

	db.log.Debug("project created", zap.Int("id", p.ID), zap.String("public_id", publicID))
	return nil
}

func (db *DB) GetProject(ctx context.Context, id int) (*models.Project, error) {
	return scanProject(db.queryRow(ctx, "SELECT "+projectColumns+projectFrom+" WHERE p.id = ?", id))
}

// ListProjects returns matching projects newest first.
func (db *DB) ListProjects(ctx context.Context, f ProjectFilter) ([]models.Project, error) {
	where, args := f.where(db)
	rows, err := db.query(ctx, "SELECT "+projectColumns+projectFrom+where+" ORDER BY p.created_at DESC, p.id DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// SearchProjects matches public id, idea, owner username and file name. It backs the
// admin project listing.
func (db *DB) SearchProjects(ctx context.Context, term string) ([]models.Project, error) {
	query := "SELECT " + projectColumns + projectFrom
	var args []any
	if term != "" {
		p := db.likePattern(term)
		query += ` WHERE LOWER(COALESCE(p.public_id, '')) LIKE ? ESCAPE '\'
			OR LOWER(p.idea) LIKE ? ESCAPE '\'
			OR LOWER(u.username) LIKE ? ESCAPE '\'
			OR LOWER(p.file_name) LIKE ? ESCAPE '\'`
		args = append(args, p, p, p, p)
	}
	query += " ORDER BY p.created_at DESC, p.id DESC"

	rows, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (db *DB) CountProjects(ctx context.Context, f ProjectFilter) (int, error) {
	where, args := f.where(db)
	var n int
	err := db.queryRow(ctx, "SELECT COUNT(*)"+projectFrom+where, args...).Scan(&n)
	return n, err
}

// AverageConfidence returns the mean confidence of matching projects; ok is false
// when nothing matches.
func (db *DB) AverageConfidence(ctx context.Context, f ProjectFilter) (avg float64, ok bool, err error) {
	where, args := f.where(db)
	var v sql.NullFloat64
	if err := db.queryRow(ctx, "SELECT AVG(p.prediction_confidence)"+projectFrom+where, args...).Scan(&v); err != nil {
		return 0, false, err
	}
	return v.Float64, v.Valid, nil
}

type IdeaStat struct {
	Idea          string
	AvgConfidence float64
	Total         int
}

// IdeaStats groups every project by idea, highest average confidence first.
func (db *DB) IdeaStats(ctx context.Context) ([]IdeaStat, error) {
	rows, err := db.query(ctx, `SELECT idea, AVG(prediction_confidence) AS avg_conf, COUNT(id)
		FROM projects GROUP BY idea ORDER BY avg_conf DESC, idea`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []IdeaStat
	for rows.Next() {
		var s IdeaStat
		if err := rows.Scan(&s.Idea, &s.AvgConfidence, &s.Total); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// DeleteProject removes exactly one project row; its statistics cascade.
func (db *DB) DeleteProject(ctx context.Context, id int) error {
	res, err := db.exec(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete project %d: %w", id, err)
	}
	return expectOne(res)
}
