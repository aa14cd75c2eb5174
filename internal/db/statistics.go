package db

import (
	"context"
	"fmt"

	"evidence-hub/internal/models"
)

func (db *DB) CreateStatistic(ctx context.Context, s *models.Statistic) error {
	if s.RecordedAt.IsZero() {
		s.RecordedAt = now()
	}
	query := `INSERT INTO statistics (project_id, metric_name, metric_value, recorded_at, notes)
		VALUES (?, ?, ?, ?, ?) RETURNING id`
	err := db.queryRow(ctx, query, s.ProjectID, s.MetricName, s.MetricValue, s.RecordedAt, s.Notes).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("create statistic: %w", err)
	}
	return nil
}

// ListStatistics returns statistics newest first. A non-zero projectID limits the
// result to one project.
func (db *DB) ListStatistics(ctx context.Context, projectID int) ([]models.Statistic, error) {
	query := `SELECT s.id, s.project_id, p.idea, s.metric_name, s.metric_value, s.recorded_at, s.notes
		FROM statistics s JOIN projects p ON p.id = s.project_id`
	var args []any
	if projectID != 0 {
		query += " WHERE s.project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY s.recorded_at DESC, s.id DESC"

	rows, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []models.Statistic
	for rows.Next() {
		var s models.Statistic
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.ProjectIdea, &s.MetricName, &s.MetricValue, &s.RecordedAt, &s.Notes); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
