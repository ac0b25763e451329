package services

import (
	"context"
	"database/sql"
	"fmt"

	"companion/internal/database"
	"companion/internal/models"
)

// SQLHistoryStore reads history rows from MySQL or SQLite
type SQLHistoryStore struct {
	db *database.DB
}

// NewSQLHistoryStore creates a new SQL-backed history store
func NewSQLHistoryStore(db *database.DB) *SQLHistoryStore {
	return &SQLHistoryStore{db: db}
}

// Name identifies the backend in logs and health output
func (s *SQLHistoryStore) Name() string {
	return s.db.Driver
}

// Ping checks database connectivity
func (s *SQLHistoryStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListValueRatings returns the user's most recent value ratings
func (s *SQLHistoryStore) ListValueRatings(ctx context.Context, userID string, limit int) ([]models.ValueRating, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT value_name, rating, assessment_date
		FROM user_values
		WHERE user_id = ?
		ORDER BY assessment_date DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query user_values: %w", err)
	}
	defer rows.Close()

	var values []models.ValueRating
	for rows.Next() {
		var v models.ValueRating
		var assessed interface{}
		if err := rows.Scan(&v.ValueName, &v.Rating, &assessed); err != nil {
			return nil, fmt.Errorf("failed to scan user_values row: %w", err)
		}
		if v.AssessmentDate, err = parseTimeValue(assessed); err != nil {
			return nil, fmt.Errorf("user_values.assessment_date: %w", err)
		}
		values = append(values, v)
	}

	return values, rows.Err()
}

// ListGoals returns the user's most recently created goals
func (s *SQLHistoryStore) ListGoals(ctx context.Context, userID string, limit int) ([]models.Goal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT title, status, created_at
		FROM user_goals
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query user_goals: %w", err)
	}
	defer rows.Close()

	var goals []models.Goal
	for rows.Next() {
		var g models.Goal
		var status string
		var created interface{}
		if err := rows.Scan(&g.Title, &status, &created); err != nil {
			return nil, fmt.Errorf("failed to scan user_goals row: %w", err)
		}
		g.Status = models.GoalStatus(status)
		if g.CreatedAt, err = parseTimeValue(created); err != nil {
			return nil, fmt.Errorf("user_goals.created_at: %w", err)
		}
		goals = append(goals, g)
	}

	return goals, rows.Err()
}

// ListReflections returns the user's most recent daily reflections
func (s *SQLHistoryStore) ListReflections(ctx context.Context, userID string, limit int) ([]models.DailyReflection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mood, accomplishment, challenge, reflection_date
		FROM daily_reflections
		WHERE user_id = ?
		ORDER BY reflection_date DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily_reflections: %w", err)
	}
	defer rows.Close()

	var reflections []models.DailyReflection
	for rows.Next() {
		var mood, accomplishment, challenge sql.NullString
		var reflected interface{}
		if err := rows.Scan(&mood, &accomplishment, &challenge, &reflected); err != nil {
			return nil, fmt.Errorf("failed to scan daily_reflections row: %w", err)
		}
		r := models.DailyReflection{
			Mood:           mood.String,
			Accomplishment: accomplishment.String,
			Challenge:      challenge.String,
		}
		if r.ReflectionDate, err = parseTimeValue(reflected); err != nil {
			return nil, fmt.Errorf("daily_reflections.reflection_date: %w", err)
		}
		reflections = append(reflections, r)
	}

	return reflections, rows.Err()
}

// ListVisionItems returns the user's most recently created vision board items
func (s *SQLHistoryStore) ListVisionItems(ctx context.Context, userID string, limit int) ([]models.VisionItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT title, status, created_at
		FROM vision_board_items
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query vision_board_items: %w", err)
	}
	defer rows.Close()

	var items []models.VisionItem
	for rows.Next() {
		var item models.VisionItem
		var status string
		var created interface{}
		if err := rows.Scan(&item.Title, &status, &created); err != nil {
			return nil, fmt.Errorf("failed to scan vision_board_items row: %w", err)
		}
		item.Status = models.VisionStatus(status)
		if item.CreatedAt, err = parseTimeValue(created); err != nil {
			return nil, fmt.Errorf("vision_board_items.created_at: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}
