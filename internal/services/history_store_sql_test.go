package services

import (
	"context"
	"fmt"
	"testing"

	"companion/internal/database"
	"companion/internal/models"
)

func setupSQLStore(t *testing.T) (*SQLHistoryStore, *database.DB) {
	t.Helper()

	db, err := database.New("sqlite://:memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	return NewSQLHistoryStore(db), db
}

func mustExec(t *testing.T, db *database.DB, query string, args ...interface{}) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("Failed to seed data: %v", err)
	}
}

func TestSQLHistoryStore_ValueRatings(t *testing.T) {
	store, db := setupSQLStore(t)
	ctx := context.Background()

	for day := 1; day <= 12; day++ {
		mustExec(t, db, `INSERT INTO user_values (user_id, value_name, rating, assessment_date) VALUES (?, ?, ?, ?)`,
			"user-1", fmt.Sprintf("Value %02d", day), day%5+1, fmt.Sprintf("2025-01-%02d 09:00:00", day))
	}
	mustExec(t, db, `INSERT INTO user_values (user_id, value_name, rating, assessment_date) VALUES (?, ?, ?, ?)`,
		"user-2", "Other", 5, "2025-02-01 09:00:00")

	values, err := store.ListValueRatings(ctx, "user-1", models.SourceValues.Limit())
	if err != nil {
		t.Fatalf("ListValueRatings failed: %v", err)
	}

	if len(values) != 10 {
		t.Fatalf("Expected 10 rows, got %d", len(values))
	}
	if values[0].ValueName != "Value 12" {
		t.Errorf("Expected newest first, got %s", values[0].ValueName)
	}
	if values[0].AssessmentDate.Day() != 12 {
		t.Errorf("Expected assessment date to be parsed, got %v", values[0].AssessmentDate)
	}
	for _, v := range values {
		if v.ValueName == "Other" {
			t.Error("Expected rows of other users to be excluded")
		}
	}
}

func TestSQLHistoryStore_GoalsAndVisions(t *testing.T) {
	store, db := setupSQLStore(t)
	ctx := context.Background()

	mustExec(t, db, `INSERT INTO user_goals (user_id, title, status, created_at) VALUES (?, ?, ?, ?)`,
		"user-1", "Learn guitar", "active", "2025-03-02 10:00:00")
	mustExec(t, db, `INSERT INTO user_goals (user_id, title, status, created_at) VALUES (?, ?, ?, ?)`,
		"user-1", "Run 5k", "completed", "2025-03-01 10:00:00")
	mustExec(t, db, `INSERT INTO vision_board_items (user_id, title, status, created_at) VALUES (?, ?, ?, ?)`,
		"user-1", "Cabin by the lake", "active", "2025-03-01 10:00:00")

	goals, err := store.ListGoals(ctx, "user-1", models.SourceGoals.Limit())
	if err != nil {
		t.Fatalf("ListGoals failed: %v", err)
	}
	if len(goals) != 2 || goals[0].Title != "Learn guitar" || goals[0].Status != models.GoalStatusActive {
		t.Errorf("Unexpected goals: %+v", goals)
	}

	visions, err := store.ListVisionItems(ctx, "user-1", models.SourceVisions.Limit())
	if err != nil {
		t.Fatalf("ListVisionItems failed: %v", err)
	}
	if len(visions) != 1 || visions[0].Status != models.VisionStatusActive {
		t.Errorf("Unexpected visions: %+v", visions)
	}
}

func TestSQLHistoryStore_Reflections(t *testing.T) {
	store, db := setupSQLStore(t)
	ctx := context.Background()

	mustExec(t, db, `INSERT INTO daily_reflections (user_id, mood, accomplishment, challenge, reflection_date) VALUES (?, ?, NULL, ?, ?)`,
		"user-1", "hopeful", "time", "2025-03-03 21:00:00")
	mustExec(t, db, `INSERT INTO daily_reflections (user_id, mood, accomplishment, challenge, reflection_date) VALUES (?, ?, ?, NULL, ?)`,
		"user-1", "tired", "shipped", "2025-03-02 21:00:00")

	reflections, err := store.ListReflections(ctx, "user-1", models.SourceReflections.Limit())
	if err != nil {
		t.Fatalf("ListReflections failed: %v", err)
	}
	if len(reflections) != 2 {
		t.Fatalf("Expected 2 reflections, got %d", len(reflections))
	}
	if reflections[0].Mood != "hopeful" || reflections[0].Accomplishment != "" {
		t.Errorf("Unexpected latest reflection: %+v", reflections[0])
	}
}

func TestSQLHistoryStore_Unavailable(t *testing.T) {
	store, db := setupSQLStore(t)
	db.Close()

	if _, err := store.ListGoals(context.Background(), "user-1", 5); err == nil {
		t.Error("Expected error from closed database")
	}
	if err := store.Ping(context.Background()); err == nil {
		t.Error("Expected ping to fail on closed database")
	}
}
