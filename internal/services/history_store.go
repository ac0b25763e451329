package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"companion/internal/models"
)

// HistoryStore reads the four externally-owned history collections.
// Every method selects rows for one user, newest first, at most limit rows.
type HistoryStore interface {
	Name() string
	ListValueRatings(ctx context.Context, userID string, limit int) ([]models.ValueRating, error)
	ListGoals(ctx context.Context, userID string, limit int) ([]models.Goal, error)
	ListReflections(ctx context.Context, userID string, limit int) ([]models.DailyReflection, error)
	ListVisionItems(ctx context.Context, userID string, limit int) ([]models.VisionItem, error)
	Ping(ctx context.Context) error
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimeValue normalises the date representations returned by the
// different drivers (time.Time, []byte, ISO strings, plain dates)
func parseTimeValue(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t, nil
	case []byte:
		return parseTimeString(string(t))
	case string:
		return parseTimeString(t)
	default:
		return time.Time{}, fmt.Errorf("unsupported time value %T", v)
	}
}

func parseTimeString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time format %q", s)
}
