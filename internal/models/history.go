package models

import (
	"time"
)

// GoalStatus is the lifecycle state of a user goal
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusPaused    GoalStatus = "paused"
)

// VisionStatus is the lifecycle state of a vision board item
type VisionStatus string

const (
	VisionStatusActive   VisionStatus = "active"
	VisionStatusAchieved VisionStatus = "achieved"
	VisionStatusPaused   VisionStatus = "paused"
)

// ValueRating is one row of a user's values assessment (user_values)
type ValueRating struct {
	ValueName      string    `bson:"value_name" json:"value_name"`
	Rating         int       `bson:"rating" json:"rating"` // 1-5
	AssessmentDate time.Time `bson:"assessment_date" json:"assessment_date"`
}

// Goal is one row of user_goals
type Goal struct {
	Title     string     `bson:"title" json:"title"`
	Status    GoalStatus `bson:"status" json:"status"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
}

// DailyReflection is one row of daily_reflections.
// Empty strings mean the user left the field blank.
type DailyReflection struct {
	Mood           string    `bson:"mood,omitempty" json:"mood,omitempty"`
	Accomplishment string    `bson:"accomplishment,omitempty" json:"accomplishment,omitempty"`
	Challenge      string    `bson:"challenge,omitempty" json:"challenge,omitempty"`
	ReflectionDate time.Time `bson:"reflection_date" json:"reflection_date"`
}

// VisionItem is one row of vision_board_items
type VisionItem struct {
	Title     string       `bson:"title" json:"title"`
	Status    VisionStatus `bson:"status" json:"status"`
	CreatedAt time.Time    `bson:"created_at" json:"created_at"`
}

// HistorySource names one of the four read-only history collections
type HistorySource string

const (
	SourceValues      HistorySource = "values"
	SourceGoals       HistorySource = "goals"
	SourceReflections HistorySource = "reflections"
	SourceVisions     HistorySource = "visions"
)

// Table returns the backing table / collection name of the source
func (s HistorySource) Table() string {
	switch s {
	case SourceValues:
		return "user_values"
	case SourceGoals:
		return "user_goals"
	case SourceReflections:
		return "daily_reflections"
	case SourceVisions:
		return "vision_board_items"
	default:
		return ""
	}
}

// RecencyColumn returns the column each source is ordered by
func (s HistorySource) RecencyColumn() string {
	switch s {
	case SourceValues:
		return "assessment_date"
	case SourceReflections:
		return "reflection_date"
	default:
		return "created_at"
	}
}

// Limit returns how many most-recent rows are read per request
func (s HistorySource) Limit() int {
	switch s {
	case SourceValues:
		return 10
	case SourceGoals:
		return 5
	case SourceReflections:
		return 3
	case SourceVisions:
		return 5
	default:
		return 0
	}
}

// SourceState tags the outcome of reading a single history source
type SourceState string

const (
	SourceOK          SourceState = "ok"
	SourceEmpty       SourceState = "empty"
	SourceUnavailable SourceState = "unavailable"
)

// SourceResult is the tagged result of one history read
type SourceResult[T any] struct {
	State SourceState
	Rows  []T
	Err   error // set only when State == SourceUnavailable
}

// NewSourceResult tags rows (or an error) with the matching state
func NewSourceResult[T any](rows []T, err error) SourceResult[T] {
	if err != nil {
		return SourceResult[T]{State: SourceUnavailable, Err: err}
	}
	if len(rows) == 0 {
		return SourceResult[T]{State: SourceEmpty}
	}
	return SourceResult[T]{State: SourceOK, Rows: rows}
}

// UserInsights bundles the four history reads for one request
type UserInsights struct {
	Values      SourceResult[ValueRating]
	Goals       SourceResult[Goal]
	Reflections SourceResult[DailyReflection]
	Visions     SourceResult[VisionItem]
}

// ContextSummary is the bounded natural-language digest of a user's history
type ContextSummary struct {
	HasData bool
	Text    string
}
