package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"companion/internal/models"
	"companion/pkg/auth"
)

// PostgRESTHistoryStore reads history rows through the Supabase REST API
// (GET {baseURL}/rest/v1/{table}?user_id=eq.X&order=col.desc&limit=N).
// With a service role key it reads as the service; otherwise it forwards the
// caller's bearer token so row-level security applies.
type PostgRESTHistoryStore struct {
	baseURL        string
	anonKey        string
	serviceRoleKey string
	httpClient     *http.Client
}

// NewPostgRESTHistoryStore creates a new REST-backed history store
func NewPostgRESTHistoryStore(baseURL, anonKey, serviceRoleKey string) *PostgRESTHistoryStore {
	return &PostgRESTHistoryStore{
		baseURL:        baseURL,
		anonKey:        anonKey,
		serviceRoleKey: serviceRoleKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name identifies the backend in logs and health output
func (s *PostgRESTHistoryStore) Name() string {
	return "postgrest"
}

// Ping checks that the REST endpoint answers
func (s *PostgRESTHistoryStore) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/rest/v1/", nil)
	if err != nil {
		return err
	}
	s.setAuthHeaders(ctx, req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("postgrest unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("postgrest returned %d", resp.StatusCode)
	}
	return nil
}

func (s *PostgRESTHistoryStore) setAuthHeaders(ctx context.Context, req *http.Request) {
	apiKey := s.anonKey
	bearer := auth.TokenFromContext(ctx)
	if s.serviceRoleKey != "" {
		apiKey = s.serviceRoleKey
		bearer = s.serviceRoleKey
	}
	if apiKey != "" {
		req.Header.Set("apikey", apiKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	req.Header.Set("Accept", "application/json")
}

func (s *PostgRESTHistoryStore) selectRecent(ctx context.Context, table, columns, recencyColumn, userID string, limit int, out interface{}) error {
	query := url.Values{}
	query.Set("select", columns)
	query.Set("user_id", "eq."+userID)
	query.Set("order", recencyColumn+".desc")
	query.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", s.baseURL, table, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", table, err)
	}
	s.setAuthHeaders(ctx, req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", table, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s query returned %d: %s", table, resp.StatusCode, truncateString(string(body), 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s rows: %w", table, err)
	}
	return nil
}

// ListValueRatings returns the user's most recent value ratings
func (s *PostgRESTHistoryStore) ListValueRatings(ctx context.Context, userID string, limit int) ([]models.ValueRating, error) {
	var rows []struct {
		ValueName      string `json:"value_name"`
		Rating         int    `json:"rating"`
		AssessmentDate string `json:"assessment_date"`
	}
	if err := s.selectRecent(ctx, "user_values", "value_name,rating,assessment_date", "assessment_date", userID, limit, &rows); err != nil {
		return nil, err
	}

	values := make([]models.ValueRating, 0, len(rows))
	for _, row := range rows {
		assessed, err := parseTimeString(row.AssessmentDate)
		if err != nil {
			return nil, fmt.Errorf("user_values.assessment_date: %w", err)
		}
		values = append(values, models.ValueRating{
			ValueName:      row.ValueName,
			Rating:         row.Rating,
			AssessmentDate: assessed,
		})
	}
	return values, nil
}

// ListGoals returns the user's most recently created goals
func (s *PostgRESTHistoryStore) ListGoals(ctx context.Context, userID string, limit int) ([]models.Goal, error) {
	var rows []struct {
		Title     string `json:"title"`
		Status    string `json:"status"`
		CreatedAt string `json:"created_at"`
	}
	if err := s.selectRecent(ctx, "user_goals", "title,status,created_at", "created_at", userID, limit, &rows); err != nil {
		return nil, err
	}

	goals := make([]models.Goal, 0, len(rows))
	for _, row := range rows {
		created, err := parseTimeString(row.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("user_goals.created_at: %w", err)
		}
		goals = append(goals, models.Goal{
			Title:     row.Title,
			Status:    models.GoalStatus(row.Status),
			CreatedAt: created,
		})
	}
	return goals, nil
}

// ListReflections returns the user's most recent daily reflections
func (s *PostgRESTHistoryStore) ListReflections(ctx context.Context, userID string, limit int) ([]models.DailyReflection, error) {
	var rows []struct {
		Mood           *string `json:"mood"`
		Accomplishment *string `json:"accomplishment"`
		Challenge      *string `json:"challenge"`
		ReflectionDate string  `json:"reflection_date"`
	}
	if err := s.selectRecent(ctx, "daily_reflections", "mood,accomplishment,challenge,reflection_date", "reflection_date", userID, limit, &rows); err != nil {
		return nil, err
	}

	reflections := make([]models.DailyReflection, 0, len(rows))
	for _, row := range rows {
		reflected, err := parseTimeString(row.ReflectionDate)
		if err != nil {
			return nil, fmt.Errorf("daily_reflections.reflection_date: %w", err)
		}
		reflections = append(reflections, models.DailyReflection{
			Mood:           derefString(row.Mood),
			Accomplishment: derefString(row.Accomplishment),
			Challenge:      derefString(row.Challenge),
			ReflectionDate: reflected,
		})
	}
	return reflections, nil
}

// ListVisionItems returns the user's most recently created vision board items
func (s *PostgRESTHistoryStore) ListVisionItems(ctx context.Context, userID string, limit int) ([]models.VisionItem, error) {
	var rows []struct {
		Title     string `json:"title"`
		Status    string `json:"status"`
		CreatedAt string `json:"created_at"`
	}
	if err := s.selectRecent(ctx, "vision_board_items", "title,status,created_at", "created_at", userID, limit, &rows); err != nil {
		return nil, err
	}

	items := make([]models.VisionItem, 0, len(rows))
	for _, row := range rows {
		created, err := parseTimeString(row.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("vision_board_items.created_at: %w", err)
		}
		items = append(items, models.VisionItem{
			Title:     row.Title,
			Status:    models.VisionStatus(row.Status),
			CreatedAt: created,
		})
	}
	return items, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
