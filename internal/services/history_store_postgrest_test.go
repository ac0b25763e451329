package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"companion/internal/models"
	"companion/pkg/auth"
)

func TestPostgRESTHistoryStore_Query(t *testing.T) {
	var gotQuery, gotAuth, gotAPIKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/user_goals" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotAPIKey = r.Header.Get("apikey")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"title":"Learn guitar","status":"active","created_at":"2025-03-02T10:00:00.123456+00:00"}]`))
	}))
	defer server.Close()

	store := NewPostgRESTHistoryStore(server.URL, "anon-key", "")
	ctx := auth.ContextWithToken(context.Background(), "user-token")

	goals, err := store.ListGoals(ctx, "user-1", 5)
	if err != nil {
		t.Fatalf("ListGoals failed: %v", err)
	}

	if len(goals) != 1 || goals[0].Title != "Learn guitar" || goals[0].Status != models.GoalStatusActive {
		t.Errorf("Unexpected goals: %+v", goals)
	}
	if goals[0].CreatedAt.IsZero() {
		t.Error("Expected created_at to be parsed")
	}

	want := "limit=5&order=created_at.desc&select=title%2Cstatus%2Ccreated_at&user_id=eq.user-1"
	if gotQuery != want {
		t.Errorf("Unexpected query:\n%s\nwant\n%s", gotQuery, want)
	}
	if gotAuth != "Bearer user-token" {
		t.Errorf("Expected caller token to be forwarded, got %q", gotAuth)
	}
	if gotAPIKey != "anon-key" {
		t.Errorf("Expected anon key, got %q", gotAPIKey)
	}
}

func TestPostgRESTHistoryStore_ServiceRole(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[{"mood":null,"accomplishment":"shipped","challenge":null,"reflection_date":"2025-03-02"}]`))
	}))
	defer server.Close()

	store := NewPostgRESTHistoryStore(server.URL, "anon-key", "service-key")
	ctx := auth.ContextWithToken(context.Background(), "user-token")

	reflections, err := store.ListReflections(ctx, "user-1", 3)
	if err != nil {
		t.Fatalf("ListReflections failed: %v", err)
	}
	if gotAuth != "Bearer service-key" {
		t.Errorf("Expected service role key, got %q", gotAuth)
	}
	if len(reflections) != 1 || reflections[0].Mood != "" || reflections[0].Accomplishment != "shipped" {
		t.Errorf("Unexpected reflections: %+v", reflections)
	}
}

func TestPostgRESTHistoryStore_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"JWT expired"}`))
	}))
	defer server.Close()

	store := NewPostgRESTHistoryStore(server.URL, "anon-key", "")

	if _, err := store.ListValueRatings(context.Background(), "user-1", 10); err == nil {
		t.Error("Expected error for non-200 response")
	}
}
