package services

import (
	"context"
	"testing"
	"time"
)

func TestChatQuota_Disabled(t *testing.T) {
	var nilQuota *ChatQuota
	if err := nilQuota.Allow(context.Background(), "user-1"); err != nil {
		t.Errorf("Expected nil quota to allow, got %v", err)
	}

	if err := NewChatQuota(nil, 10).Allow(context.Background(), "user-1"); err != nil {
		t.Errorf("Expected quota without Redis to allow, got %v", err)
	}
}

func TestChatQuota_Key(t *testing.T) {
	q := NewChatQuota(nil, 10)
	q.now = func() time.Time {
		return time.Date(2025, 3, 9, 23, 30, 0, 0, time.FixedZone("PST", -8*3600))
	}

	if got := q.quotaKey("user-1"); got != "chat:user-1:2025-03-10" {
		t.Errorf("Expected UTC day in key, got %s", got)
	}
}

func TestNextMidnightUTC(t *testing.T) {
	now := time.Date(2025, 12, 31, 18, 0, 0, 0, time.UTC)
	want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if got := nextMidnightUTC(now); !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
