package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrQuotaExceeded is returned when a user has used up today's chat allowance
var ErrQuotaExceeded = errors.New("daily chat limit exceeded")

// ChatQuota counts chat requests per user per UTC day in Redis
type ChatQuota struct {
	redis      *redis.Client
	dailyLimit int64
	now        func() time.Time
}

// NewChatQuota creates a quota of dailyLimit chats per user per day
func NewChatQuota(client *redis.Client, dailyLimit int) *ChatQuota {
	return &ChatQuota{
		redis:      client,
		dailyLimit: int64(dailyLimit),
		now:        time.Now,
	}
}

// quotaKey is chat:<user>:<yyyy-mm-dd>
func (q *ChatQuota) quotaKey(userID string) string {
	return fmt.Sprintf("chat:%s:%s", userID, q.now().UTC().Format("2006-01-02"))
}

// Allow increments today's counter and rejects the request once the limit is
// passed. Redis failures allow the request.
func (q *ChatQuota) Allow(ctx context.Context, userID string) error {
	if q == nil || q.redis == nil || q.dailyLimit <= 0 {
		return nil
	}

	key := q.quotaKey(userID)

	pipe := q.redis.Pipeline()
	incr := pipe.Incr(ctx, key)
	// Keep the counter one extra day for inspection
	pipe.Expire(ctx, key, time.Until(nextMidnightUTC(q.now()))+24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("⚠️  Failed to update chat quota for %s: %v", userID, err)
		return nil
	}

	if incr.Val() > q.dailyLimit {
		return fmt.Errorf("%w (%d per day)", ErrQuotaExceeded, q.dailyLimit)
	}
	return nil
}

func nextMidnightUTC(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
}
