package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	presenceKeyFmt = "presence:%s"
	// DefaultPresenceTTL is how long a user counts as online after their last
	// authenticated request.
	DefaultPresenceTTL = 5 * time.Minute
)

// Presence records recently active users in Redis for the admin dashboard.
// It has no say in whether a token is accepted. A nil *Presence is a valid
// no-op tracker.
type Presence struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPresence(rdb *redis.Client, ttl time.Duration) *Presence {
	if rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultPresenceTTL
	}
	return &Presence{rdb: rdb, ttl: ttl}
}

func (p *Presence) Touch(ctx context.Context, userID string) error {
	if p == nil {
		return nil
	}
	return p.rdb.Set(ctx, fmt.Sprintf(presenceKeyFmt, userID), time.Now().Unix(), p.ttl).Err()
}

func (p *Presence) Remove(ctx context.Context, userID string) error {
	if p == nil {
		return nil
	}
	return p.rdb.Del(ctx, fmt.Sprintf(presenceKeyFmt, userID)).Err()
}

// OnlineCount returns the number of unique users seen within the TTL.
func (p *Presence) OnlineCount(ctx context.Context) (int, error) {
	if p == nil {
		return 0, nil
	}
	var cursor uint64
	userIDs := make(map[string]struct{})
	for {
		keys, next, err := p.rdb.Scan(ctx, cursor, "presence:*", 100).Result()
		if err != nil {
			return 0, err
		}
		for _, key := range keys {
			if id, ok := strings.CutPrefix(key, "presence:"); ok && id != "" {
				userIDs[id] = struct{}{}
			}
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	return len(userIDs), nil
}
