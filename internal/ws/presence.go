package ws

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Presence tracks which users hold an open channel per request, backed by a
// redis set with a TTL so crashed instances do not leak members forever.
type Presence struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPresence wraps a redis client. A nil client disables presence tracking.
func NewPresence(rdb *redis.Client, ttl time.Duration) *Presence {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Presence{rdb: rdb, ttl: ttl}
}

func presenceKey(requestID int) string {
	return fmt.Sprintf("request:%d:members", requestID)
}

// Join adds a user to the request's member set.
func (p *Presence) Join(ctx context.Context, requestID, userID int) error {
	if p == nil || p.rdb == nil {
		return nil
	}
	key := presenceKey(requestID)
	pipe := p.rdb.Pipeline()
	pipe.SAdd(ctx, key, userID)
	pipe.Expire(ctx, key, p.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Leave removes a user from the request's member set.
func (p *Presence) Leave(ctx context.Context, requestID, userID int) error {
	if p == nil || p.rdb == nil {
		return nil
	}
	return p.rdb.SRem(ctx, presenceKey(requestID), userID).Err()
}

// Members lists the user ids currently connected to the request channel.
func (p *Presence) Members(ctx context.Context, requestID int) ([]int, error) {
	if p == nil || p.rdb == nil {
		return []int{}, nil
	}
	raw, err := p.rdb.SMembers(ctx, presenceKey(requestID)).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(raw))
	for _, member := range raw {
		id, err := strconv.Atoi(member)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
