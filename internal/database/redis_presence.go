package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"livechat/internal/models"
)

const (
	presenceSeenKey  = "chat:presence:seen"
	presenceUsersKey = "chat:presence:users"
)

// RedisPresence keeps presence in a sorted set scored by last-seen time,
// with the user details in a hash. Entries older than ttl are pruned on
// List.
type RedisPresence struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewRedisPresence(rdb *redis.Client, ttl time.Duration) *RedisPresence {
	return &RedisPresence{rdb: rdb, ttl: ttl, now: time.Now}
}

func (p *RedisPresence) Close() error {
	return p.rdb.Close()
}

func (p *RedisPresence) Touch(ctx context.Context, entry models.PresenceEntry, roomID string) error {
	if roomID == "" {
		prev, err := p.record(ctx, entry.UserID)
		if err != nil {
			return err
		}
		roomID = prev.RoomID
	}

	now := p.now()
	b, err := json.Marshal(PresenceRecord{PresenceEntry: entry, RoomID: roomID, LastSeen: now})
	if err != nil {
		return err
	}

	pipe := p.rdb.TxPipeline()
	pipe.ZAdd(ctx, presenceSeenKey, redis.Z{Score: float64(now.UnixMilli()), Member: entry.UserID})
	pipe.HSet(ctx, presenceUsersKey, entry.UserID, b)
	_, err = pipe.Exec(ctx)
	return err
}

func (p *RedisPresence) Remove(ctx context.Context, userID string) error {
	pipe := p.rdb.TxPipeline()
	pipe.ZRem(ctx, presenceSeenKey, userID)
	pipe.HDel(ctx, presenceUsersKey, userID)
	_, err := pipe.Exec(ctx)
	return err
}

func (p *RedisPresence) List(ctx context.Context) ([]PresenceRecord, error) {
	cutoff := strconv.FormatInt(p.now().Add(-p.ttl).UnixMilli(), 10)

	expired, err := p.rdb.ZRangeByScore(ctx, presenceSeenKey, &redis.ZRangeBy{Min: "-inf", Max: "(" + cutoff}).Result()
	if err != nil {
		return nil, fmt.Errorf("list expired presence: %w", err)
	}
	if len(expired) > 0 {
		pipe := p.rdb.TxPipeline()
		pipe.ZRem(ctx, presenceSeenKey, toAny(expired)...)
		pipe.HDel(ctx, presenceUsersKey, expired...)
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("prune presence: %w", err)
		}
	}

	ids, err := p.rdb.ZRange(ctx, presenceSeenKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []PresenceRecord{}, nil
	}

	vals, err := p.rdb.HMGet(ctx, presenceUsersKey, ids...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]PresenceRecord, 0, len(vals))
	for _, val := range vals {
		s, ok := val.(string)
		if !ok {
			continue
		}
		var r PresenceRecord
		if json.Unmarshal([]byte(s), &r) == nil {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (p *RedisPresence) record(ctx context.Context, userID string) (PresenceRecord, error) {
	b, err := p.rdb.HGet(ctx, presenceUsersKey, userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return PresenceRecord{}, nil
	}
	if err != nil {
		return PresenceRecord{}, err
	}
	var r PresenceRecord
	if err := json.Unmarshal(b, &r); err != nil {
		return PresenceRecord{}, nil
	}
	return r, nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
