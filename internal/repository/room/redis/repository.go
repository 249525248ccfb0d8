package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type repo struct {
	rc     *redis.Client
	keyTTL time.Duration

	maxScoreScript        string
	monotonicUpdateScript string
}

// NewRepo loads the repo's Lua scripts once. keyTTL bounds the lifetime of
// every room-scoped key so abandoned rooms age out of Redis on their own.
func NewRepo(rc *redis.Client, keyTTL time.Duration) *repo {
	return &repo{
		rc:     rc,
		keyTTL: keyTTL,
		maxScoreScript: rc.ScriptLoad(context.Background(), `
			local maxScore = redis.call('ZREVRANGE', KEYS[1], 0, 0, 'WITHSCORES')
			local nextScore = 1
			if #maxScore > 0 then
				nextScore = tonumber(maxScore[2]) + 1
			end
			redis.call('ZADD', KEYS[1], nextScore, ARGV[1])
			return nextScore
		`).Val(),
		// Applies a partial hash update with updated_at forced strictly above
		// the stored value, even when the caller's clock did not move.
		monotonicUpdateScript: rc.ScriptLoad(context.Background(), `
			if redis.call('EXISTS', KEYS[1]) == 0 then
				return -1
			end
			local prev = tonumber(redis.call('HGET', KEYS[1], 'updated_at')) or 0
			local next = tonumber(ARGV[1])
			if next <= prev then
				next = prev + 1
			end
			for i = 2, #ARGV, 2 do
				redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
			end
			redis.call('HSET', KEYS[1], 'updated_at', next)
			return next
		`).Val(),
	}
}

func (r repo) addWithIncrement(ctx context.Context, c redis.Scripter, key string, value any) error {
	_, err := c.EvalSha(ctx, r.maxScoreScript, []string{key}, value).Result()
	return err
}
