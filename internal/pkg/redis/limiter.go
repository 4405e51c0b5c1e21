package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// 固定窗口：INCR 与 EXPIRE 原子执行，首次访问时设置窗口
const fixedWindowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
	return 0
end
return 1
`

var fixedWindow = redis.NewScript(fixedWindowScript)

// FixedWindowLimiter 基于 Redis 的固定窗口计数限流
type FixedWindowLimiter struct {
	rdb *redis.Client
}

func NewFixedWindowLimiter(rdb *redis.Client) *FixedWindowLimiter {
	return &FixedWindowLimiter{rdb: rdb}
}

// Allow limit <= 0 视为不限流
func (s *FixedWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	seconds := int(window.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	result, err := fixedWindow.Run(ctx, s.rdb, []string{key}, limit, seconds).Int()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}
