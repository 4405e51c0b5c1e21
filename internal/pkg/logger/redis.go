package logger

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisLoggerHook struct{}

func NewRedisLogger() *RedisLoggerHook {
	return &RedisLoggerHook{}
}

// DialHook 记录建立连接失败
func (s *RedisLoggerHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		start := time.Now()
		conn, err := next(ctx, network, addr)
		if err != nil {
			log.ErrorContext(ctx, "Redis Dial Error",
				log.String("addr", addr),
				log.Duration("latency", time.Since(start)),
				log.Any("err", err),
			)
		}
		return conn, err
	}
}

// ProcessHook 单条命令：只记录错误与慢命令
func (s *RedisLoggerHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		elapsed := time.Since(start)

		cmdName := cmd.Name()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return err
			}
			if cmdName == "client" && strings.Contains(err.Error(), "setinfo") {
				return err
			}
			log.ErrorContext(ctx, "Redis Error", append(commandFields(cmd, elapsed), log.Any("err", err))...)
			return err
		}

		if elapsed > 100*time.Millisecond {
			log.WarnContext(ctx, "Redis Slow", commandFields(cmd, elapsed)...)
		}
		return nil
	}
}

// ProcessPipelineHook 统计上报走 pipeline，失败时打出第一条失败命令
func (s *RedisLoggerHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		elapsed := time.Since(start)

		if err != nil {
			fields := []any{
				log.Int("cmd_count", len(cmds)),
				log.Duration("latency", elapsed),
				log.Any("err", err),
			}
			for _, c := range cmds {
				if c.Err() != nil && !errors.Is(c.Err(), redis.Nil) {
					fields = append(fields, log.String("first_failed", c.Name()))
					break
				}
			}
			log.ErrorContext(ctx, "Redis Pipeline Error", fields...)
		} else if elapsed > 100*time.Millisecond {
			log.WarnContext(ctx, "Redis Pipeline Slow",
				log.Int("cmd_count", len(cmds)),
				log.Duration("latency", elapsed))
		}

		return err
	}
}

func commandFields(cmd redis.Cmder, elapsed time.Duration) []any {
	args := "[PROTECTED]"
	if name := cmd.Name(); name != "auth" && name != "hello" {
		args = fmt.Sprint(cmd.Args())
	}
	return []any{
		log.String("command", cmd.Name()),
		log.String("args", args),
		log.Duration("latency", elapsed),
	}
}
