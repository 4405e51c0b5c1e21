package logger

import (
	"context"
	log "log/slog"
	"regexp"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/event"
)

const maxLoggedCommand = 1000

// 聊天正文、图片 data URI、访客邮箱不落日志
var sensitiveFieldPattern = regexp.MustCompile(`"(text|last_message|customer_email|owner_email|members)"\s*:\s*("(\\.|[^"\\])*"|\[[^\]]*\])`)

func redactCommand(cmd string) string {
	cmd = sensitiveFieldPattern.ReplaceAllString(cmd, `"$1":"[REDACTED]"`)
	if len(cmd) > maxLoggedCommand {
		cmd = cmd[:maxLoggedCommand] + "...[truncated]"
	}
	return cmd
}

func NewMongoMonitor() *event.CommandMonitor {
	return &event.CommandMonitor{
		Started: func(ctx context.Context, evt *event.CommandStartedEvent) {
			log.DebugContext(ctx, "MongoDB Started",
				log.String("command", evt.CommandName),
				log.String("database", evt.DatabaseName),
				log.String("request_id", strconv.FormatInt(evt.RequestID, 10)),
				log.String("cmd_detail", redactCommand(evt.Command.String())),
			)
		},
		Succeeded: func(ctx context.Context, evt *event.CommandSucceededEvent) {
			fields := []any{
				log.String("command", evt.CommandName),
				log.Duration("latency", evt.Duration),
				log.String("request_id", strconv.FormatInt(evt.RequestID, 10)),
			}

			if evt.Duration > 200*time.Millisecond {
				log.WarnContext(ctx, "MongoDB Slow", fields...)
			}
		},
		Failed: func(ctx context.Context, evt *event.CommandFailedEvent) {
			log.ErrorContext(ctx, "MongoDB Error",
				log.String("command", evt.CommandName),
				log.Duration("latency", evt.Duration),
				log.String("request_id", strconv.FormatInt(evt.RequestID, 10)),
				log.Any("err", evt.Failure),
			)
		},
	}
}
