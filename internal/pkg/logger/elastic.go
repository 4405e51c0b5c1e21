package logger

import (
	log "log/slog"
	"net/http"
	"time"
)

// ESTransport 记录 ES 请求。索引文档里是聊天正文，只记方法、路径、状态和耗时，不记 body
type ESTransport struct {
	Transport http.RoundTripper
}

func (t *ESTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.Transport.RoundTrip(req)
	elapsed := time.Since(start)

	fields := []any{
		log.String("method", req.Method),
		log.String("path", req.URL.Path),
		log.Duration("latency", elapsed),
	}

	if err != nil {
		log.ErrorContext(req.Context(), "ES_QUERY_ERROR", append(fields, log.Any("err", err))...)
		return nil, err
	}

	fields = append(fields, log.Int("status", resp.StatusCode))
	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		log.ErrorContext(req.Context(), "ES_QUERY_FAILED", fields...)
	case elapsed > 500*time.Millisecond:
		log.WarnContext(req.Context(), "ES_QUERY_SLOW", fields...)
	default:
		log.DebugContext(req.Context(), "ES_QUERY", fields...)
	}

	return resp, nil
}
