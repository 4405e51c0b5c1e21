package service

import (
	"Helpdock/internal/api/dto"
	"Helpdock/internal/pkg/consts"
	"Helpdock/internal/pkg/util"
	"context"
	"errors"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mssola/useragent"
	goredis "github.com/redis/go-redis/v9"
)

// 上报事件类型
const (
	TrackPageview   = "pageview"
	TrackSessionEnd = "session_end"
	TrackVitals     = "vitals"
)

// perDayRankDepth 每天参与排行合并的条数上限
const perDayRankDepth = 100

type AnalyticsService interface {
	// Track 一个事件的所有写入走同一个 pipeline
	Track(ctx context.Context, req *dto.TrackReq, tc dto.TrackContext) error
	// Rollup 以今天结尾的 days 天
	Rollup(ctx context.Context, workspaceID string, days int) (*dto.AnalyticsRollup, error)
}

type analyticsServiceImpl struct {
	rdb        *goredis.Client
	retention  time.Duration
	windowDays int
	now        func() time.Time
}

func NewAnalyticsService(rdb *goredis.Client, retention time.Duration, windowDays int) AnalyticsService {
	if windowDays <= 0 {
		windowDays = 7
	}
	return &analyticsServiceImpl{
		rdb:        rdb,
		retention:  retention,
		windowDays: windowDays,
		now:        time.Now,
	}
}

func analyticsKey(workspaceID, day, metric string) string {
	return consts.AnalyticsKey + workspaceID + ":" + day + ":" + metric
}

func (s *analyticsServiceImpl) Track(ctx context.Context, req *dto.TrackReq, tc dto.TrackContext) error {
	if req.WebsiteID == "" || req.Type == "" {
		return ErrParamInvalid
	}
	day := util.DayKey(s.now())
	key := func(metric string) string { return analyticsKey(req.WebsiteID, day, metric) }
	p := req.Payload

	var touched []string
	pipe := s.rdb.Pipeline()
	switch req.Type {
	case TrackPageview:
		pipe.Incr(ctx, key("pageviews"))
		touched = append(touched, key("pageviews"))
		if p.SessionID != "" {
			pipe.PFAdd(ctx, key("visitors"), p.SessionID)
			touched = append(touched, key("visitors"))
		}
		if p.URL != "" {
			pipe.ZIncrBy(ctx, key("urls"), 1, p.URL)
			touched = append(touched, key("urls"))
		}
		// 解析失败直接忽略，其余维度照常记录
		if host := referrerHost(p.Referrer); host != "" {
			pipe.ZIncrBy(ctx, key("referrers"), 1, host)
			touched = append(touched, key("referrers"))
		}

		agent := p.UserAgent
		if agent == "" {
			agent = tc.UserAgent
		}
		device, browser, os := ParseUserAgent(agent)
		country := consts.UnknownBucket
		if c := firstNonEmpty(p.Country, tc.Country); c != "" {
			country = strings.ToUpper(c)
		}
		pipe.HIncrBy(ctx, key("devices"), device, 1)
		pipe.HIncrBy(ctx, key("browsers"), browser, 1)
		pipe.HIncrBy(ctx, key("os"), os, 1)
		pipe.HIncrBy(ctx, key("countries"), country, 1)
		touched = append(touched, key("devices"), key("browsers"), key("os"), key("countries"))

	case TrackSessionEnd:
		if p.Duration == nil {
			return nil
		}
		pipe.IncrBy(ctx, key("duration_sum"), roundNonNegative(*p.Duration))
		pipe.Incr(ctx, key("duration_count"))
		touched = append(touched, key("duration_sum"), key("duration_count"))

	case TrackVitals:
		metric := sanitizeMetric(p.Metric)
		if metric == "" || p.Value == nil {
			return nil
		}
		prefix := "vitals:" + metric + ":"
		pipe.IncrBy(ctx, key(prefix+"sum"), roundNonNegative(*p.Value))
		pipe.Incr(ctx, key(prefix+"count"))
		touched = append(touched, key(prefix+"sum"), key(prefix+"count"))
		if rating := sanitizeMetric(p.Rating); rating != "" {
			pipe.HIncrBy(ctx, key(prefix+"ratings"), rating, 1)
			touched = append(touched, key(prefix+"ratings"))
		}

	default:
		return ErrParamInvalid
	}

	if s.retention > 0 {
		for _, k := range touched {
			pipe.Expire(ctx, k, s.retention)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

type dayCmds struct {
	pageviews     *goredis.StringCmd
	visitors      *goredis.IntCmd
	durationSum   *goredis.StringCmd
	durationCount *goredis.StringCmd
	devices       *goredis.MapStringStringCmd
	countries     *goredis.MapStringStringCmd
	urls          *goredis.ZSliceCmd
	referrers     *goredis.ZSliceCmd
}

// Rollup 设备与国家按天直接相加，同一访客跨天会重复计数，这是约定的近似口径
func (s *analyticsServiceImpl) Rollup(ctx context.Context, workspaceID string, days int) (*dto.AnalyticsRollup, error) {
	if workspaceID == "" {
		return nil, ErrParamInvalid
	}
	if days <= 0 || days > 90 {
		days = s.windowDays
	}
	dayKeys := util.LastNDays(s.now(), days)

	pipe := s.rdb.Pipeline()
	cmds := make([]dayCmds, len(dayKeys))
	visitorKeys := make([]string, 0, len(dayKeys))
	for i, day := range dayKeys {
		key := func(metric string) string { return analyticsKey(workspaceID, day, metric) }
		visitorKeys = append(visitorKeys, key("visitors"))
		cmds[i] = dayCmds{
			pageviews:     pipe.Get(ctx, key("pageviews")),
			visitors:      pipe.PFCount(ctx, key("visitors")),
			durationSum:   pipe.Get(ctx, key("duration_sum")),
			durationCount: pipe.Get(ctx, key("duration_count")),
			devices:       pipe.HGetAll(ctx, key("devices")),
			countries:     pipe.HGetAll(ctx, key("countries")),
			urls:          pipe.ZRevRangeWithScores(ctx, key("urls"), 0, perDayRankDepth-1),
			referrers:     pipe.ZRevRangeWithScores(ctx, key("referrers"), 0, perDayRankDepth-1),
		}
	}
	uniqueVisitors := pipe.PFCount(ctx, visitorKeys...)
	// Exec 只返回第一个失败，缺 key 的 redis.Nil 会盖住后面的真实错误，逐条检查
	executed, _ := pipe.Exec(ctx)
	for _, cmd := range executed {
		if err := cmd.Err(); err != nil && !errors.Is(err, goredis.Nil) {
			return nil, err
		}
	}

	rollup := &dto.AnalyticsRollup{
		Daily:   make([]dto.DailyStats, 0, len(dayKeys)),
		Devices: dto.DeviceStats{},
	}
	countries := map[string]int64{}
	pages := map[string]int64{}
	referrers := map[string]int64{}
	var totalSum, totalCount int64
	for i, day := range dayKeys {
		c := cmds[i]
		sum, count := intValue(c.durationSum), intValue(c.durationCount)
		stats := dto.DailyStats{
			Date:        day,
			Pageviews:   intValue(c.pageviews),
			Visitors:    c.visitors.Val(),
			AvgDuration: average(sum, count),
		}
		rollup.Daily = append(rollup.Daily, stats)
		rollup.Totals.Pageviews += stats.Pageviews
		totalSum += sum
		totalCount += count

		addHash(rollup.Devices, c.devices.Val())
		addHash(countries, c.countries.Val())
		addZ(pages, c.urls.Val())
		addZ(referrers, c.referrers.Val())
	}
	rollup.Totals.Visitors = uniqueVisitors.Val()
	rollup.Totals.AvgDuration = average(totalSum, totalCount)

	rollup.Geo = make([]dto.GeoStats, 0, len(countries))
	for _, item := range topN(countries, consts.TopListLimit) {
		rollup.Geo = append(rollup.Geo, dto.GeoStats{Country: item.Name, Visitors: item.Count})
	}
	rollup.TopPages = topN(pages, consts.TopListLimit)
	rollup.TopReferrers = topN(referrers, consts.TopListLimit)
	return rollup, nil
}

// ParseUserAgent 返回设备类型、浏览器、系统，解析不出的落到默认桶
func ParseUserAgent(raw string) (device, browser, os string) {
	device, browser, os = consts.DefaultDevice, consts.UnknownBucket, consts.UnknownBucket
	if raw == "" {
		return
	}
	ua := useragent.New(raw)
	switch {
	case ua.Bot():
		device = consts.DeviceBot
	case strings.Contains(raw, "iPad") || (strings.Contains(raw, "Android") && !strings.Contains(raw, "Mobile")):
		device = consts.DeviceTablet
	case ua.Mobile():
		device = consts.DeviceMobile
	}
	if name, _ := ua.Browser(); name != "" {
		browser = name
	}
	if info := ua.OSInfo(); info.Name != "" {
		os = info.Name
	}
	return
}

func referrerHost(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// sanitizeMetric 指标名会拼进 key，只保留小写字母、数字、下划线和连字符
func sanitizeMetric(m string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(m) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	if b.Len() > 32 {
		return b.String()[:32]
	}
	return b.String()
}

func roundNonNegative(v float64) int64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(math.Round(v))
}

func average(sum, count int64) float64 {
	if count <= 0 {
		return 0
	}
	return float64(sum) / float64(count)
}

func intValue(cmd *goredis.StringCmd) int64 {
	v, err := cmd.Int64()
	if err != nil {
		return 0
	}
	return v
}

func addHash(dst map[string]int64, src map[string]string) {
	for k, raw := range src {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		dst[k] += n
	}
}

func addZ(dst map[string]int64, src []goredis.Z) {
	for _, z := range src {
		if member, ok := z.Member.(string); ok {
			dst[member] += int64(z.Score)
		}
	}
}

// topN 次数倒序，相同次数按名称升序
func topN(counts map[string]int64, n int) []dto.RankItem {
	items := make([]dto.RankItem, 0, len(counts))
	for name, c := range counts {
		items = append(items, dto.RankItem{Name: name, Count: c})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Name < items[j].Name
	})
	if len(items) > n {
		items = items[:n]
	}
	return items
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
