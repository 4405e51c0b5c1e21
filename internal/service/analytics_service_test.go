package service

import (
	"Helpdock/internal/api/dto"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const desktopChrome = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
const iphoneSafari = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"

func newAnalytics(t *testing.T, retention time.Duration) (*miniredis.Miniredis, *analyticsServiceImpl) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewAnalyticsService(rdb, retention, 7).(*analyticsServiceImpl)
}

func at(day string) func() time.Time {
	return func() time.Time {
		v, _ := time.Parse(time.DateOnly, day)
		return v.Add(12 * time.Hour)
	}
}

func pageview(session, url, referrer string) *dto.TrackReq {
	return &dto.TrackReq{
		Type:      TrackPageview,
		WebsiteID: "ws1",
		Payload:   dto.TrackPayload{URL: url, Referrer: referrer, SessionID: session},
	}
}

func TestRollupSumsPageviewsAcrossWindow(t *testing.T) {
	_, svc := newAnalytics(t, 0)
	ctx := context.Background()
	days := []string{"2026-03-01", "2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05", "2026-03-06", "2026-03-07"}
	counts := []int{3, 0, 5, 2, 0, 0, 1}

	for i, day := range days {
		svc.now = at(day)
		for j := 0; j < counts[i]; j++ {
			require.NoError(t, svc.Track(ctx, pageview(fmt.Sprintf("s-%d-%d", i, j), "/pricing", ""), dto.TrackContext{}))
		}
	}

	svc.now = at("2026-03-07")
	rollup, err := svc.Rollup(ctx, "ws1", 7)
	require.NoError(t, err)
	require.Len(t, rollup.Daily, 7)
	assert.Equal(t, "2026-03-01", rollup.Daily[0].Date)
	assert.Equal(t, "2026-03-07", rollup.Daily[6].Date)
	for i := range days {
		assert.EqualValues(t, counts[i], rollup.Daily[i].Pageviews, days[i])
		assert.EqualValues(t, counts[i], rollup.Daily[i].Visitors, days[i])
		assert.Zero(t, rollup.Daily[i].AvgDuration)
	}
	assert.EqualValues(t, 11, rollup.Totals.Pageviews)
	assert.EqualValues(t, 11, rollup.Totals.Visitors)
	require.Len(t, rollup.TopPages, 1)
	assert.Equal(t, dto.RankItem{Name: "/pricing", Count: 11}, rollup.TopPages[0])
	assert.EqualValues(t, 11, rollup.Devices["desktop"])
}

func TestSessionEndAveragesDuration(t *testing.T) {
	_, svc := newAnalytics(t, 0)
	ctx := context.Background()
	svc.now = at("2026-03-07")

	for _, d := range []float64{10.4, 20.6, 30} {
		d := d
		req := &dto.TrackReq{Type: TrackSessionEnd, WebsiteID: "ws1", Payload: dto.TrackPayload{Duration: &d}}
		require.NoError(t, svc.Track(ctx, req, dto.TrackContext{}))
	}
	// 没有 duration 的事件不计数
	require.NoError(t, svc.Track(ctx, &dto.TrackReq{Type: TrackSessionEnd, WebsiteID: "ws1"}, dto.TrackContext{}))

	rollup, err := svc.Rollup(ctx, "ws1", 2)
	require.NoError(t, err)
	require.Len(t, rollup.Daily, 2)
	assert.Zero(t, rollup.Daily[0].AvgDuration)
	assert.InDelta(t, 20.333, rollup.Daily[1].AvgDuration, 0.01)
	assert.InDelta(t, 20.333, rollup.Totals.AvgDuration, 0.01)
}

func TestTrackPageviewDimensions(t *testing.T) {
	_, svc := newAnalytics(t, 0)
	ctx := context.Background()
	svc.now = at("2026-03-07")

	req := pageview("s1", "/", "https://News.example.com/a/b?c=d")
	req.Payload.UserAgent = iphoneSafari
	req.Payload.Country = "de"
	require.NoError(t, svc.Track(ctx, req, dto.TrackContext{}))

	// payload 缺省时使用请求头
	req = pageview("s2", "/", "not a url")
	require.NoError(t, svc.Track(ctx, req, dto.TrackContext{UserAgent: desktopChrome, Country: "US"}))

	req = pageview("s3", "/", "")
	require.NoError(t, svc.Track(ctx, req, dto.TrackContext{}))

	rollup, err := svc.Rollup(ctx, "ws1", 1)
	require.NoError(t, err)
	assert.Equal(t, dto.DeviceStats{"mobile": 1, "desktop": 2}, rollup.Devices)
	assert.Equal(t, []dto.RankItem{{Name: "news.example.com", Count: 1}}, rollup.TopReferrers)
	assert.Equal(t, []dto.GeoStats{
		{Country: "DE", Visitors: 1},
		{Country: "US", Visitors: 1},
		{Country: "Unknown", Visitors: 1},
	}, rollup.Geo)
}

func TestGeoIsTruncatedToTopTen(t *testing.T) {
	_, svc := newAnalytics(t, 0)
	ctx := context.Background()
	svc.now = at("2026-03-07")

	for i := 0; i < 12; i++ {
		for j := 0; j <= i; j++ {
			req := pageview("s", "/", "")
			req.Payload.Country = fmt.Sprintf("C%02d", i)
			require.NoError(t, svc.Track(ctx, req, dto.TrackContext{}))
		}
	}
	rollup, err := svc.Rollup(ctx, "ws1", 7)
	require.NoError(t, err)
	require.Len(t, rollup.Geo, 10)
	assert.Equal(t, "C11", rollup.Geo[0].Country)
	assert.EqualValues(t, 12, rollup.Geo[0].Visitors)
	assert.Equal(t, "C02", rollup.Geo[9].Country)
}

func TestTrackVitalsAndRetention(t *testing.T) {
	mr, svc := newAnalytics(t, 400*24*time.Hour)
	ctx := context.Background()
	svc.now = at("2026-03-07")

	v := 2.6
	req := &dto.TrackReq{Type: TrackVitals, WebsiteID: "ws1", Payload: dto.TrackPayload{Metric: "LCP", Value: &v, Rating: "good"}}
	require.NoError(t, svc.Track(ctx, req, dto.TrackContext{}))
	require.NoError(t, svc.Track(ctx, req, dto.TrackContext{}))

	prefix := "analytics:ws1:2026-03-07:vitals:lcp:"
	sum, err := mr.Get(prefix + "sum")
	require.NoError(t, err)
	assert.Equal(t, "6", sum)
	count, err := mr.Get(prefix + "count")
	require.NoError(t, err)
	assert.Equal(t, "2", count)
	assert.Equal(t, "2", mr.HGet(prefix+"ratings", "good"))
	assert.Equal(t, 400*24*time.Hour, mr.TTL(prefix+"sum"))

	require.NoError(t, svc.Track(ctx, pageview("s1", "/", ""), dto.TrackContext{}))
	assert.Equal(t, 400*24*time.Hour, mr.TTL("analytics:ws1:2026-03-07:pageviews"))
}

func TestTrackRejectsMissingFields(t *testing.T) {
	_, svc := newAnalytics(t, 0)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Track(ctx, &dto.TrackReq{Type: TrackPageview}, dto.TrackContext{}), ErrParamInvalid)
	assert.ErrorIs(t, svc.Track(ctx, &dto.TrackReq{WebsiteID: "ws1"}, dto.TrackContext{}), ErrParamInvalid)
	assert.ErrorIs(t, svc.Track(ctx, &dto.TrackReq{Type: "click", WebsiteID: "ws1"}, dto.TrackContext{}), ErrParamInvalid)

	_, err := svc.Rollup(ctx, "", 7)
	assert.ErrorIs(t, err, ErrParamInvalid)
}

func TestParseUserAgent(t *testing.T) {
	device, browser, os := ParseUserAgent("")
	assert.Equal(t, []string{"desktop", "Unknown", "Unknown"}, []string{device, browser, os})

	device, browser, _ = ParseUserAgent(desktopChrome)
	assert.Equal(t, "desktop", device)
	assert.Equal(t, "Chrome", browser)

	device, _, _ = ParseUserAgent(iphoneSafari)
	assert.Equal(t, "mobile", device)

	device, _, _ = ParseUserAgent("Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1")
	assert.Equal(t, "tablet", device)

	device, _, _ = ParseUserAgent("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	assert.Equal(t, "bot", device)
}

func TestRollupSurfacesErrorsBehindMissingKeys(t *testing.T) {
	mr, svc := newAnalytics(t, 0)
	ctx := context.Background()
	svc.now = at("2026-03-07")

	// 前几天的 GET 全部落空，最后一天的设备 key 类型不对
	require.NoError(t, mr.Set(analyticsKey("ws1", "2026-03-07", "devices"), "oops"))

	_, err := svc.Rollup(ctx, "ws1", 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WRONGTYPE")
}

func TestSanitizeMetric(t *testing.T) {
	assert.Equal(t, "lcp", sanitizeMetric("LCP"))
	assert.Equal(t, "first-input_delay", sanitizeMetric("First-Input_Delay"))
	assert.Equal(t, "clsx", sanitizeMetric("CLS:x*"))
	assert.Len(t, sanitizeMetric(strings.Repeat("a", 40)), 32)
}
