package dto

// TrackReq 上报事件，字段名属于对外契约
type TrackReq struct {
	Type      string       `json:"type"`
	WebsiteID string       `json:"websiteId"`
	Payload   TrackPayload `json:"payload"`
}

// TrackPayload 三种事件共用，按 type 取用字段
type TrackPayload struct {
	URL       string   `json:"url"`
	Referrer  string   `json:"referrer"`
	SessionID string   `json:"sessionId"`
	UserAgent string   `json:"userAgent"`
	Country   string   `json:"country"`
	Duration  *float64 `json:"duration"`
	Metric    string   `json:"metric"`
	Value     *float64 `json:"value"`
	Rating    string   `json:"rating"`
}

// TrackContext 请求侧信息，payload 缺省时兜底
type TrackContext struct {
	UserAgent string
	Country   string
}

// DailyStats 单日统计
type DailyStats struct {
	Date        string  `json:"date"`
	Pageviews   int64   `json:"pageviews"`
	Visitors    int64   `json:"visitors"`
	AvgDuration float64 `json:"avgDuration"`
}

// DeviceStats 设备类型 -> 次数，窗口内逐日相加
type DeviceStats map[string]int64

// GeoStats 国家访问数
type GeoStats struct {
	Country  string `json:"country"`
	Visitors int64  `json:"visitors"`
}

// RankItem 排行项
type RankItem struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// AnalyticsTotals 窗口汇总
type AnalyticsTotals struct {
	Pageviews   int64   `json:"pageviews"`
	Visitors    int64   `json:"visitors"`
	AvgDuration float64 `json:"avgDuration"`
}

// AnalyticsRollup 读接口返回
type AnalyticsRollup struct {
	Daily        []DailyStats    `json:"daily"`
	Devices      DeviceStats     `json:"devices"`
	Geo          []GeoStats      `json:"geo"`
	Totals       AnalyticsTotals `json:"totals"`
	TopPages     []RankItem      `json:"topPages"`
	TopReferrers []RankItem      `json:"topReferrers"`
}
