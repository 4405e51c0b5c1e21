package util

import (
	"time"
)

const DayLayout = "2006-01-02"

// DayKey UTC 日期
func DayKey(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// LastNDays 以 today 结尾的 n 天，升序
func LastNDays(today time.Time, n int) []string {
	if n <= 0 {
		return nil
	}
	days := make([]string, n)
	for i := 0; i < n; i++ {
		days[n-1-i] = DayKey(today.AddDate(0, 0, -i))
	}
	return days
}
