// Package calendar 提供工作日（週一至週五）相關的日期運算
//
// 所有日期都視為「民用日期」：以 UTC 午夜表示，不帶時區語意。
// 傳入任何 time.Time 時，會先依其自身時區取出年月日再轉為 UTC 午夜。
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/ChuLiYu/lunch-rotation/pkg/types"
	"golang.org/x/text/language"
)

const day = 24 * time.Hour

// Date 建立 UTC 午夜的民用日期
func Date(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// Normalize 取出 t 的年月日並轉為 UTC 午夜
func Normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// Today 回傳本地時區的今天（民用日期）
func Today() time.Time {
	return Normalize(time.Now())
}

// WeekdayIndex 回傳星期索引，Monday=0 ... Sunday=6
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// IsBusinessDay 週一至週五為工作日
func IsBusinessDay(t time.Time) bool {
	return WeekdayIndex(t) < 5
}

// NextBusinessDay 回傳 >= t 的最小工作日（t 本身是工作日時回傳 t）
func NextBusinessDay(t time.Time) time.Time {
	t = Normalize(t)
	switch t.Weekday() {
	case time.Saturday:
		return t.Add(2 * day)
	case time.Sunday:
		return t.Add(day)
	}
	return t
}

// FollowingBusinessDay 回傳嚴格晚於 t 的下一個工作日
func FollowingBusinessDay(t time.Time) time.Time {
	return NextBusinessDay(Normalize(t).Add(day))
}

// PreviousBusinessDay 回傳嚴格早於 t 的上一個工作日
func PreviousBusinessDay(t time.Time) time.Time {
	t = Normalize(t).Add(-day)
	for !IsBusinessDay(t) {
		t = t.Add(-day)
	}
	return t
}

// AddBusinessDays 從 NextBusinessDay(t) 起算，往後推 n 個工作日（n < 0 視為 0）
func AddBusinessDays(t time.Time, n int) time.Time {
	t = NextBusinessDay(t)
	for i := 0; i < n; i++ {
		t = FollowingBusinessDay(t)
	}
	return t
}

// BusinessDaysBetween 計算閉區間 [start, end] 內的工作日數量，end < start 時回傳 0
func BusinessDaysBetween(start, end time.Time) int {
	start, end = Normalize(start), Normalize(end)
	if end.Before(start) {
		return 0
	}

	days := int(end.Sub(start)/day) + 1
	count := (days / 7) * 5

	wd := WeekdayIndex(start)
	for i := 0; i < days%7; i++ {
		if (wd+i)%7 < 5 {
			count++
		}
	}
	return count
}

// ParseISO 解析 YYYY-MM-DD
func ParseISO(s string) (time.Time, error) {
	t, err := time.Parse(types.ISODate, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatISO 格式化為 YYYY-MM-DD
func FormatISO(t time.Time) string {
	return t.Format(types.ISODate)
}

var (
	weekdaysPT = [7]string{"segunda-feira", "terça-feira", "quarta-feira", "quinta-feira", "sexta-feira", "sábado", "domingo"}
	weekdaysEN = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
)

// Label 依語系產生顯示用日期字串
//
//	pt: "09/10/2025 (quinta-feira)"
//	其他: "2025-10-09 (Thursday)"
func Label(t time.Time, tag language.Tag) string {
	wd := WeekdayIndex(t)
	if base, _ := tag.Base(); base.String() == "pt" {
		return fmt.Sprintf("%s (%s)", t.Format("02/01/2006"), weekdaysPT[wd])
	}
	return fmt.Sprintf("%s (%s)", FormatISO(t), weekdaysEN[wd])
}

// WeekdayName 回傳星期名稱（Monday=0）
func WeekdayName(wd int, tag language.Tag) string {
	if wd < 0 || wd > 6 {
		return fmt.Sprintf("weekday(%d)", wd)
	}
	if base, _ := tag.Base(); base.String() == "pt" {
		return weekdaysPT[wd]
	}
	return weekdaysEN[wd]
}

// ParseWeekday 接受 0-4、英文或葡文星期名稱（不分大小寫，可用前三個字母）
func ParseWeekday(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) == 1 && s[0] >= '0' && s[0] <= '6' {
		return int(s[0] - '0'), nil
	}
	for i := 0; i < 7; i++ {
		for _, name := range []string{weekdaysEN[i], weekdaysPT[i]} {
			name = strings.ToLower(name)
			if s == name || (len(s) >= 3 && strings.HasPrefix(name, s)) {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
