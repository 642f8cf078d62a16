// ============================================================================
// Lunch Rotation - 輪值引擎
// ============================================================================
//
// Package: internal/rotation
// 文件: rotation.go
// 功能: 根據錨點、名單、相位、覆寫與迴避偏好，決定每個工作日由誰負責
//
// 計算層次（由下而上）:
//   1. BusinessDaysSinceAnchor - 錨點到某日的工作日數（0 起算，錨點之前夾到 0）
//   2. RotationIndex           - (offset + since) mod len(roster)
//   3. Resolve                 - 單日查詢：覆寫 > 迴避偏好 > 基本輪值
//   4. Simulate                - 多日投影，額外處理「順延一天」(carry)
//
// 純函式:
//   Engine 只持有錨點設定，所有可變狀態都經由 types.State 傳入，
//   相同輸入永遠得到相同輸出。
//
// ============================================================================

package rotation

import (
	"errors"
	"time"

	"github.com/ChuLiYu/lunch-rotation/internal/calendar"
	"github.com/ChuLiYu/lunch-rotation/pkg/types"
)

var (
	// 名單為空，無法計算輪值
	ErrInvalidRoster = errors.New("rotation: roster is empty")
)

// Engine 輪值引擎，只持有不可變的錨點
type Engine struct {
	anchor types.Anchor
}

// NewEngine 建立引擎，錨點日期會被正規化為民用日期
func NewEngine(anchor types.Anchor) *Engine {
	anchor.Date = calendar.Normalize(anchor.Date)
	return &Engine{anchor: anchor}
}

// Anchor 回傳錨點設定
func (e *Engine) Anchor() types.Anchor {
	return e.anchor
}

// BusinessDaysSinceAnchor 錨點到 date（先推到下一個工作日）之間的工作日數，0 起算
func (e *Engine) BusinessDaysSinceAnchor(date time.Time) int {
	date = calendar.NextBusinessDay(date)
	n := calendar.BusinessDaysBetween(e.anchor.Date, date) - 1
	if n < 0 {
		return 0
	}
	return n
}

// RotationIndex 回傳 date 當天的名單索引
func (e *Engine) RotationIndex(date time.Time, rosterLen, offset int) (int, error) {
	if rosterLen <= 0 {
		return 0, ErrInvalidRoster
	}
	return mod(offset+e.BusinessDaysSinceAnchor(date), rosterLen), nil
}

// CycleIndex 回傳 date 所在的輪值週期編號（每跑完一輪名單 +1），只用於顯示區塊分隔
func (e *Engine) CycleIndex(date time.Time, rosterLen, offset int) (int, error) {
	if rosterLen <= 0 {
		return 0, ErrInvalidRoster
	}
	return (mod(offset, rosterLen) + e.BusinessDaysSinceAnchor(date)) / rosterLen, nil
}

// Resolve 查詢單日負責人
//
// 優先順序：
//  1. 手動覆寫（即使該人已不在名單中，也照樣回傳）
//  2. 從基本輪值位置開始往後找第一個不迴避當天星期的人
//  3. 全員都迴避時，回傳基本輪值人選（偏好是軟限制）
func (e *Engine) Resolve(date time.Time, state types.State) (string, error) {
	date = calendar.NextBusinessDay(date)

	if person, ok := state.Overrides[calendar.FormatISO(date)]; ok {
		return person, nil
	}

	base, err := e.RotationIndex(date, len(state.Roster), state.Offset)
	if err != nil {
		return "", err
	}

	idx, _ := firstEligible(state, base, calendar.WeekdayIndex(date))
	return state.Roster[idx], nil
}

// firstEligible 從 base 開始（含 base）環狀掃描，找出第一個不迴避 weekday 的人
// 找不到時回傳 (base, false)
func firstEligible(state types.State, base, weekday int) (int, bool) {
	n := len(state.Roster)
	for i := 0; i < n; i++ {
		idx := (base + i) % n
		if !state.Preferences.Avoids(state.Roster[idx], weekday) {
			return idx, true
		}
	}
	return base, false
}

func mod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}
