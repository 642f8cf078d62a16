// Package types 定義了 lunch-rotation 系統中使用的核心領域模型
package types

import (
	"time"
)

// Nobody 覆寫值：當天沒有人負責（例如整組不外出用餐）
const Nobody = "nobody"

// ISODate 日期鍵格式（YYYY-MM-DD），用於覆寫、餐廳紀錄與持久化文件
const ISODate = "2006-01-02"

// Roster 輪值名單，順序即輪值順序
type Roster []string

// Overrides 手動覆寫：ISO 日期 -> 人名（或 Nobody）
type Overrides map[string]string

// Preferences 迴避偏好：人名 -> 希望避開的星期（Monday=0..Friday=4）
type Preferences map[string][]int

// Restaurants 餐廳紀錄：ISO 日期 -> 餐廳名稱
type Restaurants map[string]string

// Anchor 錨點，固定輪值的絕對相位（某個已知日期由某人負責）
type Anchor struct {
	Date   time.Time `json:"date"`
	Person string    `json:"person"`
}

// State 輪值引擎的完整輸入狀態
// 核心函式不持有任何隱藏狀態，呼叫端每次都傳入此結構
type State struct {
	Roster      Roster      `json:"roster"`
	Overrides   Overrides   `json:"overrides"`
	Preferences Preferences `json:"preferences"`
	Offset      int         `json:"offset"`
}

// Clone 深拷貝狀態，供變更前使用（避免修改到呼叫端持有的 slice/map）
func (s State) Clone() State {
	out := State{
		Roster:      append(Roster(nil), s.Roster...),
		Overrides:   make(Overrides, len(s.Overrides)),
		Preferences: make(Preferences, len(s.Preferences)),
		Offset:      s.Offset,
	}
	for k, v := range s.Overrides {
		out.Overrides[k] = v
	}
	for k, v := range s.Preferences {
		out.Preferences[k] = append([]int(nil), v...)
	}
	return out
}

// Avoids 判斷某人是否希望避開指定星期
func (p Preferences) Avoids(person string, weekday int) bool {
	for _, wd := range p[person] {
		if wd == weekday {
			return true
		}
	}
	return false
}

// ScheduleEntry 排程結果中的一天（推導值，永不持久化）
type ScheduleEntry struct {
	Date    time.Time `json:"date"`
	Person  string    `json:"person"`
	Forced  bool      `json:"forced,omitempty"`  // 來自手動覆寫
	Carried bool      `json:"carried,omitempty"` // 前一天被迴避後順延到今天
	Cycle   int       `json:"cycle"`             // 輪值週期編號，用於區塊分隔
}

// ISO 回傳 YYYY-MM-DD 格式的日期鍵
func (e ScheduleEntry) ISO() string {
	return e.Date.Format(ISODate)
}

// RotationState 持久化的輪值紀錄
type RotationState struct {
	AnchorDate   string `json:"anchor_date"`   // 錨點日期（YYYY-MM-DD）
	AnchorPerson string `json:"anchor_person"` // 錨點人員
	Offset       int    `json:"offset"`        // 錨點日期當天負責人的名單索引
}
