package rotation

import (
	"iter"
	"time"

	"github.com/ChuLiYu/lunch-rotation/internal/calendar"
	"github.com/ChuLiYu/lunch-rotation/pkg/types"
)

// Simulate 產生從 start 起（先推到工作日）連續 days 個工作日的排程
//
// 與逐日呼叫 Resolve 的差別在於「順延」：當基本輪值人選迴避當天而被跳過時，
// 他會被帶到下一個工作日直接負責（不看當天輪值）；若他也迴避下一天，順延就直接作廢。
//
// 回傳的序列是惰性、有限、可重複走訪的，且使用呼叫當下的狀態快照。
// 順延狀態只存在於單一次走訪中，從不同 start 開始的兩次模擬不保證一致。
func (e *Engine) Simulate(start time.Time, days int, state types.State) (iter.Seq[types.ScheduleEntry], error) {
	if len(state.Roster) == 0 {
		return nil, ErrInvalidRoster
	}
	snap := state.Clone()
	first := calendar.NextBusinessDay(start)

	return func(yield func(types.ScheduleEntry) bool) {
		date := first
		carry := ""
		for i := 0; i < days; i++ {
			var entry types.ScheduleEntry
			entry, carry = e.step(date, snap, carry)
			if !yield(entry) {
				return
			}
			date = calendar.FollowingBusinessDay(date)
		}
	}, nil
}

// step 計算單日結果，回傳當天排程與要帶到下一天的人（空字串表示沒有順延）
func (e *Engine) step(date time.Time, state types.State, carry string) (types.ScheduleEntry, string) {
	n := len(state.Roster)
	weekday := calendar.WeekdayIndex(date)
	cycle, _ := e.CycleIndex(date, n, state.Offset)
	entry := types.ScheduleEntry{Date: date, Cycle: cycle}

	if person, ok := state.Overrides[calendar.FormatISO(date)]; ok {
		entry.Person = person
		entry.Forced = true
		return entry, ""
	}

	if carry != "" && !state.Preferences.Avoids(carry, weekday) {
		entry.Person = carry
		entry.Carried = true
		return entry, ""
	}

	base, _ := e.RotationIndex(date, n, state.Offset)
	basePerson := state.Roster[base]
	if !state.Preferences.Avoids(basePerson, weekday) {
		entry.Person = basePerson
		return entry, ""
	}

	idx, ok := firstEligible(state, base, weekday)
	if !ok {
		entry.Person = basePerson
		return entry, ""
	}
	entry.Person = state.Roster[idx]
	return entry, basePerson
}
