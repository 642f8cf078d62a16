// Package roster 提供輪值名單的變更輔助函式
//
// 所有函式都回傳新的 slice，不會修改或共用輸入的底層陣列。
// 名單比對（Swap/Move/Remove/IndexOf）使用精確比對；
// 使用者輸入請先經由 Find 轉為名單中的正式名稱。
package roster

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ChuLiYu/lunch-rotation/pkg/types"
	"golang.org/x/text/cases"
)

var (
	ErrEmptyRoster   = errors.New("roster: no members")
	ErrBlankName     = errors.New("roster: blank name")
	ErrDuplicateName = errors.New("roster: duplicate name")
)

// Key 回傳名稱的比對鍵（去頭尾空白 + Unicode case folding）
func Key(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// IndexOf 精確比對，不存在時回傳 -1
func IndexOf(r types.Roster, person string) int {
	for i, p := range r {
		if p == person {
			return i
		}
	}
	return -1
}

// Find 不分大小寫尋找，回傳索引與名單中的正式名稱
func Find(r types.Roster, name string) (int, string) {
	key := Key(name)
	for i, p := range r {
		if Key(p) == key {
			return i, p
		}
	}
	return -1, ""
}

// Contains 不分大小寫判斷是否已在名單中（新增前的重複檢查）
func Contains(r types.Roster, name string) bool {
	i, _ := Find(r, name)
	return i >= 0
}

// Swap 交換兩人位置，任一人不存在時原樣回傳
func Swap(r types.Roster, a, b string) types.Roster {
	out := clone(r)
	i, j := IndexOf(out, a), IndexOf(out, b)
	if i < 0 || j < 0 {
		return out
	}
	out[i], out[j] = out[j], out[i]
	return out
}

// Move 將某人移到 target 位置（先移除再插入，target 夾在 [0, len] 內）
func Move(r types.Roster, person string, target int) types.Roster {
	i := IndexOf(r, person)
	if i < 0 {
		return clone(r)
	}

	rest := make(types.Roster, 0, len(r))
	rest = append(rest, r[:i]...)
	rest = append(rest, r[i+1:]...)

	target = max(0, min(target, len(rest)))

	out := make(types.Roster, 0, len(r))
	out = append(out, rest[:target]...)
	out = append(out, person)
	out = append(out, rest[target:]...)
	return out
}

// Add 附加到名單尾端，重複檢查由呼叫端負責（見 Contains）
func Add(r types.Roster, person string) types.Roster {
	return append(clone(r), person)
}

// Remove 移除某人；呼叫端必須避免把名單清空
func Remove(r types.Roster, person string) types.Roster {
	out := make(types.Roster, 0, len(r))
	for _, p := range r {
		if p != person {
			out = append(out, p)
		}
	}
	return out
}

// Realign 回傳讓錨點人員在錨點日期負責的 offset（不在名單中時為 0）
func Realign(r types.Roster, anchorPerson string) int {
	if i := IndexOf(r, anchorPerson); i >= 0 {
		return i
	}
	return 0
}

// Validate 檢查名單：非空、無空白名稱、無（不分大小寫）重複
func Validate(r types.Roster) error {
	if len(r) == 0 {
		return ErrEmptyRoster
	}
	seen := make(map[string]int, len(r))
	for i, p := range r {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%w at position %d", ErrBlankName, i)
		}
		key := Key(p)
		if j, ok := seen[key]; ok {
			return fmt.Errorf("%w: %q (positions %d and %d)", ErrDuplicateName, p, j, i)
		}
		seen[key] = i
	}
	return nil
}

func clone(r types.Roster) types.Roster {
	return append(types.Roster(nil), r...)
}
