package agenda

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ChuLiYu/lunch-rotation/internal/calendar"
	"github.com/ChuLiYu/lunch-rotation/internal/journal"
	"github.com/ChuLiYu/lunch-rotation/internal/roster"
	"github.com/ChuLiYu/lunch-rotation/internal/rotation"
	"github.com/ChuLiYu/lunch-rotation/pkg/types"
)

// ============================================================================
// 錯誤定義
// ============================================================================

var (
	ErrUnknownPerson   = errors.New("person is not in the roster")
	ErrDuplicatePerson = errors.New("person is already in the roster")
	ErrLastPerson      = errors.New("cannot remove the last person from the roster")
	ErrBlankName       = errors.New("name must not be blank")
	ErrInvalidWeekday  = errors.New("weekday must be between 0 (Monday) and 4 (Friday)")
	ErrTooFewPeople    = errors.New("exchange needs at least two people in the roster")
)

// ============================================================================
// 輪值相位行動
// ============================================================================

// PassTurn 今天的負責人放棄這一輪：相位 +1，後面的人全部往前一天
// 回傳今天新的負責人
func (s *Service) PassTurn() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.Today()
	before, err := s.engine.Resolve(today, s.state)
	if err != nil {
		return "", err
	}

	next := s.state.Clone()
	next.Offset = wrap(next.Offset+1, len(next.Roster))

	after, _ := s.engine.Resolve(today, next)
	details := map[string]string{"from": before, "to": after, "offset": strconv.Itoa(next.Offset)}
	return after, s.commit(journal.ActionPassTurn, today, details, next, docRotation)
}

// SkipDay 今天不排人：今天覆寫為 nobody，相位 -1，使今天原本的負責人改到下一個工作日
// 回傳下一個工作日的負責人
func (s *Service) SkipDay() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.Today()
	if len(s.state.Roster) == 0 {
		return "", rotation.ErrInvalidRoster
	}

	next := s.state.Clone()
	next.Overrides[calendar.FormatISO(today)] = types.Nobody
	next.Offset = wrap(next.Offset-1, len(next.Roster))

	tomorrow := calendar.FollowingBusinessDay(today)
	who, _ := s.engine.Resolve(tomorrow, next)
	details := map[string]string{"next": who, "offset": strconv.Itoa(next.Offset)}
	return who, s.commit(journal.ActionSkipDay, today, details, next, docOverrides|docRotation)
}

// Exchange 今天與下一個工作日的（基本輪值）負責人互換名單位置，保留 offset
//
// 兩人在名單中相鄰，交換是永久的：往後每個循環裡這兩人的日期都會對調。
func (s *Service) Exchange() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.state.Roster)
	if n < 2 {
		return ErrTooFewPeople
	}

	today := s.Today()
	tomorrow := calendar.FollowingBusinessDay(today)
	i, err := s.engine.RotationIndex(today, n, s.state.Offset)
	if err != nil {
		return err
	}
	j, _ := s.engine.RotationIndex(tomorrow, n, s.state.Offset)
	a, b := s.state.Roster[i], s.state.Roster[j]

	next := s.state.Clone()
	next.Roster = roster.Swap(next.Roster, a, b)

	details := map[string]string{"today": b, "next": a}
	return s.commit(journal.ActionExchange, today, details, next, docRoster)
}

// ============================================================================
// 手動覆寫
// ============================================================================

// SetOverride 指定某個日期（推到工作日）由某人負責；person 可為 types.Nobody
func (s *Service) SetOverride(date time.Time, person string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := s.overrideName(person)
	if err != nil {
		return err
	}

	date = calendar.NextBusinessDay(date)
	next := s.state.Clone()
	next.Overrides[calendar.FormatISO(date)] = name

	return s.commit(journal.ActionSetOverride, date, map[string]string{"person": name}, next, docOverrides)
}

// ClearOverride 移除某日的覆寫，回傳是否真的有移除
func (s *Service) ClearOverride(date time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	date = calendar.NextBusinessDay(date)
	key := calendar.FormatISO(date)
	prev, ok := s.state.Overrides[key]
	if !ok {
		return false, nil
	}

	next := s.state.Clone()
	delete(next.Overrides, key)

	return true, s.commit(journal.ActionClearOverride, date, map[string]string{"person": prev}, next, docOverrides)
}

func (s *Service) overrideName(person string) (string, error) {
	if strings.EqualFold(strings.TrimSpace(person), types.Nobody) {
		return types.Nobody, nil
	}
	_, name := roster.Find(s.state.Roster, person)
	if name == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownPerson, person)
	}
	return name, nil
}

// ============================================================================
// 名單結構變更（全部重新對齊相位）
// ============================================================================

// AddPerson 新增到名單尾端（不分大小寫重複時拒絕）
func (s *Service) AddPerson(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return ErrBlankName
	}
	if roster.Contains(s.state.Roster, name) {
		return fmt.Errorf("%w: %q", ErrDuplicatePerson, name)
	}

	next := s.state.Clone()
	next.Roster = roster.Add(next.Roster, name)
	s.realign(&next)

	return s.commit(journal.ActionAddPerson, time.Time{}, map[string]string{"person": name}, next, docRoster|docRotation)
}

// RemovePerson 從名單移除，並刪除其迴避偏好；指向此人的覆寫保留（顯示為過期）
func (s *Service) RemovePerson(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := s.member(name)
	if err != nil {
		return err
	}
	if len(s.state.Roster) == 1 {
		return ErrLastPerson
	}

	next := s.state.Clone()
	next.Roster = roster.Remove(next.Roster, name)
	delete(next.Preferences, name)
	s.realign(&next)

	return s.commit(journal.ActionRemovePerson, time.Time{}, map[string]string{"person": name}, next, docRoster|docRotation|docPreferences)
}

// MovePerson 將某人移到 index 位置（0 起算，超出範圍會被夾住）
func (s *Service) MovePerson(name string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := s.member(name)
	if err != nil {
		return err
	}

	next := s.state.Clone()
	next.Roster = roster.Move(next.Roster, name, index)
	s.realign(&next)

	details := map[string]string{"person": name, "index": strconv.Itoa(roster.IndexOf(next.Roster, name))}
	return s.commit(journal.ActionMovePerson, time.Time{}, details, next, docRoster|docRotation)
}

// SwapPeople 交換兩人在名單中的位置
func (s *Service) SwapPeople(a, b string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.member(a)
	if err != nil {
		return err
	}
	b, err = s.member(b)
	if err != nil {
		return err
	}

	next := s.state.Clone()
	next.Roster = roster.Swap(next.Roster, a, b)
	s.realign(&next)

	return s.commit(journal.ActionSwapPeople, time.Time{}, map[string]string{"a": a, "b": b}, next, docRoster|docRotation)
}

// realign 讓錨點人員在錨點日期負責
func (s *Service) realign(next *types.State) {
	next.Offset = roster.Realign(next.Roster, s.engine.Anchor().Person)
}

func (s *Service) member(name string) (string, error) {
	_, found := roster.Find(s.state.Roster, name)
	if found == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownPerson, name)
	}
	return found, nil
}

// ============================================================================
// 偏好與餐廳
// ============================================================================

// SetPreferences 設定某人希望避開的星期（Monday=0..Friday=4），空集合表示清除
func (s *Service) SetPreferences(name string, weekdays []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := s.member(name)
	if err != nil {
		return err
	}

	days := slices.Clone(weekdays)
	for _, wd := range days {
		if wd < 0 || wd > 4 {
			return fmt.Errorf("%w: got %d", ErrInvalidWeekday, wd)
		}
	}
	slices.Sort(days)
	days = slices.Compact(days)

	next := s.state.Clone()
	if len(days) == 0 {
		delete(next.Preferences, name)
	} else {
		next.Preferences[name] = days
	}

	labels := make([]string, len(days))
	for i, wd := range days {
		labels[i] = strconv.Itoa(wd)
	}
	details := map[string]string{"person": name, "weekdays": strings.Join(labels, ",")}
	return s.commit(journal.ActionSetPreferences, time.Time{}, details, next, docPreferences)
}

// SetRestaurant 記錄某日（推到工作日）的餐廳，空字串表示清除
func (s *Service) SetRestaurant(date time.Time, restaurant string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	date = calendar.NextBusinessDay(date)
	key := calendar.FormatISO(date)
	restaurant = strings.TrimSpace(restaurant)

	if s.restaurants == nil {
		s.restaurants = types.Restaurants{}
	}
	if restaurant == "" {
		delete(s.restaurants, key)
	} else {
		s.restaurants[key] = restaurant
	}

	return s.commit(journal.ActionSetRestaurant, date, map[string]string{"restaurant": restaurant}, s.state, docRestaurants)
}

func wrap(a, n int) int {
	if n <= 0 {
		return 0
	}
	return ((a % n) + n) % n
}
