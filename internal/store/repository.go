package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ChuLiYu/lunch-rotation/internal/calendar"
	"github.com/ChuLiYu/lunch-rotation/internal/roster"
	"github.com/ChuLiYu/lunch-rotation/pkg/types"
)

// 資料目錄中的文件名稱
const (
	RosterFile      = "roster.json"
	OverridesFile   = "overrides.json"
	PreferencesFile = "preferences.json"
	RotationFile    = "rotation.json"
	RestaurantsFile = "restaurants.json"
)

// Defaults 文件缺少或損壞時使用的預設值
type Defaults struct {
	Anchor types.Anchor
	Roster types.Roster
}

// Snapshot 從資料目錄載入的完整狀態
type Snapshot struct {
	State       types.State
	Restaurants types.Restaurants
}

// Repository 管理資料目錄下的所有狀態文件
type Repository struct {
	dir         string
	defaults    Defaults
	roster      *Document[types.Roster]
	overrides   *Document[types.Overrides]
	preferences *Document[types.Preferences]
	rotation    *Document[types.RotationState]
	restaurants *Document[types.Restaurants]
}

// NewRepository 建立資料目錄（若不存在）並回傳 Repository
func NewRepository(dir string, defaults Defaults) (*Repository, error) {
	if err := roster.Validate(defaults.Roster); err != nil {
		return nil, fmt.Errorf("invalid default roster: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	return &Repository{
		dir:         dir,
		defaults:    defaults,
		roster:      NewDocument[types.Roster](filepath.Join(dir, RosterFile)),
		overrides:   NewDocument[types.Overrides](filepath.Join(dir, OverridesFile)),
		preferences: NewDocument[types.Preferences](filepath.Join(dir, PreferencesFile)),
		rotation:    NewDocument[types.RotationState](filepath.Join(dir, RotationFile)),
		restaurants: NewDocument[types.Restaurants](filepath.Join(dir, RestaurantsFile)),
	}, nil
}

// Dir 回傳資料目錄
func (r *Repository) Dir() string {
	return r.dir
}

// Load 載入所有文件並在邊界做驗證
//
// 任何缺少或損壞的文件都回退為預設值，不會讓呼叫端失敗；
// 回傳的 issues 列出所有被回退的損壞文件（ErrNotFound 不列入），供呼叫端記錄。
func (r *Repository) Load() (Snapshot, []error) {
	var issues []error
	note := func(err error) {
		if err != nil && !errors.Is(err, ErrNotFound) {
			issues = append(issues, err)
		}
	}

	names, err := r.loadRoster()
	note(err)

	overrides, err := loadDateMap(r.overrides)
	note(err)

	prefs, err := r.loadPreferences()
	note(err)

	offset, err := r.loadOffset(names)
	note(err)

	restaurants, err := loadDateMap(r.restaurants)
	note(err)

	return Snapshot{
		State: types.State{
			Roster:      names,
			Overrides:   types.Overrides(overrides),
			Preferences: prefs,
			Offset:      offset,
		},
		Restaurants: types.Restaurants(restaurants),
	}, issues
}

func (r *Repository) loadRoster() (types.Roster, error) {
	fallback := append(types.Roster(nil), r.defaults.Roster...)

	names, err := r.roster.Load()
	if err != nil {
		return fallback, err
	}

	cleaned := make(types.Roster, 0, len(names))
	for _, n := range names {
		cleaned = append(cleaned, strings.TrimSpace(n))
	}
	if err := roster.Validate(cleaned); err != nil {
		return fallback, malformed(r.roster.Path(), err)
	}
	return cleaned, nil
}

func (r *Repository) loadPreferences() (types.Preferences, error) {
	raw, err := r.preferences.Load()
	if err != nil {
		return types.Preferences{}, err
	}

	prefs := make(types.Preferences, len(raw))
	var dropped []string
	for name, days := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			dropped = append(dropped, "blank name")
			continue
		}
		var valid []int
		for _, wd := range days {
			if wd < 0 || wd > 4 {
				dropped = append(dropped, fmt.Sprintf("%s: weekday %d", name, wd))
				continue
			}
			valid = append(valid, wd)
		}
		slices.Sort(valid)
		valid = slices.Compact(valid)
		if len(valid) > 0 {
			prefs[name] = valid
		}
	}

	if len(dropped) > 0 {
		return prefs, malformed(r.preferences.Path(), fmt.Errorf("dropped entries: %s", strings.Join(dropped, ", ")))
	}
	return prefs, nil
}

// loadOffset 讀取輪值紀錄；錨點與目前設定不符時丟棄並依名單重新計算
func (r *Repository) loadOffset(names types.Roster) (int, error) {
	realigned := roster.Realign(names, r.defaults.Anchor.Person)

	rec, err := r.rotation.Load()
	if err != nil {
		return realigned, err
	}

	if rec.AnchorDate != calendar.FormatISO(r.defaults.Anchor.Date) || rec.AnchorPerson != r.defaults.Anchor.Person {
		return realigned, nil
	}

	n := len(names)
	return ((rec.Offset % n) + n) % n, nil
}

// loadDateMap 載入以 ISO 日期為鍵的文件，丟棄無法解析的鍵與空白值
func loadDateMap[M ~map[string]string](doc *Document[M]) (map[string]string, error) {
	raw, err := doc.Load()
	if err != nil {
		return map[string]string{}, err
	}

	out := make(map[string]string, len(raw))
	var dropped []string
	for key, value := range raw {
		d, err := calendar.ParseISO(key)
		value = strings.TrimSpace(value)
		if err != nil || value == "" {
			dropped = append(dropped, key)
			continue
		}
		out[calendar.FormatISO(d)] = value
	}

	if len(dropped) > 0 {
		slices.Sort(dropped)
		return out, malformed(doc.Path(), fmt.Errorf("dropped keys: %s", strings.Join(dropped, ", ")))
	}
	return out, nil
}

// ============================================================================
// 寫入
// ============================================================================

// SaveRoster 寫入名單
func (r *Repository) SaveRoster(names types.Roster) error {
	return r.roster.Save(names)
}

// SaveOverrides 寫入覆寫
func (r *Repository) SaveOverrides(o types.Overrides) error {
	return r.overrides.Save(o)
}

// SavePreferences 寫入迴避偏好
func (r *Repository) SavePreferences(p types.Preferences) error {
	return r.preferences.Save(p)
}

// SaveOffset 寫入輪值紀錄（連同目前的錨點設定）
func (r *Repository) SaveOffset(offset int) error {
	return r.rotation.Save(types.RotationState{
		AnchorDate:   calendar.FormatISO(r.defaults.Anchor.Date),
		AnchorPerson: r.defaults.Anchor.Person,
		Offset:       offset,
	})
}

// SaveRestaurants 寫入餐廳紀錄
func (r *Repository) SaveRestaurants(m types.Restaurants) error {
	return r.restaurants.Save(m)
}
