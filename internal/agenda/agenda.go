// ============================================================================
// Lunch Rotation 議程服務 - 狀態持有者與使用者行動
// ============================================================================
//
// Package: internal/agenda
// 文件: agenda.go
// 功能: 持有輪值狀態，套用使用者行動，每次行動後立即寫回持久化文件
//
// 架構設計:
//   這是整個系統的協調者，負責串接以下組件：
//   - rotation.Engine: 純函式輪值引擎（不持有狀態）
//   - store.Repository: 各關注點的 JSON 文件（原子寫入）
//   - journal.Journal: 行動日誌（JSON Lines + CRC32）
//   - metrics.Collector: Prometheus 指標（可為 nil）
//
// 行動流程（每個行動都相同）:
//   1. 取得鎖，驗證輸入
//   2. 在狀態副本上計算新狀態
//   3. 替換記憶體狀態
//   4. 寫回受影響的文件 → 追加日誌 → 更新指標
//   寫入失敗時記憶體狀態仍然有效，回傳 *PersistError 作為非致命提示
//
// 相位策略:
//   - 結構性變更（新增/移除/移動/交換名單位置）：重新對齊，使錨點人員在錨點日期負責
//   - 議程內的交換（今天與下一個工作日互換）：保留 offset，不影響其他天
//
// 並發安全:
//   使用 sync.Mutex 串行化所有操作；gRPC 伺服器、公告排程與檔案監看共用同一個 Service
//
// ============================================================================

package agenda

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/ChuLiYu/lunch-rotation/internal/calendar"
	"github.com/ChuLiYu/lunch-rotation/internal/journal"
	"github.com/ChuLiYu/lunch-rotation/internal/metrics"
	"github.com/ChuLiYu/lunch-rotation/internal/rotation"
	"github.com/ChuLiYu/lunch-rotation/internal/store"
	"github.com/ChuLiYu/lunch-rotation/pkg/types"
)

var log = slog.Default()

// JournalFile 資料目錄中的行動日誌檔名
const JournalFile = "journal.log"

// ============================================================================
// 資料結構定義
// ============================================================================

// Config 議程服務配置
type Config struct {
	Anchor  types.Anchor     // 錨點（不可變）
	Roster  types.Roster     // 預設名單（文件缺少或損壞時使用）
	DataDir string           // 資料目錄
	Clock   func() time.Time // 取得現在時間，nil 時使用 time.Now
}

// Service 議程服務
type Service struct {
	mu          sync.Mutex
	engine      *rotation.Engine
	repo        *store.Repository
	journal     *journal.Journal
	metrics     *metrics.Collector
	clock       func() time.Time
	state       types.State
	restaurants types.Restaurants
	unsaved     document // 上次寫入失敗、磁碟內容落後於記憶體的文件
}

// Status 服務狀態摘要
type Status struct {
	Today       time.Time
	Assignee    string
	Next        time.Time
	NextPerson  string
	RosterSize  int
	Offset      int
	Overrides   int
	Preferences int
	JournalSeq  uint64
	JournalPath string
	DataDir     string
}

// ============================================================================
// 建立與載入
// ============================================================================

// New 建立議程服務並從資料目錄載入狀態
func New(cfg Config, collector *metrics.Collector) (*Service, error) {
	repo, err := store.NewRepository(cfg.DataDir, store.Defaults{Anchor: cfg.Anchor, Roster: cfg.Roster})
	if err != nil {
		return nil, err
	}

	j, err := journal.Open(filepath.Join(cfg.DataDir, JournalFile))
	if err != nil {
		return nil, err
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	s := &Service{
		engine:  rotation.NewEngine(cfg.Anchor),
		repo:    repo,
		journal: j,
		metrics: collector,
		clock:   clock,
	}
	s.Reload()
	return s, nil
}

// Reload 重新從資料目錄載入狀態（例如其他程序改寫了文件）
//
// 損壞的文件會被預設值取代並記錄警告，不會讓呼叫端失敗。
// 若有先前寫入失敗的文件，先補寫；補寫仍失敗時保留記憶體狀態不重新載入。
func (s *Service) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsaved != 0 {
		if err := s.save(s.unsaved); err != nil {
			log.Warn("Skipping reload, in-memory state has unsaved changes", "error", err)
			return
		}
	}

	start := time.Now()
	snap, issues := s.repo.Load()
	for _, issue := range issues {
		log.Warn("Recovered malformed state document", "error", issue)
	}
	s.metrics.RecordRecoveries(len(issues))

	s.state = snap.State
	s.restaurants = snap.Restaurants
	s.updateGauges()

	log.Info("State loaded",
		"dir", s.repo.Dir(),
		"roster", len(s.state.Roster),
		"offset", s.state.Offset,
		"overrides", len(s.state.Overrides),
		"duration", time.Since(start))
}

// Close 關閉行動日誌
func (s *Service) Close() error {
	return s.journal.Close()
}

// Repository 回傳底層文件庫（供檔案監看使用）
func (s *Service) Repository() *store.Repository {
	return s.repo
}

// ============================================================================
// 查詢
// ============================================================================

// Today 今天（非工作日時為下一個工作日）
func (s *Service) Today() time.Time {
	return calendar.NextBusinessDay(s.clock())
}

// State 回傳目前狀態的副本
func (s *Service) State() types.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Restaurants 回傳餐廳紀錄的副本
func (s *Service) Restaurants() types.Restaurants {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.restaurants)
}

// Resolve 查詢單日負責人
func (s *Service) Resolve(date time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Resolve(date, s.state)
}

// Schedule 從 from 起模擬 days 個工作日（含順延）
func (s *Service) Schedule(from time.Time, days int) ([]types.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, err := s.engine.Simulate(from, days, s.state)
	if err != nil {
		return nil, err
	}
	return slices.Collect(seq), nil
}

// Block 一輪完整名單的排程區塊
type Block struct {
	Index   int
	Entries []types.ScheduleEntry
}

// Blocks 從今天所在的輪值週期開頭起，產生 count 個區塊
func (s *Service) Blocks(count int) ([]Block, error) {
	if count <= 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.state.Roster)
	start, err := s.cycleStart(s.Today())
	if err != nil {
		return nil, err
	}

	seq, err := s.engine.Simulate(start, count*n, s.state)
	if err != nil {
		return nil, err
	}

	var blocks []Block
	for entry := range seq {
		if len(blocks) == 0 || blocks[len(blocks)-1].Index != entry.Cycle {
			if len(blocks) == count {
				break
			}
			blocks = append(blocks, Block{Index: entry.Cycle})
		}
		last := &blocks[len(blocks)-1]
		last.Entries = append(last.Entries, entry)
	}
	return blocks, nil
}

// cycleStart 往回找出 date 所在週期的第一個工作日（最多退 n-1 天，不早於錨點）
func (s *Service) cycleStart(date time.Time) (time.Time, error) {
	n := len(s.state.Roster)
	cycle, err := s.engine.CycleIndex(date, n, s.state.Offset)
	if err != nil {
		return time.Time{}, err
	}

	anchor := s.engine.Anchor().Date
	for i := 0; i < n-1; i++ {
		prev := calendar.PreviousBusinessDay(date)
		if prev.Before(anchor) {
			break
		}
		if c, _ := s.engine.CycleIndex(prev, n, s.state.Offset); c != cycle {
			break
		}
		date = prev
	}
	return date, nil
}

// Status 回傳狀態摘要
func (s *Service) Status() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.Today()
	next := calendar.FollowingBusinessDay(today)
	who, err := s.engine.Resolve(today, s.state)
	if err != nil {
		return Status{}, err
	}
	nextWho, err := s.engine.Resolve(next, s.state)
	if err != nil {
		return Status{}, err
	}

	return Status{
		Today:       today,
		Assignee:    who,
		Next:        next,
		NextPerson:  nextWho,
		RosterSize:  len(s.state.Roster),
		Offset:      s.state.Offset,
		Overrides:   len(s.state.Overrides),
		Preferences: len(s.state.Preferences),
		JournalSeq:  s.journal.LastSeq(),
		JournalPath: s.journal.Path(),
		DataDir:     s.repo.Dir(),
	}, nil
}

// History 回傳最近 limit 筆行動
func (s *Service) History(limit int) ([]journal.Event, error) {
	return s.journal.Tail(limit)
}

// ============================================================================
// 內部輔助
// ============================================================================

// document 標記一個行動需要寫回哪些文件
type document uint8

const (
	docRoster document = 1 << iota
	docOverrides
	docPreferences
	docRotation
	docRestaurants
)

// commit 替換記憶體狀態並寫回受影響的文件
// 呼叫者必須持有 s.mu
func (s *Service) commit(action journal.Action, date time.Time, details map[string]string, next types.State, docs document) error {
	s.state = next

	var errs []error
	if err := s.save(docs | s.unsaved); err != nil {
		errs = append(errs, err)
	}

	iso := ""
	if !date.IsZero() {
		iso = calendar.FormatISO(date)
	}
	if _, err := s.journal.Append(action, iso, details); err != nil {
		errs = append(errs, err)
	}

	s.metrics.RecordAction(string(action))
	s.updateGauges()

	if err := errors.Join(errs...); err != nil {
		s.metrics.RecordPersistFailure()
		log.Error("Action applied but not persisted", "action", action, "date", iso, "error", err)
		return &PersistError{Action: action, Err: err}
	}

	log.Info("Action applied", "action", action, "date", iso, "details", details)
	return nil
}

// save 寫回 docs 標記的文件，並記錄仍未寫成功的文件
// 呼叫者必須持有 s.mu
func (s *Service) save(docs document) error {
	var failed document
	var errs []error
	record := func(doc document, err error) {
		if err != nil {
			failed |= doc
			errs = append(errs, err)
		}
	}

	if docs&docRoster != 0 {
		record(docRoster, s.repo.SaveRoster(s.state.Roster))
	}
	if docs&docOverrides != 0 {
		record(docOverrides, s.repo.SaveOverrides(s.state.Overrides))
	}
	if docs&docPreferences != 0 {
		record(docPreferences, s.repo.SavePreferences(s.state.Preferences))
	}
	if docs&docRotation != 0 {
		record(docRotation, s.repo.SaveOffset(s.state.Offset))
	}
	if docs&docRestaurants != 0 {
		record(docRestaurants, s.repo.SaveRestaurants(s.restaurants))
	}

	s.unsaved = failed
	return errors.Join(errs...)
}

func (s *Service) updateGauges() {
	s.metrics.UpdateState(len(s.state.Roster), s.state.Offset, len(s.state.Overrides))
}

// PersistError 行動已套用到記憶體狀態，但寫回磁碟失敗（非致命）
type PersistError struct {
	Action journal.Action
	Err    error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("%s applied but not saved: %v", e.Action, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// IsPersistError 判斷錯誤是否只是非致命的寫入失敗
func IsPersistError(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}
