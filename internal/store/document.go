package store

// ============================================================================
// 職責說明：
// 1. 將單一關注點的狀態（名單、覆寫、偏好、輪值紀錄、餐廳）序列化為 JSON 文件
// 2. 使用原子性寫入（temp file + rename）防止中斷時留下半成品
// 3. 載入時區分「不存在」與「損壞」，由呼叫端決定如何回退
// ============================================================================

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// ============================================================================
// 錯誤定義
// ============================================================================

var (
	ErrMalformedState = errors.New("persisted state is malformed")
	ErrNotFound       = errors.New("persisted state not found")
)

// DocumentError 描述某個文件載入失敗的原因
type DocumentError struct {
	Path  string // 文件路徑
	Kind  error  // ErrMalformedState 或 ErrNotFound
	Cause error  // 底層錯誤（可為 nil）
}

func (e *DocumentError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %v", e.Path, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Path, e.Kind, e.Cause)
}

func (e *DocumentError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func malformed(path string, cause error) error {
	return &DocumentError{Path: path, Kind: ErrMalformedState, Cause: cause}
}

// ============================================================================
// 資料結構定義
// ============================================================================

// Document 單一 JSON 文件
type Document[T any] struct {
	path string     // 文件路徑
	mu   sync.Mutex // 保護檔案操作
}

// NewDocument 建立文件管理器實例
func NewDocument[T any](path string) *Document[T] {
	return &Document[T]{path: path}
}

// Save 原子性寫入
//
// 流程：
// 1. 寫入臨時檔案（.tmp）
// 2. 使用 os.Rename 原子性替換原始檔案
func (d *Document[T]) Save(v T) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// 帶縮排，方便人工閱讀與手動修改
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", d.path, err)
	}
	jsonBytes = append(jsonBytes, '\n')

	tmpPath := d.path + ".tmp"

	if err := os.WriteFile(tmpPath, jsonBytes, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, d.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename %s: %w", d.path, err)
	}

	return nil
}

// Load 載入文件
//
// 返回值：
//   - 檔案不存在：ErrNotFound
//   - 無法讀取或 JSON 解析失敗：ErrMalformedState
func (d *Document[T]) Load() (T, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var v T

	jsonBytes, err := os.ReadFile(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return v, &DocumentError{Path: d.path, Kind: ErrNotFound}
		}
		return v, malformed(d.path, err)
	}

	if err := json.Unmarshal(jsonBytes, &v); err != nil {
		var zero T
		return zero, malformed(d.path, err)
	}

	return v, nil
}

// Exists 檢查文件是否存在
func (d *Document[T]) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// Path 取得文件路徑（用於測試與除錯）
func (d *Document[T]) Path() string {
	return d.path
}
