package journal

// ============================================================================
// 行動日誌核心實作
// 職責：
// 1. 以 JSON Lines 追加記錄每個使用者行動（append-only）
// 2. 每筆事件帶 UUID 與 CRC32 校驗和，重放時偵測竄改或損壞
// 3. 重新開啟時延續既有序號
//
// 日誌只是紀錄，不參與狀態恢復：狀態以各個文件為準。
// ============================================================================

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxLineSize 單行事件上限
const maxLineSize = 1 << 20

// Journal 表示一個行動日誌實例
type Journal struct {
	mu      sync.Mutex    // 保護並發寫入
	file    *os.File      // 日誌檔案
	encoder *json.Encoder // JSON 編碼器
	path    string        // 日誌檔案路徑
	seq     uint64        // 當前事件序號
	closed  bool

	now func() time.Time
}

// Open 建立或開啟日誌
//
// 行為：
// - 檔案不存在時建立新檔案，seq 從 0 開始
// - 尾端沒有換行的殘缺事件（寫入中途崩潰）會被截掉
// - 檔案已存在時讀取最後一個可解析事件的 seq 並繼續
// - 以追加模式（O_APPEND）開啟，確保寫入不覆蓋
func Open(path string) (*Journal, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := truncateTornTail(file); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to repair journal tail: %w", err)
	}

	// 損壞的尾端不阻止開啟，序號沿用最後一個好的事件
	var seq uint64
	_ = readEvents(path, func(e Event) error {
		seq = e.Seq
		return nil
	})

	return &Journal{
		file:    file,
		encoder: json.NewEncoder(file),
		path:    path,
		seq:     seq,
		now:     time.Now,
	}, nil
}

// Append 追加一個事件並同步到磁碟
func (j *Journal) Append(action Action, date string, details map[string]string) (Event, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return Event{}, ErrClosed
	}

	event := Event{
		Seq:       j.seq + 1,
		ID:        uuid.NewString(),
		Action:    action,
		Date:      date,
		Details:   details,
		Timestamp: j.now().UnixMilli(),
	}
	event.Checksum = CalculateChecksum(event)

	if err := j.encoder.Encode(event); err != nil {
		return Event{}, fmt.Errorf("journal: append seq=%d: %w", event.Seq, err)
	}
	if err := j.file.Sync(); err != nil {
		return Event{}, fmt.Errorf("journal: sync seq=%d: %w", event.Seq, err)
	}

	j.seq = event.Seq
	return event, nil
}

// Replay 從頭讀取所有事件，驗證校驗和後呼叫 handler，遇錯立即停止
func (j *Journal) Replay(handler EventHandler) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrClosed
	}
	return readEvents(j.path, func(e Event) error {
		if err := VerifyChecksum(e); err != nil {
			return err
		}
		return handler(e)
	})
}

// Tail 回傳最後 n 個事件（時間順序）
func (j *Journal) Tail(n int) ([]Event, error) {
	if n <= 0 {
		return nil, nil
	}
	var events []Event
	err := j.Replay(func(e Event) error {
		events = append(events, e)
		if len(events) > n {
			events = events[1:]
		}
		return nil
	})
	return events, err
}

// LastSeq 取得當前的事件序號
func (j *Journal) LastSeq() uint64 {
	if j == nil {
		return 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.seq
}

// Path 日誌檔案路徑
func (j *Journal) Path() string {
	return j.path
}

// Close 關閉日誌，之後的操作回傳 ErrClosed
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	return j.file.Close()
}

// truncateTornTail 把檔案截斷到最後一個換行之後
func truncateTornTail(file *os.File) error {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	reader := bufio.NewReader(file)
	var offset, size int64
	for {
		chunk, err := reader.ReadSlice('\n')
		size += int64(len(chunk))
		if err == nil {
			offset = size
			continue
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		return err
	}

	if size == offset {
		return nil
	}
	if err := file.Truncate(offset); err != nil {
		return err
	}
	return file.Sync()
}

// readEvents 逐行解碼事件（不驗證校驗和）
func readEvents(path string, handler EventHandler) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			return &CorruptionError{Line: line, Cause: err}
		}
		if err := handler(event); err != nil {
			return err
		}
	}
	return scanner.Err()
}
