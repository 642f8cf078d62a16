package store

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

var log = slog.Default()

// watchDebounce 合併同一次儲存產生的多個事件（寫 .tmp + rename）
const watchDebounce = 200 * time.Millisecond

var documentNames = map[string]bool{
	RosterFile:      true,
	OverridesFile:   true,
	PreferencesFile: true,
	RotationFile:    true,
	RestaurantsFile: true,
}

// Watch 監看資料目錄，任何狀態文件被（其他程序）改寫時呼叫 onChange
//
// 回傳的 channel 會在 ctx 取消且 watcher 關閉後關閉。
func (r *Repository) Watch(ctx context.Context, onChange func()) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(r.dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", r.dir, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer w.Close()

		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !documentNames[filepath.Base(ev.Name)] {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
					fire = time.After(watchDebounce)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("State watcher error", "dir", r.dir, "error", err)
			case <-fire:
				fire = nil
				onChange()
			}
		}
	}()

	return done, nil
}
