// Package announce 依 cron 排程公告當天的午餐負責人
//
// 排程表達式為標準五欄位格式（分 時 日 月 週），例如 "0 11 * * 1-5"。
// 公告只負責查詢並通知，不會修改任何輪值狀態。
package announce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ChuLiYu/lunch-rotation/internal/calendar"
	"github.com/ChuLiYu/lunch-rotation/internal/metrics"
	"github.com/ChuLiYu/lunch-rotation/pkg/types"
	"github.com/robfig/cron/v3"
)

var log = slog.Default()

var ErrInvalidSchedule = errors.New("invalid announce schedule")

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// Source 公告需要的查詢能力（由 agenda.Service 實作）
type Source interface {
	Today() time.Time
	Resolve(date time.Time) (string, error)
	Restaurants() types.Restaurants
}

// Announcement 一次公告的內容
type Announcement struct {
	Date       time.Time
	Person     string
	Restaurant string
}

// Nobody 當天是否明確不排人
func (a Announcement) Nobody() bool {
	return a.Person == types.Nobody
}

// Notifier 收到公告時的回呼
type Notifier func(Announcement)

// Announcer cron 驅動的公告器
type Announcer struct {
	cron     *cron.Cron
	schedule cron.Schedule
	source   Source
	notify   Notifier
	metrics  *metrics.Collector
}

// New 解析排程並建立公告器（尚未啟動）
func New(expr string, src Source, notify Notifier, collector *metrics.Collector) (*Announcer, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %s", ErrInvalidSchedule, expr, err)
	}

	a := &Announcer{
		cron:     cron.New(cron.WithParser(cronParser)),
		schedule: schedule,
		source:   src,
		notify:   notify,
		metrics:  collector,
	}
	a.cron.Schedule(schedule, cron.FuncJob(a.run))
	return a, nil
}

// Start 在背景啟動排程
func (a *Announcer) Start() {
	a.cron.Start()
	log.Info("Announcer started", "next", a.Next(time.Now()))
}

// Stop 停止排程，回傳的 context 在執行中的公告結束後完成
func (a *Announcer) Stop() context.Context {
	return a.cron.Stop()
}

// Next 回傳 after 之後下一次公告時間
func (a *Announcer) Next(after time.Time) time.Time {
	return a.schedule.Next(after)
}

// Announce 立即查詢今天的負責人並通知
func (a *Announcer) Announce() (Announcement, error) {
	today := a.source.Today()
	person, err := a.source.Resolve(today)
	if err != nil {
		return Announcement{}, err
	}

	ann := Announcement{
		Date:       today,
		Person:     person,
		Restaurant: a.source.Restaurants()[calendar.FormatISO(today)],
	}
	if a.notify != nil {
		a.notify(ann)
	}
	a.metrics.RecordAnnouncement()
	return ann, nil
}

func (a *Announcer) run() {
	ann, err := a.Announce()
	if err != nil {
		log.Error("Announcement failed", "error", err)
		return
	}
	log.Info("Lunch announced",
		"date", calendar.FormatISO(ann.Date),
		"person", ann.Person,
		"restaurant", ann.Restaurant)
}
