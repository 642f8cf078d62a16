package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/ChuLiYu/lunch-rotation/internal/agenda"
	"github.com/ChuLiYu/lunch-rotation/internal/calendar"
	"github.com/ChuLiYu/lunch-rotation/internal/journal"
	"github.com/ChuLiYu/lunch-rotation/pkg/types"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// view 把結果以表格輸出；today 所在的列會加上備註
type view struct {
	out   io.Writer
	tag   language.Tag
	p     *message.Printer
	today time.Time
}

func newView(out io.Writer, tag language.Tag, today time.Time) *view {
	return &view{out: out, tag: tag, p: newPrinter(tag), today: today}
}

func (v *view) printf(key string, args ...any) {
	v.p.Fprintf(v.out, key, args...)
}

func (v *view) newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	return t
}

func (v *view) render(t table.Writer) {
	fmt.Fprintln(v.out, t.Render())
}

// schedule 排程表；restaurants 可為 nil
func (v *view) schedule(title string, entries []types.ScheduleEntry, restaurants types.Restaurants) {
	t := v.newTable()
	if title != "" {
		t.SetTitle(title)
	}
	t.AppendHeader(table.Row{
		colPosition,
		v.p.Sprintf(colDate),
		v.p.Sprintf(colPerson),
		v.p.Sprintf(colNote),
		v.p.Sprintf(colRestaurant),
	})

	prevCycle := -1
	for i, e := range entries {
		notes := v.notes(e, prevCycle, i)
		prevCycle = e.Cycle

		t.AppendRow(table.Row{i + 1, calendar.Label(e.Date, v.tag), e.Person, strings.Join(notes, ", "), restaurants[e.ISO()]})
	}
	v.render(t)
}

func (v *view) notes(e types.ScheduleEntry, prevCycle, i int) []string {
	var notes []string
	if e.Date.Equal(v.today) {
		notes = append(notes, v.p.Sprintf(noteToday))
	}
	if e.Forced {
		notes = append(notes, v.p.Sprintf(noteOverride))
	}
	if e.Carried {
		notes = append(notes, v.p.Sprintf(noteCarried))
	}
	if i > 0 && e.Cycle != prevCycle {
		notes = append(notes, v.p.Sprintf(noteNewBlock))
	}
	return notes
}

func (v *view) blocks(blocks []agenda.Block, restaurants types.Restaurants) {
	for _, b := range blocks {
		v.schedule(v.p.Sprintf(msgBlock, b.Index+1), b.Entries, restaurants)
	}
}

func (v *view) roster(state types.State) {
	t := v.newTable()
	t.AppendHeader(table.Row{colPosition, v.p.Sprintf(colPerson), v.p.Sprintf(colAvoids)})
	for i, name := range state.Roster {
		t.AppendRow(table.Row{i + 1, name, v.weekdays(state.Preferences[name])})
	}
	v.render(t)
}

// overrides 只列出今天（含）以後的覆寫
func (v *view) overrides(o types.Overrides) {
	keys := slices.Sorted(maps.Keys(o))
	if len(keys) == 0 {
		return
	}
	t := v.newTable()
	t.AppendHeader(table.Row{v.p.Sprintf(colDate), v.p.Sprintf(colPerson)})
	for _, k := range keys {
		date, err := calendar.ParseISO(k)
		if err != nil || date.Before(v.today) {
			continue
		}
		t.AppendRow(table.Row{calendar.Label(date, v.tag), o[k]})
	}
	v.render(t)
}

func (v *view) history(events []journal.Event) {
	t := v.newTable()
	t.AppendHeader(table.Row{colPosition, v.p.Sprintf(colTime), v.p.Sprintf(colAction), v.p.Sprintf(colDate), v.p.Sprintf(colDetails)})
	for _, e := range events {
		when := time.UnixMilli(e.Timestamp).Format("2006-01-02 15:04")
		t.AppendRow(table.Row{e.Seq, when, e.Action, e.Date, formatDetails(e.Details)})
	}
	v.render(t)
}

func (v *view) weekdays(days []int) string {
	names := make([]string, len(days))
	for i, wd := range days {
		names[i] = calendar.WeekdayName(wd, v.tag)
	}
	return strings.Join(names, ", ")
}

func formatDetails(details map[string]string) string {
	parts := make([]string, 0, len(details))
	for _, k := range slices.Sorted(maps.Keys(details)) {
		parts = append(parts, fmt.Sprintf("%s=%s", k, details[k]))
	}
	return strings.Join(parts, " ")
}
