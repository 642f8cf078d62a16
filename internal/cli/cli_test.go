package cli

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ChuLiYu/lunch-rotation/internal/agenda"
	"github.com/ChuLiYu/lunch-rotation/internal/calendar"
	"github.com/ChuLiYu/lunch-rotation/internal/server"
	"github.com/ChuLiYu/lunch-rotation/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

// useFixedClock 今天固定為 2025-10-21（週二），基本輪值 Pavel
func useFixedClock(t *testing.T) {
	t.Helper()
	prev := now
	now = func() time.Time { return time.Date(2025, time.October, 21, 10, 0, 0, 0, time.Local) }
	t.Cleanup(func() { now = prev })
}

func writeConfig(t *testing.T, lang string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`
anchor:
  date: "2025-10-09"
  person: Pavel
roster: [Pavel, Guilherme, Victor, Chris, Alan, Thiago, Clayton, Carolina]
data_dir: %s
language: %s
log:
  level: error
metrics:
  enabled: false
announce:
  enabled: false
`, filepath.Join(dir, "data"), lang)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := BuildCLI()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	require.NoError(t, err, out)
	return out
}

// ============================================================================
// Command tree
// ============================================================================

func TestBuildCLI(t *testing.T) {
	cmd := BuildCLI()

	assert.NotNil(t, cmd, "BuildCLI should return a non-nil command")
	assert.Equal(t, "lunchrota", cmd.Use)
	assert.Equal(t, "1.0.0", cmd.Version)

	commandNames := make(map[string]bool)
	for _, c := range cmd.Commands() {
		commandNames[c.Name()] = true
	}
	for _, name := range []string{
		"today", "schedule", "blocks", "pass", "skip", "exchange", "override",
		"prefer", "roster", "restaurant", "history", "status", "serve",
	} {
		assert.True(t, commandNames[name], "Should have '%s' command", name)
	}

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag, "Should have --config flag")
	assert.Equal(t, "c", configFlag.Shorthand)
	assert.Equal(t, "configs/default.yaml", configFlag.DefValue)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("server"), "Should have --server flag")
}

func TestSubcommandFlags(t *testing.T) {
	schedule := buildScheduleCommand()
	assert.Equal(t, "10", schedule.Flags().Lookup("days").DefValue)
	assert.NotNil(t, schedule.Flags().Lookup("from"))

	assert.Equal(t, "3", buildBlocksCommand().Flags().Lookup("blocks").DefValue)
	assert.Equal(t, "20", buildHistoryCommand().Flags().Lookup("limit").DefValue)
	assert.NotNil(t, buildServeCommand().Flags().Lookup("port"))

	var rosterSubs []string
	for _, c := range buildRosterCommand().Commands() {
		rosterSubs = append(rosterSubs, c.Name())
	}
	assert.ElementsMatch(t, []string{"list", "add", "remove", "move", "swap"}, rosterSubs)
}

// ============================================================================
// Configuration
// ============================================================================

func TestLoadConfig_ValidYAML(t *testing.T) {
	path := writeConfig(t, "en")

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	anchor, err := cfg.AnchorValue()
	require.NoError(t, err)
	assert.Equal(t, calendar.Date(2025, time.October, 9), anchor.Date)
	assert.Equal(t, "Pavel", anchor.Person)
	assert.Len(t, cfg.Roster, 8)
	assert.Equal(t, "en", cfg.LanguageTag().String())
	assert.False(t, cfg.Metrics.Enabled)

	// 未寫在檔案中的欄位沿用預設值
	assert.Equal(t, 50061, cfg.Server.Port)
	assert.Equal(t, "0 11 * * 1-5", cfg.Announce.Cron)
}

// 測試在套件目錄執行，相對的預設路徑不存在
func TestLoadConfig_DefaultPathMissing(t *testing.T) {
	cfg, err := loadConfig(defaultConfigPath)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"bad yaml", "anchor: [unclosed"},
		{"bad anchor date", "anchor: {date: \"09/10/2025\", person: Pavel}"},
		{"empty roster", "roster: []"},
		{"duplicate names", "roster: [Ana, ana]"},
		{"bad language", "language: \"!!\""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0644))
			_, err := loadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestConfig_LogLevel(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "INFO", cfg.LogLevel().String())

	cfg.Log.Level = "debug"
	assert.Equal(t, "DEBUG", cfg.LogLevel().String())

	cfg.Log.Level = "verbose"
	assert.Equal(t, "INFO", cfg.LogLevel().String())
}

// ============================================================================
// Commands against a local data directory
// ============================================================================

func TestTodayCommand(t *testing.T) {
	useFixedClock(t)
	cfg := writeConfig(t, "en")

	out := mustRun(t, "-c", cfg, "today")
	assert.Contains(t, out, "Lunch on 2025-10-21 (Tuesday): Pavel")

	out = mustRun(t, "-c", cfg, "today", "2025-10-25")
	assert.Contains(t, out, "Lunch on 2025-10-27 (Monday): Alan")

	_, err := runCLI(t, "-c", cfg, "today", "tomorrow")
	assert.Error(t, err)
}

func TestTodayCommand_Portuguese(t *testing.T) {
	useFixedClock(t)
	cfg := writeConfig(t, "pt-BR")

	mustRun(t, "-c", cfg, "restaurant", "2025-10-21", "Cantina", "da", "Nona")
	out := mustRun(t, "-c", cfg, "today")
	assert.Contains(t, out, "Almoço em 21/10/2025 (terça-feira): Pavel")
	assert.Contains(t, out, "Restaurante: Cantina da Nona")
}

func TestPassAndSkipPersist(t *testing.T) {
	useFixedClock(t)
	cfg := writeConfig(t, "en")

	out := mustRun(t, "-c", cfg, "pass")
	assert.Contains(t, out, "Lunch today is with Guilherme")
	assert.Contains(t, mustRun(t, "-c", cfg, "today"), "Guilherme")

	out = mustRun(t, "-c", cfg, "skip")
	assert.Contains(t, out, "Next business day goes to Guilherme")
	assert.Contains(t, mustRun(t, "-c", cfg, "today"), "No lunch duty on 2025-10-21 (Tuesday)")

	history := mustRun(t, "-c", cfg, "history")
	assert.Contains(t, history, "PASS_TURN")
	assert.Contains(t, history, "SKIP_DAY")
}

func TestExchangeCommand(t *testing.T) {
	useFixedClock(t)
	cfg := writeConfig(t, "en")

	out := mustRun(t, "-c", cfg, "exchange")
	assert.Contains(t, out, "Exchanged: today Guilherme, next business day Pavel")
}

func TestOverrideCommands(t *testing.T) {
	useFixedClock(t)
	cfg := writeConfig(t, "en")

	out := mustRun(t, "-c", cfg, "override", "set", "2025-10-22", "carolina")
	assert.Contains(t, out, "Override set: 2025-10-22 (Wednesday) -> Carolina")
	assert.Contains(t, mustRun(t, "-c", cfg, "override", "list"), "Carolina")
	assert.Contains(t, mustRun(t, "-c", cfg, "today", "2025-10-22"), "Carolina")

	_, err := runCLI(t, "-c", cfg, "override", "set", "2025-10-22", "Stranger")
	assert.ErrorIs(t, err, agenda.ErrUnknownPerson)

	assert.Contains(t, mustRun(t, "-c", cfg, "override", "clear", "2025-10-22"), "Override cleared")
	assert.Contains(t, mustRun(t, "-c", cfg, "override", "clear", "2025-10-22"), "No override")
}

func TestRosterCommands(t *testing.T) {
	useFixedClock(t)
	cfg := writeConfig(t, "en")

	assert.Contains(t, mustRun(t, "-c", cfg, "roster", "add", "Ana"), "Added Ana")
	_, err := runCLI(t, "-c", cfg, "roster", "add", "ana")
	assert.ErrorIs(t, err, agenda.ErrDuplicatePerson)

	assert.Contains(t, mustRun(t, "-c", cfg, "roster", "move", "ana", "1"), "Moved Ana to position 1")
	assert.Contains(t, mustRun(t, "-c", cfg, "roster", "swap", "victor", "chris"), "Swapped Victor and Chris")
	assert.Contains(t, mustRun(t, "-c", cfg, "roster", "remove", "ANA"), "Removed Ana")

	list := mustRun(t, "-c", cfg, "roster", "list")
	assert.NotContains(t, list, "Ana")
	assert.Less(t, strings.Index(list, "Chris"), strings.Index(list, "Victor"))

	// 錨點人員仍在錨點日期負責
	assert.Contains(t, mustRun(t, "-c", cfg, "today", "2025-10-09"), "Pavel")

	_, err = runCLI(t, "-c", cfg, "roster", "move", "Pavel", "zero")
	assert.Error(t, err)
}

func TestPreferCommand(t *testing.T) {
	useFixedClock(t)
	cfg := writeConfig(t, "en")

	assert.Contains(t, mustRun(t, "-c", cfg, "prefer", "pavel", "tue"), "Pavel avoids: Tuesday")
	assert.Contains(t, mustRun(t, "-c", cfg, "today"), "Guilherme")

	out := mustRun(t, "-c", cfg, "schedule", "--from", "2025-10-20", "--days", "4")
	assert.Contains(t, out, "Carolina")
	assert.Contains(t, out, "carried")
	assert.Contains(t, out, "today")

	assert.Contains(t, mustRun(t, "-c", cfg, "prefer", "Pavel"), "Pavel has no weekday preferences")

	_, err := runCLI(t, "-c", cfg, "prefer", "Pavel", "someday")
	assert.Error(t, err)
}

func TestBlocksCommand(t *testing.T) {
	useFixedClock(t)
	cfg := writeConfig(t, "en")

	out := mustRun(t, "-c", cfg, "blocks", "--blocks", "2")
	assert.Contains(t, out, "Block 2")
	assert.Contains(t, out, "Block 3")
	assert.NotContains(t, out, "Block 4")
}

func TestStatusCommand(t *testing.T) {
	useFixedClock(t)
	cfg := writeConfig(t, "en")

	out := mustRun(t, "-c", cfg, "status")
	assert.Contains(t, out, "Lunch Rotation Status")
	assert.Contains(t, out, "2025-10-21 (Tuesday) → Pavel")
	assert.Contains(t, out, "Disabled")
}

func TestScheduleCommand_DaysOutOfRange(t *testing.T) {
	useFixedClock(t)
	cfg := writeConfig(t, "en")

	for _, days := range []string{"-1", strconv.Itoa(server.MaxScheduleDays + 1), "1000000000"} {
		_, err := runCLI(t, "-c", cfg, "schedule", "--days", days)
		assert.Error(t, err, "days=%s", days)
	}
}

// ============================================================================
// Remote commands (--server)
// ============================================================================

func TestRemoteCommands(t *testing.T) {
	useFixedClock(t)
	cfg := writeConfig(t, "en")

	svc, err := agenda.New(agenda.Config{
		Anchor:  types.Anchor{Date: calendar.Date(2025, time.October, 9), Person: "Pavel"},
		Roster:  types.Roster{"Pavel", "Guilherme", "Victor", "Chris", "Alan", "Thiago", "Clayton", "Carolina"},
		DataDir: filepath.Join(t.TempDir(), "remote"),
		Clock:   now,
	}, nil)
	require.NoError(t, err)
	defer svc.Close()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	gs := server.NewGRPCServer(svc)
	go func() { _ = gs.Serve(lis) }()
	defer gs.Stop()

	addr := lis.Addr().String()

	assert.Contains(t, mustRun(t, "-c", cfg, "--server", addr, "today"), "Lunch on 2025-10-21 (Tuesday): Pavel")
	assert.Contains(t, mustRun(t, "-c", cfg, "--server", addr, "pass"), "Guilherme")
	assert.Contains(t, mustRun(t, "-c", cfg, "--server", addr, "schedule", "--days", "2"), "Victor")
	mustRun(t, "-c", cfg, "--server", addr, "override", "set", "2025-10-23", "Alan")

	who, err := svc.Resolve(calendar.Date(2025, time.October, 23))
	require.NoError(t, err)
	assert.Equal(t, "Alan", who)

	// 本地資料目錄不受遠端行動影響
	assert.Contains(t, mustRun(t, "-c", cfg, "today"), "Pavel")
}

func TestPortugueseCatalog(t *testing.T) {
	for _, tag := range []language.Tag{language.BrazilianPortuguese, language.Portuguese} {
		p := newPrinter(tag)
		for key, msg := range portuguese {
			assert.Equal(t, p.Sprintf(msg), p.Sprintf(key), "%s: %q", tag, key)
		}
	}
}
