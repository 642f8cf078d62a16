// ============================================================================
// Lunch Rotation CLI - Command Line Interface
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: Cobra-based command line interface for the lunch rotation agenda
//
// Command Structure:
//   lunchrota                        # Root command
//   ├── today [date]                 # Who is on lunch duty
//   ├── schedule --from --days       # Upcoming business days (with carries)
//   ├── blocks --blocks              # Full-roster blocks starting at today's cycle
//   ├── pass                         # Today's person passes (phase +1)
//   ├── skip                         # Nobody today (phase -1)
//   ├── exchange                     # Today <-> next business day
//   ├── override set|clear|list      # Manual assignments
//   ├── prefer <name> [weekdays...]  # Weekday avoidance
//   ├── roster list|add|remove|move|swap
//   ├── restaurant <date> [name...]  # Restaurant note for a date
//   ├── history --limit              # Action journal
//   ├── status                       # Configuration and state summary
//   ├── serve --port                 # gRPC + metrics + announcer + file watcher
//   ├── --config, -c                 # Config file (default: configs/default.yaml)
//   └── --server                     # Remote gRPC server for today/schedule/pass/skip/override set
//
// Configuration Management:
//   YAML config (see config.go). Missing fields take DefaultConfig values;
//   a missing default config file means "run with built-in defaults".
//
// Persistence Failures:
//   Actions are applied in memory even when saving fails. The CLI prints a
//   warning instead of failing the command (agenda.PersistError).
//
// ============================================================================

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ChuLiYu/lunch-rotation/internal/agenda"
	"github.com/ChuLiYu/lunch-rotation/internal/calendar"
	"github.com/ChuLiYu/lunch-rotation/internal/metrics"
	"github.com/ChuLiYu/lunch-rotation/internal/server"
	"github.com/spf13/cobra"
)

var (
	configFile string
	serverAddr string

	// now 供測試替換
	now = time.Now
)

const remoteTimeout = 10 * time.Second

func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lunchrota",
		Short: "Lunch Rotation: who buys lunch today",
		Long: `Lunch Rotation keeps a fair business-day rotation for a team lunch:
- Deterministic roster rotation anchored on a fixed date
- Manual overrides, weekday avoidance with carry-over
- Pass, skip and exchange without breaking the cycle
- gRPC server, Prometheus metrics and a daily announcer`,
		Version:      "1.0.0",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", defaultConfigPath, "config file path")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "", "gRPC server address (e.g. localhost:50061) for remote commands")

	rootCmd.AddCommand(buildTodayCommand())
	rootCmd.AddCommand(buildScheduleCommand())
	rootCmd.AddCommand(buildBlocksCommand())
	rootCmd.AddCommand(buildPassCommand())
	rootCmd.AddCommand(buildSkipCommand())
	rootCmd.AddCommand(buildExchangeCommand())
	rootCmd.AddCommand(buildOverrideCommand())
	rootCmd.AddCommand(buildPreferCommand())
	rootCmd.AddCommand(buildRosterCommand())
	rootCmd.AddCommand(buildRestaurantCommand())
	rootCmd.AddCommand(buildHistoryCommand())
	rootCmd.AddCommand(buildStatusCommand())
	rootCmd.AddCommand(buildServeCommand())

	return rootCmd
}

// ============================================================================
// Session: config + agenda service + output view
// ============================================================================

type session struct {
	cfg  *Config
	svc  *agenda.Service
	view *view
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	setupLogging(cmd.ErrOrStderr(), cfg.LogLevel())

	svc, err := openService(cfg, nil)
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:  cfg,
		svc:  svc,
		view: newView(cmd.OutOrStdout(), cfg.LanguageTag(), svc.Today()),
	}, nil
}

func (s *session) Close() {
	s.svc.Close()
}

// report 寫入失敗只印出警告，其他錯誤照常回傳
func (s *session) report(err error) error {
	if err == nil {
		return nil
	}
	if agenda.IsPersistError(err) {
		s.view.printf(msgPersistWarning, err)
		return nil
	}
	return err
}

func openService(cfg *Config, collector *metrics.Collector) (*agenda.Service, error) {
	anchor, err := cfg.AnchorValue()
	if err != nil {
		return nil, err
	}
	svc, err := agenda.New(agenda.Config{
		Anchor:  anchor,
		Roster:  cfg.Roster,
		DataDir: cfg.DataDir,
		Clock:   now,
	}, collector)
	if err != nil {
		return nil, fmt.Errorf("failed to open agenda in %s: %w", cfg.DataDir, err)
	}
	return svc, nil
}

// remoteSession 連到 --server 指定的伺服器
type remoteSession struct {
	client *server.Client
	view   *view
	close  func() error
}

func openRemote(cmd *cobra.Command) (*remoteSession, error) {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	setupLogging(cmd.ErrOrStderr(), cfg.LogLevel())

	conn, err := server.Dial(serverAddr)
	if err != nil {
		return nil, err
	}
	return &remoteSession{
		client: server.NewClient(conn),
		view:   newView(cmd.OutOrStdout(), cfg.LanguageTag(), calendar.NextBusinessDay(now())),
		close:  conn.Close,
	}, nil
}

func (r *remoteSession) Close() {
	r.close()
}

func remoteContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), remoteTimeout)
}

func setupLogging(w io.Writer, level slog.Level) {
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	slog.SetLogLoggerLevel(level)
}

// ============================================================================
// status
// ============================================================================

func buildStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show system status",
		Long:  "Display configuration, rotation state and journal position",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus(cmd)
		},
	}
	return cmd
}

func showStatus(cmd *cobra.Command) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.svc.Status()
	if err != nil {
		return err
	}
	tag := s.cfg.LanguageTag()
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "\n╔═══════════════════════════════════════════════════════════╗")
	fmt.Fprintln(out, "║           Lunch Rotation Status                           ║")
	fmt.Fprintln(out, "╚═══════════════════════════════════════════════════════════╝")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "📋 Configuration:")
	fmt.Fprintf(out, "  ├─ Config File:  %s\n", configFile)
	fmt.Fprintf(out, "  ├─ Anchor:       %s / %s\n", s.cfg.Anchor.Date, s.cfg.Anchor.Person)
	fmt.Fprintf(out, "  ├─ Language:     %s\n", tag)
	fmt.Fprintf(out, "  └─ Data Dir:     %s\n", st.DataDir)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "🍽  Rotation:")
	fmt.Fprintf(out, "  ├─ Today:        %s → %s\n", calendar.Label(st.Today, tag), st.Assignee)
	fmt.Fprintf(out, "  ├─ Next:         %s → %s\n", calendar.Label(st.Next, tag), st.NextPerson)
	fmt.Fprintf(out, "  ├─ Roster Size:  %d\n", st.RosterSize)
	fmt.Fprintf(out, "  ├─ Offset:       %d\n", st.Offset)
	fmt.Fprintf(out, "  ├─ Overrides:    %d\n", st.Overrides)
	fmt.Fprintf(out, "  └─ Preferences:  %d\n", st.Preferences)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "📒 Journal:")
	fmt.Fprintf(out, "  ├─ File:         %s\n", st.JournalPath)
	fmt.Fprintf(out, "  └─ Last Seq:     %d\n", st.JournalSeq)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "📡 Metrics:")
	if s.cfg.Metrics.Enabled {
		fmt.Fprintf(out, "  └─ Status: ✅ Enabled on http://localhost:%d/metrics (serve)\n", s.cfg.Metrics.Port)
	} else {
		fmt.Fprintln(out, "  └─ Status: ⚠️  Disabled")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════")
	return nil
}
