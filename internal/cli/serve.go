package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ChuLiYu/lunch-rotation/internal/announce"
	"github.com/ChuLiYu/lunch-rotation/internal/calendar"
	"github.com/ChuLiYu/lunch-rotation/internal/metrics"
	"github.com/ChuLiYu/lunch-rotation/internal/server"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func buildServeCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the lunch rotation server",
		Long: `Start the long-running server:
- gRPC service lunchrota.v1.Rotation
- Prometheus metrics on /metrics (if enabled)
- Daily announcer driven by a cron expression (if enabled)
- Data directory watcher that reloads state edited by other processes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			setupLogging(cmd.ErrOrStderr(), cfg.LogLevel())

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cmd, cfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "gRPC port (default from config server.port)")

	return cmd
}

func runServer(ctx context.Context, cmd *cobra.Command, cfg *Config) error {
	logger := slog.Default()
	logger.Info("Starting Lunch Rotation server", "config", configFile, "data_dir", cfg.DataDir)

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
	}

	svc, err := openService(cfg, collector)
	if err != nil {
		return err
	}
	defer svc.Close()

	// Metrics
	if cfg.Metrics.Enabled {
		ms := metrics.NewServer(cfg.Metrics.Port)
		go func() {
			logger.Info("Starting metrics server", "addr", ms.Addr)
			if err := ms.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			ms.Shutdown(shutdownCtx)
		}()
	}

	// gRPC
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", cfg.Server.Port, err)
	}
	gs := server.NewGRPCServer(svc)
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("gRPC server listening", "addr", lis.Addr().String())
		serveErr <- gs.Serve(lis)
	}()
	defer gs.GracefulStop()

	// Announcer
	if cfg.Announce.Enabled {
		view := newView(cmd.OutOrStdout(), cfg.LanguageTag(), svc.Today())
		notify := func(a announce.Announcement) {
			view.printf(msgAnnouncement, calendar.Label(a.Date, view.tag), a.Person)
		}
		ann, err := announce.New(cfg.Announce.Cron, svc, notify, collector)
		if err != nil {
			return err
		}
		ann.Start()
		defer func() { <-ann.Stop().Done() }()
	}

	// Watcher
	watchCtx, cancelWatch := context.WithCancel(ctx)
	watchDone, err := svc.Repository().Watch(watchCtx, func() {
		logger.Info("State documents changed on disk, reloading")
		svc.Reload()
	})
	if err != nil {
		cancelWatch()
		return err
	}
	defer func() {
		cancelWatch()
		<-watchDone
	}()

	logger.Info("System started successfully")

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal, stopping gracefully...")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("gRPC server failed: %w", err)
		}
	}

	logger.Info("System stopped. Goodbye!")
	return nil
}
