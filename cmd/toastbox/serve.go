package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/devaloi/toastbox/internal/config"
	"github.com/devaloi/toastbox/internal/handler"
	"github.com/devaloi/toastbox/internal/hub"
	"github.com/devaloi/toastbox/internal/logger"
	"github.com/devaloi/toastbox/internal/store"
	"github.com/devaloi/toastbox/internal/tracing"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var envFiles []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		Long: `Run the toastbox server. Configuration is read from the environment
and optional .env files; see PORT, DB_PATH, MAX_PROVIDERS, MAX_SNACK_BAR,
DEFAULT_DURATION, CAPACITY_POLICY, HISTORY_LIMIT, LOG_LEVEL, LOG_FORMAT and
TRACE_STDOUT.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFiles...)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringSliceVar(&envFiles, "env-file", nil, "Env files to load (default .env if present)")

	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	level, _ := logger.ParseLevel(cfg.LogLevel)
	format, _ := logger.ParseFormat(cfg.LogFormat)
	log := logger.New(
		logger.WithLevel(level),
		logger.WithFormat(format),
		logger.WithAttr(slog.String("service", "toastbox"), slog.String("version", version)),
	)

	var tp *tracing.Provider
	if cfg.TraceStdout {
		var err error
		tp, err = tracing.Setup("toastbox", os.Stdout)
		if err != nil {
			return err
		}
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Error("tracer shutdown", slog.Any("error", err))
		}
	}()

	history, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("history store: %w", err)
	}
	defer history.Close()

	h := hub.New(history, hub.Config{
		MaxProviders: cfg.MaxProviders,
		Toast:        cfg.Toast(),
	}, hub.WithLogger(log))

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: handler.NewRouter(handler.RouterConfig{
			Hub:          h,
			History:      history,
			HistoryLimit: cfg.HistoryLimit,
			Logger:       log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h.Run()
		return nil
	})
	g.Go(func() error {
		log.Info("toastbox listening",
			slog.String("addr", srv.Addr),
			slog.String("policy", cfg.CapacityPolicy),
			slog.Int("max_snack_bar", cfg.MaxSnackBar),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		h.Stop()
		return err
	})

	return g.Wait()
}
