package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/attendrix/server/internal/attendrix/match"
	"github.com/attendrix/server/internal/attendrix/service"
	"github.com/attendrix/server/internal/config"
	"github.com/attendrix/server/internal/httpapi"
	"github.com/attendrix/server/internal/logging"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the attendance server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd, configFile)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	logging.SetDebug(cfg.Debug)
	logger := logging.L

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := openEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	// Prime the matching snapshot before accepting scans.
	if err := env.index.Refresh(ctx); err != nil {
		return err
	}
	go refreshLoop(ctx, env.index, cfg.Matcher.RefreshInterval)

	sweeper := service.NewAbsenceSweeper(env.registry, env.attendance, service.SweeperConfig{
		Location: cfg.Location(),
		Interval: cfg.Sweep.Interval,
	}, logger)
	if cfg.Sweep.Enabled {
		sweeper.Start(ctx)
		defer sweeper.Stop()
	}

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:      logger,
		Addr:        cfg.HTTPAddr,
		Scans:       env.scans,
		Enrollments: env.enrollments,
		Ledger:      env.attendance,
		Location:    cfg.Location(),
	})

	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr, "env", cfg.Env)
		if err := srv.Start(); err != nil {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// refreshLoop keeps the embedding snapshot bounded-stale.  A failed
// refresh is logged and the matcher keeps serving the previous snapshot.
func refreshLoop(ctx context.Context, index *match.Index, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := index.Refresh(ctx); err != nil {
				logging.Warnf("embedding refresh failed: %v", err)
			}
		}
	}
}
