package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rdeepak-711/spotify-playlist-app/internal/server"
	"github.com/rdeepak-711/spotify-playlist-app/internal/tasks"
	"github.com/urfave/cli/v3"
)

const drainTimeout = 30 * time.Second

// Serve runs the HTTP API until the process is interrupted, then drains the task pool.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.cfg()

	host := cfg.Server.Host
	if h := cmd.String("host"); h != "" {
		host = h
	}
	port := cfg.Server.Port
	if p := cmd.Int("port"); p > 0 {
		port = p
	}

	store, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	mgr, err := r.tokenManager(ctx)
	if err != nil {
		return err
	}
	engine, err := r.syncEngine(ctx)
	if err != nil {
		return err
	}
	ledger, err := r.ledger(ctx, true)
	if err != nil {
		return err
	}

	pool := tasks.NewPool(cfg.Sync.Workers, cfg.Sync.QueueSize, r.logger)
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
		defer cancel()
		if err := pool.Shutdown(drainCtx); err != nil {
			r.logger.Warn("background tasks did not finish", "err", err)
		}
	}()

	api := server.New(server.Deps{
		Store:       store,
		Auth:        mgr,
		Scheduler:   tasks.NewScheduler(engine, pool, r.logger),
		Ledger:      ledger,
		FrontendURL: cfg.Server.FrontendURL,
		Origins:     cfg.Server.FrontendOrigins,
		Logger:      r.logger,
	})

	return server.ListenAndServe(ctx, fmt.Sprintf("%s:%d", host, port), api, r.logger)
}
