package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"saku/internal/backend"
	"saku/internal/cli"
	"saku/internal/log"
	"saku/internal/sheets"
	memmirror "saku/internal/sheets/memory"
	"saku/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger().WithComponent(log.ComponentWorker)
	logger.Info("Starting saku-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required to consume journal events")
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	rt, err := cli.OpenRuntime(ctx, cfg, logger, backend.RoleWorker)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	var mirror sheets.JournalMirror = rt.Backend.Mirror
	var devMirror *memmirror.Mirror
	if mirror == nil {
		devMirror = memmirror.New()
		mirror = devMirror
		logger.Info("Google Sheets disabled - mirroring to memory (no GOOGLE_SPREADSHEET_ID provided)")
	}
	mirrorWorker := worker.NewMirrorWorker(rt.Backend.Store, mirror, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := rt.Backend.AMQP.ConsumeJournalEvents(gctx, mirrorWorker.HandleMessage)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	runErr := g.Wait()
	if devMirror != nil {
		logger.Info("Memory mirror contents at shutdown", "rows", len(devMirror.Rows()), "voids", len(devMirror.Voids()))
	}
	if err := rt.Close(); err != nil {
		logger.Error("Failed to release backend", log.FieldError, err)
	}
	if runErr != nil {
		logger.Error("Message consumption failed", log.FieldError, runErr)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
