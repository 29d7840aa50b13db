package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dp-normalizer/api/internal/analysis"
	"dp-normalizer/api/internal/handle"
	"dp-normalizer/api/internal/httpserver"
	"dp-normalizer/api/internal/logger"
	"dp-normalizer/api/internal/metrics"
	"dp-normalizer/api/internal/normalize"
	"dp-normalizer/api/internal/photo"
	"dp-normalizer/api/internal/store"
	"dp-normalizer/api/internal/telegram"
)

func serveCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, port)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Listen port (defaults to PORT or 8000)")
	return cmd
}

func serve(ctx context.Context, port string) error {
	log := logger.FromContext(ctx)
	m := metrics.New()
	a, err := newApp(normalize.WithRecorder(m))
	if err != nil {
		return err
	}
	if port == "" {
		port = a.cfg.Port
	}

	svc := &analysis.Service{
		Invoker:    a.engines,
		Photos:     photo.Loader{Root: a.cfg.UploadDir},
		Prompts:    a.prompts,
		Normalizer: a.normalizer,
	}
	h := handle.New(a.profiles, svc, a.normalizer)
	h.Prompts = a.prompts
	h.Timeout = a.cfg.RequestTimeout

	if a.cfg.DatabaseURL != "" {
		pool, err := store.Open(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := store.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		records := store.NewRecordRepo(pool)
		h.Records = records
		h.Attempts = store.NewAttemptRepo(pool)
		h.Ping = pool.Ping
		go purgeLoop(ctx, records, a.cfg.RetentionPeriod)
	} else {
		log.Warn("DATABASE_URL is empty; records are not stored")
	}

	if a.cfg.AlertsEnabled() {
		bot, err := telegram.NewBot(a.cfg.TelegramToken)
		if err != nil {
			log.Error("telegram alerts disabled", "error", err)
		} else {
			svc.Alerts = &telegram.Notifier{Bot: bot, ChatID: a.cfg.TelegramChatID}
			cmds := &telegram.Commands{Bot: bot, ChatID: a.cfg.TelegramChatID, Profiles: a.profiles, Health: h.Ping}
			go cmds.Run(ctx)
		}
	}

	mux := http.NewServeMux()
	h.Register(mux)
	mux.Handle("/metrics", m.Handler())

	log.Info("profiles loaded", "default", a.profiles.Default().Key, "available", a.profiles.Keys())
	return httpserver.Run(ctx, ":"+port, mux)
}

// purgeLoop drops stale session records once a day.
func purgeLoop(ctx context.Context, repo *store.RecordRepo, retention time.Duration) {
	if retention <= 0 {
		return
	}
	t := time.NewTicker(24 * time.Hour)
	defer t.Stop()
	for {
		n, err := repo.PurgeOlderThan(ctx, retention)
		if err != nil {
			logger.FromContext(ctx).Warn("purge failed", "error", err)
		} else if n > 0 {
			logger.FromContext(ctx).Info("purged records", "count", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
