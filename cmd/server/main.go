package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	"github.com/Church-Life-Apps/Backend/internal/backup"
	"github.com/Church-Life-Apps/Backend/internal/config"
	"github.com/Church-Life-Apps/Backend/internal/database"
	"github.com/Church-Life-Apps/Backend/internal/handlers"
	"github.com/Church-Life-Apps/Backend/internal/logging"
	"github.com/Church-Life-Apps/Backend/internal/service"
	"github.com/Church-Life-Apps/Backend/internal/typesense"
	"github.com/Church-Life-Apps/Backend/internal/webhook"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	out, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := db.MigrateUp(); err != nil {
			return err
		}
	}

	var opts []service.Option

	if !cfg.DisableTypesense {
		ts, err := typesense.New(ctx, cfg.TypesenseAPIKey, cfg.TypesenseHost)
		if err != nil {
			return err
		}
		opts = append(opts, service.WithMirror(ts))
	} else {
		log.Warn().Msg("typesense is disabled, the search mirror will not be updated")
	}

	if notifier := webhook.New(&webhook.Config{URL: cfg.WebhookURL}); notifier.IsEnabled() {
		opts = append(opts, service.WithNotifier(notifier))
	} else {
		log.Info().Msg("no webhook configured, moderation outcomes are only logged")
	}

	var backups handlers.Backups
	if !cfg.DisableBackups {
		manager := backup.NewManager(cfg.DatabaseURL, cfg.BackupDir, cfg.BackupEveryEdits)
		manager.Start(ctx)
		backups = manager
		opts = append(opts, service.WithEditRecorder(manager))
	} else {
		log.Warn().Msg("backups are disabled")
	}

	svc := service.New(db, opts...)
	defer svc.Close()

	app := fiber.New(fiber.Config{
		AppName:      "Church Life Songs",
		ServerHeader: "CLA",
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		Output: out,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	handlers.New(svc, backups).Register(app.Group("/api"))

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error shutting down server")
		}
	}()

	log.Info().
		Str("port", cfg.Port).
		Str("backupDir", cfg.BackupDir).
		Bool("typesense", !cfg.DisableTypesense).
		Msg("server starting")

	return app.Listen(":" + cfg.Port)
}
