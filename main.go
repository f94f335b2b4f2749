package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"evidence-bot/archive"
	"evidence-bot/assistant"
	"evidence-bot/bot"
	"evidence-bot/config"
	"evidence-bot/docs"
	"evidence-bot/excerpt"
	"evidence-bot/export"
	"evidence-bot/pipeline"
	"evidence-bot/scheduler"
	"evidence-bot/search"
	"evidence-bot/sheets"
	"evidence-bot/translate"
	"evidence-bot/web"
	"evidence-bot/webhook"
)

func main() {
	// Set up structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	slog.Info("starting evidence collection bot")

	// Load .env for local development; missing file is fine
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}

	// Load configuration
	configPath := config.GetConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("config loaded", "path", configPath)

	// Initialize record archive
	db, err := archive.NewDB(cfg.DBPath)
	if err != nil {
		slog.Error("failed to initialize archive", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("archive initialized", "path", cfg.DBPath)

	// Initialize search index
	idx, err := search.NewMemIndex()
	if err != nil {
		slog.Error("failed to initialize search index", "error", err)
		os.Exit(1)
	}
	defer idx.Close()

	fetchTimeout := time.Duration(cfg.FetchTimeoutSecs) * time.Second

	// Row source: spreadsheet API, or a local xlsx export for offline use
	var source pipeline.RowSource
	if cfg.SheetFile != "" {
		source = sheets.NewFileSource(cfg.SheetFile, cfg.SheetName)
		slog.Info("using xlsx row source", "path", cfg.SheetFile)
	} else {
		source = sheets.NewClient(cfg.SpreadsheetID, cfg.SheetName, cfg.GoogleAPIKey,
			sheets.WithTimeout(fetchTimeout))
	}

	translator := translate.NewTranslator(
		translate.NewClient(cfg.GoogleAPIKey, translate.WithTimeout(fetchTimeout)),
		cfg.SourceLang, cfg.TargetLang,
	)

	docSink := docs.NewClient(cfg.DocumentID, cfg.GoogleAPIKey, docs.WithTimeout(fetchTimeout))
	notifier := webhook.NewNotifier(cfg.DiscordWebhookURL, webhook.WithTimeout(fetchTimeout))

	loopOpts := []pipeline.Option{
		pipeline.WithInterval(time.Duration(cfg.PollIntervalSecs) * time.Second),
		pipeline.WithRecordSinks(db, idx),
	}
	if cfg.FetchExcerpts {
		loopOpts = append(loopOpts, pipeline.WithExcerpter(
			excerpt.NewFetcher(excerpt.WithTimeout(fetchTimeout))))
	}

	loop := pipeline.NewLoop(source, translator, docSink, notifier, loopOpts...)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Schedule the daily structured-data export snapshot
	sched, err := scheduler.New(cfg.Timezone)
	if err != nil {
		slog.Error("failed to initialize scheduler", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}
	if err := sched.ScheduleDaily("export", cfg.ExportTime, func() {
		if err := export.Write(cfg.ExportPath, loop.Store().Snapshot()); err != nil {
			slog.Warn("export snapshot failed", "path", cfg.ExportPath, "error", err)
			return
		}
		slog.Info("export snapshot written", "path", cfg.ExportPath, "records", loop.Store().Len())
	}); err != nil {
		slog.Error("failed to schedule export", "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()
	slog.Info("export scheduled", "time", cfg.ExportTime, "timezone", cfg.Timezone)

	// Start the HTTP API
	server := web.NewServer(loop, source, loop.Store(), idx)
	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: server.Handler()}
	go func() {
		slog.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			cancel()
		}
	}()

	// Start the Discord command bot if a token is configured
	if cfg.DiscordToken != "" {
		var asker bot.Asker
		if cfg.OpenAIAPIKey != "" {
			asker = assistant.NewAssistant(cfg.OpenAIAPIKey, assistant.WithModel(cfg.OpenAIModel))
		}

		handler := bot.NewCommandHandler(source, loop.Store(), asker, idx, bot.Status{
			OpenAI:      cfg.OpenAIAPIKey != "",
			GoogleAPI:   cfg.GoogleAPIKey != "",
			Spreadsheet: cfg.SpreadsheetID != "" || cfg.SheetFile != "",
			Document:    cfg.DocumentID != "",
			Webhook:     cfg.DiscordWebhookURL != "",
		})

		discordBot, err := bot.New(cfg.DiscordToken, handler)
		if err != nil {
			slog.Error("failed to create discord bot", "error", err)
			os.Exit(1)
		}
		if err := discordBot.Open(); err != nil {
			slog.Error("failed to connect discord bot", "error", err)
			os.Exit(1)
		}
		defer discordBot.Close()
	}

	// Run the ingestion loop in the foreground
	loop.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http server shutdown failed", "error", err)
	}

	// Final export snapshot on the way out
	if err := export.Write(cfg.ExportPath, loop.Store().Snapshot()); err != nil {
		slog.Warn("final export snapshot failed", "error", err)
	}

	slog.Info("evidence collection bot stopped")
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
