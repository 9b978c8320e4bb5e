// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"

	"github.com/danielhkuo/panelsurvey/cliparse"
	"github.com/danielhkuo/panelsurvey/db"
	"github.com/danielhkuo/panelsurvey/middleware"
	"github.com/danielhkuo/panelsurvey/questionnaire"
	"github.com/danielhkuo/panelsurvey/router"
	"github.com/danielhkuo/panelsurvey/store"
)

const (
	shutdownTimeout = 10 * time.Second
	visitorSweep    = time.Minute
)

// setupLogging uses readable text on a terminal and JSON everywhere else
func setupLogging() {
	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		handler = slog.NewTextHandler(os.Stderr, nil)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	}
	slog.SetDefault(slog.New(handler))
}

func main() {
	setupLogging()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn(".env file not loaded", "error", err)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	if cfg.QuestionnaireFile != "" {
		f, err := questionnaire.LoadFile(cfg.QuestionnaireFile)
		if err != nil {
			slog.Error("questionnaire invalid", "file", cfg.QuestionnaireFile, "error", err)
			os.Exit(1)
		}
		res, err := questionnaire.Seed(ctx, store.NewSQLStore(dbConn), f)
		if err != nil {
			slog.Error("questionnaire seeding failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Questionnaire seeded", "phases", res.Phases, "questions", res.Questions)
	}

	if cfg.AdminPasswordHash == "" {
		slog.Warn("ADMIN_PASSWORD_HASH is not set; admin login is disabled")
	}
	if cfg.OpenAIKey == "" {
		slog.Info("OPENAI_API_KEY is not set; AI summaries are disabled")
	}

	limiter := middleware.NewRateLimiter(cfg.RegisterRate, router.RegisterBurst)
	go limiter.Run(ctx, visitorSweep)

	server := http.Server{
		Handler:           middleware.CORS(router.NewRouter(dbConn, cfg, limiter)),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("graceful shutdown failed", "error", err)
			server.Close()
		}
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
