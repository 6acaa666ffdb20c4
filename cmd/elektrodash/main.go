package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/elektroapp/elektrodash/pkg/api"
	"github.com/elektroapp/elektrodash/pkg/dashboard"
	"github.com/elektroapp/elektrodash/pkg/log"
	"github.com/elektroapp/elektrodash/pkg/server"
	"github.com/elektroapp/elektrodash/pkg/storage"
	"github.com/joho/godotenv"
	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	// .env may provide PORT and FIRESTORE_EMULATOR_HOST
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", slog.Any("error", err))
	}

	// init packages
	a := api.Configured()
	s := storage.Configured()
	prefs := storage.NewPreferences(s)
	dash := dashboard.Configured(a, prefs)

	// init server
	srv := server.Configured(dash, prefs)

	logFile := lflag.String("log-file", "", "Also write logs to this file, rotated at 25MB")

	// parse flags
	lflag.Configure()

	var level slog.Level
	// lflag automatically sets llog's level, but we need to set the slog level
	switch llog.GetLevel() {
	case llog.DebugLevel:
		level = slog.LevelDebug
	case llog.InfoLevel:
		level = slog.LevelInfo
	case llog.WarnLevel:
		level = slog.LevelWarn
	case llog.ErrorLevel:
		level = slog.LevelError
	default:
		panic(fmt.Errorf("unknown log level: %s", llog.GetLevel().String()))
	}

	var out io.Writer = os.Stdout
	if *logFile != "" {
		logWriter := &lumberjack.Logger{
			Filename:   *logFile,
			MaxSize:    25,
			MaxBackups: 10,
			MaxAge:     14,
			Compress:   true,
		}
		defer logWriter.Close()
		out = io.MultiWriter(os.Stdout, logWriter)
	}
	log.SetDefaultLogLevel(level)
	slog.SetDefault(log.SetOutput(out))
	slog.Debug("logger configured", slog.String("level", level.String()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer func() {
		if err := s.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close preference store", "error", err)
		}
	}()

	if err := prefs.Init(ctx); err != nil {
		// defaults still work, so keep going
		log.Ctx(ctx).WarnContext(ctx, "failed to load preferences", "error", err)
	}

	dash.Start(ctx)
	defer dash.Close()

	// Run will block until context is canceled or error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", "error", err)
		dash.Close()
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
