package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netonia/POIMapper/internal/app"
	"github.com/Netonia/POIMapper/internal/config"
	"github.com/Netonia/POIMapper/pkg/logging"
)

func main() {
	configPath := flag.String("config", os.Getenv("POIMAPPER_CONFIG"), "path to YAML config file")
	flag.Parse()

	logging.Setup()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logging.SetupWithLevel(logging.ParseLevel(cfg.Log.Level))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Serve(ctx); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
