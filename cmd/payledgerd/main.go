package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"payledger/config"
	"payledger/observability/logging"
	telemetry "payledger/observability/otel"
	"payledger/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to the genesis YAML file (overrides config GenesisFile)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if override := strings.TrimSpace(*genesisFlag); override != "" {
		cfg.GenesisFile = override
	} else {
		cfg.GenesisFile = resolvePath(filepath.Dir(*configFile), cfg.GenesisFile)
	}

	logger := logging.Setup("payledgerd", cfg.Env, logging.Options{
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "payledgerd",
		Environment: cfg.Env,
		Endpoint:    cfg.OTel.Endpoint,
		Insecure:    cfg.OTel.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.OTel.Headers),
		Metrics:     cfg.OTel.Metrics,
		Traces:      cfg.OTel.Traces,
		ChainID:     cfg.ChainID,
		Ledger:      cfg.LedgerAddress,
	})
	if err != nil {
		logger.Error("Failed to initialise telemetry", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		_ = shutdownTelemetry(context.Background())
	}()

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("Failed to open database", slog.String("dataDir", cfg.DataDir), slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	d, err := newDaemon(cfg, db, logger)
	if err != nil {
		logger.Error("Failed to start ledger", slog.Any("error", err))
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Serve(ctx); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func resolvePath(baseDir, path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || filepath.IsAbs(trimmed) || baseDir == "" {
		return trimmed
	}
	return filepath.Join(baseDir, trimmed)
}
