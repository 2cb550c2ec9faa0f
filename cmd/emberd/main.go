package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"emberchain/config"
	"emberchain/core/types"
	"emberchain/gateway"
	"emberchain/native/certificate"
	"emberchain/native/emission"
	"emberchain/native/halving"
	"emberchain/native/ledger"
	"emberchain/observability/logging"
	"emberchain/storage"
)

const shutdownGrace = 10 * time.Second

func main() {
	configFile := flag.String("config", "./emberd.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("EMBER_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if env == "" {
		env = cfg.LogEnv
	}
	logger := logging.Setup("emberd", env, logging.FileOptions{
		Path:      cfg.LogFile,
		MaxSizeMB: cfg.LogFileMaxMB,
	})

	engineAddr, err := cfg.Engine()
	if err != nil {
		logger.Error("Failed to resolve engine address", slog.Any("error", err))
		os.Exit(1)
	}
	owner, err := cfg.Owner()
	if err != nil {
		logger.Error("Failed to resolve owner address", slog.Any("error", err))
		os.Exit(1)
	}
	if owner == ([20]byte{}) {
		owner = engineAddr
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		panic(fmt.Sprintf("Failed to prepare data directory: %v", err))
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "certificates"))
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	genesis, err := cfg.GenesisBalances()
	if err != nil {
		logger.Error("Failed to parse genesis allocations", slog.Any("error", err))
		os.Exit(1)
	}

	recorder := types.NewMemoryRecorder()

	token := ledger.NewToken(genesis)
	session, err := token.Bind(engineAddr)
	if err != nil {
		panic(fmt.Sprintf("Failed to bind ledger: %v", err))
	}

	registry := certificate.NewRegistry(db)
	issuer, err := registry.Bind(engineAddr)
	if err != nil {
		panic(fmt.Sprintf("Failed to bind certificate registry: %v", err))
	}

	controller := halving.NewController(owner, recorder)
	if err := controller.SetRewardEngine(engineAddr); err != nil {
		panic(fmt.Sprintf("Failed to register reward engine: %v", err))
	}
	if err := controller.SetStatsSource(session); err != nil {
		panic(fmt.Sprintf("Failed to register stats source: %v", err))
	}

	params := emission.Params{
		BaseRatePerHour:          cfg.Emission.BaseRatePerHour,
		CooldownCeilingSeconds:   cfg.Emission.CooldownCeilingSeconds,
		CooldownFloorSeconds:     cfg.Emission.CooldownFloorSeconds,
		CooldownPerActiveSeconds: cfg.Emission.CooldownPerActiveSeconds,
		ActivityWindowSeconds:    cfg.Emission.ActivityWindowSeconds,
	}
	engine, err := emission.NewEngine(engineAddr, params, emission.CryptoEntropy{}, recorder)
	if err != nil {
		logger.Error("Failed to construct emission engine", slog.Any("error", err))
		os.Exit(1)
	}
	if err := controller.SetStakeView(engine); err != nil {
		panic(fmt.Sprintf("Failed to register stake view: %v", err))
	}
	if err := engine.SetLedger(session); err != nil {
		panic(fmt.Sprintf("Failed to bind engine ledger: %v", err))
	}
	if err := engine.SetCertificateRegistry(issuer); err != nil {
		panic(fmt.Sprintf("Failed to bind engine registry: %v", err))
	}
	if err := engine.SetHalvingController(controller); err != nil {
		panic(fmt.Sprintf("Failed to bind halving controller: %v", err))
	}

	server := gateway.NewServer(engine, token, registry, controller, logger)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("emberd listening",
			slog.String("address", cfg.ListenAddress),
			slog.String("network", cfg.NetworkName))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", slog.Any("error", err))
	}
}
