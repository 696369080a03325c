// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"voicecoder/internal/config"
	"voicecoder/internal/domain/ports/repository"
	aiAdapters "voicecoder/internal/infra/adapters/ai"
	"voicecoder/internal/infra/api"
	"voicecoder/internal/infra/logging"
	"voicecoder/internal/infra/memstore"
	"voicecoder/internal/infra/metrics"
	red "voicecoder/internal/infra/redis"
	"voicecoder/internal/infra/security"
	"voicecoder/internal/usecase"
)

// set via -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "console logs and unredacted secrets")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister(nil)
	metrics.SetBuildInfo(version, commit)

	// ---- Storage ----
	var kv repository.KeyValueStore
	switch strings.ToLower(cfg.Storage.Backend) {
	case "redis":
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		kv = red.NewKVStore(redisClient)
		logger.Info().Str("url", logging.Redact(cfg.Redis.URL, cfg.Runtime.Dev)).Msg("storage: redis")
	default:
		kv = memstore.New()
		logger.Warn().Msg("storage: memory; usage and credentials are lost on restart")
	}

	// ---- Credentials ----
	var cipher security.Cipher
	if cfg.Security.EncryptionKey != "" {
		encSvc, err := security.NewEncryptionService(cfg.Security.EncryptionKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("encryption")
		}
		cipher = encSvc
	} else {
		logger.Warn().Msg("security.encryption_key not set; credentials stored unencrypted")
	}
	creds := security.NewCredentialStore(kv, cipher, cfg.Storage.SecretsKey)

	// ---- Providers ----
	overrides := make(map[string]aiAdapters.Override, len(cfg.AI.Providers))
	for id, o := range cfg.AI.Providers {
		overrides[strings.ToLower(id)] = aiAdapters.Override{BaseURL: o.BaseURL, Credential: o.APIKey}
		if o.APIKey != "" {
			logger.Info().Str("provider", id).Str("key", logging.Redact(o.APIKey, cfg.Runtime.Dev)).Msg("default credential configured")
		}
	}
	registry := aiAdapters.DefaultRegistry().WithOverrides(overrides)
	if _, ok := registry.Lookup(cfg.AI.DefaultProvider); !ok {
		logger.Fatal().Str("provider", cfg.AI.DefaultProvider).Msg("ai.default_provider is not a known provider")
	}
	factory := aiAdapters.NewFactory(registry, aiAdapters.NewMemoryProviderCache(),
		aiAdapters.WithHTTPClient(aiAdapters.NewHTTPClient(cfg.AI.Timeout)),
		aiAdapters.WithLogger(logger),
	)

	// ---- Use cases ----
	ledger, err := usecase.NewUsageLedger(ctx, kv, cfg.Storage.UsageKey, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("usage ledger")
	}
	assistant := usecase.NewAssistantUseCase(
		registry,
		factory,
		ledger,
		creds,
		kv,
		aiAdapters.NewTokenCounter(logger),
		cfg.AI.DefaultProvider,
		logger,
	)

	// ---- HTTP ----
	srv := api.NewServer(assistant, logger, api.Options{RequestTimeout: cfg.HTTP.RequestTimeout})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	factory.ClearCache()
}
