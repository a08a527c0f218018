package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IlyasAtabaev731/solvy-ledger/internal/api"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/auth"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/chain"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/config"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/events"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/keyring"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/ledger"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/lib/retry"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/storage/memory"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/storage/postgres"
	"github.com/shopspring/decimal"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// appStorage is everything the services need from a storage backend.
type appStorage interface {
	auth.UserStorage
	ledger.Storage
	keyring.Backend
}

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("Starting application",
		slog.String("env", cfg.Env),
		slog.String("host", cfg.ApiHost),
		slog.Int("port", cfg.ApiPort),
		slog.String("storage", cfg.Storage.Driver),
	)

	initialBalance, err := decimal.NewFromString(cfg.InitialBalance)
	if err != nil {
		log.Error("Invalid initial balance", slog.String("value", cfg.InitialBalance), "error", err)
		os.Exit(1)
	}

	var store appStorage
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		store = memory.New()
	default:
		pg, err := postgres.New(cfg.Postgres.URL(), log)
		if err != nil {
			log.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pg.Stop()
		store = pg
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.NATS.URL != "" {
		nc, err := events.ConnectNATS(cfg.NATS.URL)
		if err != nil {
			log.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer nc.Close()
		publisher = nc
	}

	authService := auth.New(log, store, []byte(cfg.JWT.Secret), cfg.JWT.TTL, initialBalance)
	ledgerService := ledger.New(log, store, publisher)

	if cfg.Chain.Enabled {
		keys, err := setupKeyring(cfg.Keyring, store)
		if err != nil {
			log.Error("Failed to set up keyring", "error", err)
			os.Exit(1)
		}
		chainClient := setupChain(cfg.Chain, keys, log)
		defer chainClient.Disconnect()
	}

	apiServer := api.New(cfg, log, ledgerService, authService)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		apiServer.MustStart()
	}()

	<-sigChan
	log.Info("Got signal to shutdown server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Stop(ctx); err != nil {
		log.Error("Stopping server error", "error", err)
	}
}

func setupKeyring(cfg config.Keyring, backend keyring.Backend) (keyring.Store, error) {
	if cfg.Driver == config.KeyringStorage {
		sealed, err := keyring.NewSealed(backend, cfg.Passphrase)
		if err != nil {
			return nil, err
		}
		return sealed, nil
	}
	return keyring.NewMemory(), nil
}

// setupChain seeds the gateway key and tries the handshake. The service keeps running when the
// gateway is unreachable.
func setupChain(cfg config.Chain, keys keyring.Store, log *slog.Logger) *chain.Client {
	log = log.With(slog.String("endpoint", cfg.Endpoint), slog.Int("chain_id", cfg.ChainID))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if cfg.APIKey != "" {
		if err := keys.Save(ctx, chain.APIKeyName, cfg.APIKey); err != nil {
			log.Error("Failed to store chain API key", "error", err)
		}
	}

	policy := retry.Policy{MaxAttempts: cfg.MaxAttempts, Backoff: retry.Exponential(cfg.BaseDelay)}
	client := chain.New(cfg.Endpoint, cfg.ChainID, keys, log, chain.WithRetryPolicy(policy))

	if err := client.Connect(ctx); err != nil {
		log.Warn("Chain gateway unavailable", "error", err)
		return client
	}
	log.Info("Connected to chain gateway")

	return client
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger
	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}
	return log
}
