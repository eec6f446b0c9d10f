package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/ignite/square-listmonk-sync/internal/api"
	"github.com/ignite/square-listmonk-sync/internal/config"
	"github.com/ignite/square-listmonk-sync/internal/listmonk"
	"github.com/ignite/square-listmonk-sync/internal/pkg/distlock"
	"github.com/ignite/square-listmonk-sync/internal/pkg/logger"
	"github.com/ignite/square-listmonk-sync/internal/square"
	"github.com/ignite/square-listmonk-sync/internal/syncer"
)

const appName = "square-listmonk-sync"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the JSON or YAML config file")
	flag.Parse()

	logger.Info("Starting "+appName, "version", version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal("Failed to load config", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		fatal("Invalid log level", err)
	}
	logger.SetLevel(level)
	logger.SetRedactPII(cfg.RedactPII)

	creds, err := config.LoadCredentials()
	if err != nil {
		fatal("Failed to load credentials", err)
	}
	logger.Debug("Credentials loaded", "credentials", creds.String())

	squareClient := square.NewClient(square.Config{
		BaseURL:    config.SquareBaseURL(),
		APIToken:   creds.SquareAPIToken,
		Timeout:    cfg.HTTPTimeout(),
		MaxRetries: cfg.SquareMaxRetries,
	})
	listmonkClient := listmonk.NewClient(listmonk.Config{
		Domain:   cfg.ListmonkDomain,
		Username: creds.ListmonkUsername,
		Password: creds.ListmonkPassword,
		Timeout:  cfg.HTTPTimeout(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lock, closeLock, err := buildLock(ctx, cfg.Lock)
	if err != nil {
		fatal("Failed to connect lock backend", err)
	}
	defer closeLock()

	sched := syncer.NewScheduler(syncer.New(*cfg, squareClient, listmonkClient), lock, cfg.Interval())

	var server *http.Server
	if cfg.StatusAddr != "" {
		router := api.SetupRoutes(api.NewHandlers(sched, version), cfg.StatusAllowedOrigins)
		server, err = api.StartServer(cfg.StatusAddr, router)
		if err != nil {
			fatal("Failed to start status server", err)
		}
	}

	if err := sched.Start(ctx); err != nil {
		fatal("Failed to start scheduler", err)
	}
	logger.Info("Scheduler started",
		"run_every_seconds", cfg.RunEvery,
		"domain", cfg.ListmonkDomain,
		"lists", cfg.ListmonkListIDs,
	)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	sig := <-done
	logger.Info("Shutting down...", "signal", sig.String())

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Status server shutdown error", "error", err)
		}
		shutdownCancel()
	}

	cancel()
	sched.Stop()
	logger.Info("Stopped")
}

// buildLock picks the run guard from config. The returned close func
// releases whatever backend connection was opened.
func buildLock(ctx context.Context, cfg config.LockConfig) (distlock.DistLock, func(), error) {
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	switch {
	case cfg.RedisURL != "":
		client, err := distlock.NewRedisClient(connectCtx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using Redis run lock", "key", cfg.Key)
		return distlock.NewLock(client, nil, cfg.Key, cfg.TTL()), func() { _ = client.Close() }, nil

	case cfg.DatabaseURL != "":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		db.SetMaxOpenConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(connectCtx); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("Using Postgres advisory run lock", "key", cfg.Key)
		return distlock.NewLock(nil, db, cfg.Key, cfg.TTL()), func() { _ = db.Close() }, nil
	}

	return distlock.NewLock(nil, nil, cfg.Key, cfg.TTL()), func() {}, nil
}

func fatal(msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
