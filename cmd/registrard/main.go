// Command registrard runs a registrar node: the ledger store, the auth
// service, and the HTTP gateway in one process.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ProvenanceLabs/registrar/pkg/auth"
	"github.com/ProvenanceLabs/registrar/pkg/config"
	"github.com/ProvenanceLabs/registrar/pkg/events"
	"github.com/ProvenanceLabs/registrar/pkg/gateway"
	"github.com/ProvenanceLabs/registrar/pkg/logging"
	"github.com/ProvenanceLabs/registrar/pkg/registrar"
	"github.com/ProvenanceLabs/registrar/pkg/storage"
)

func main() {
	var (
		configPath = flag.String("config", envOr("REGISTRAR_CONFIG", ""), "path to YAML config file")
		listenAddr = flag.String("listen", "", "override gateway listen address")
		dsn        = flag.String("dsn", "", "override database DSN")
	)
	flag.Parse()

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.Gateway.ListenAddr = *listenAddr
	}
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "config: %v\n", e)
		}
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logging)
	defer logger.Sync()

	store, err := storage.Open(cfg.Database, logger)
	if err != nil {
		logger.ComponentError(logging.ComponentGeneral, "failed to open store", zap.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	migrateCtx, migrateCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := store.Migrate(migrateCtx); err != nil {
		migrateCancel()
		logger.ComponentError(logging.ComponentGeneral, "migration failed", zap.Error(err))
		os.Exit(1)
	}
	migrateCancel()

	evts := events.NewManager(logger)
	defer evts.Close()

	svc := registrar.NewService(store, evts, logger)
	authSvc := auth.NewService(store, cfg.Gateway.ChallengeTTL, logger)
	gw := gateway.New(cfg, svc, authSvc, evts, store, logger)

	// Expired challenges accumulate; sweep them in the background.
	go purgeLoop(ctx, authSvc, logger)

	// Graceful shutdown on SIGINT/SIGTERM.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.ComponentInfo(logging.ComponentGeneral, "shutdown signal received")
		cancel()
	}()

	logger.ComponentInfo(logging.ComponentGeneral, "registrar node starting",
		zap.String("node_id", cfg.Node.ID),
		zap.String("listen_addr", cfg.Gateway.ListenAddr),
		zap.String("driver", cfg.Database.Driver),
	)

	if err := gw.Start(ctx); err != nil {
		logger.ComponentError(logging.ComponentGeneral, "gateway error", zap.Error(err))
		os.Exit(1)
	}
	logger.ComponentInfo(logging.ComponentGeneral, "registrar node shutdown complete")
}

func setupLogger(cfg config.LoggingConfig) *logging.ColoredLogger {
	level := logging.ParseLevel(cfg.Level)

	var (
		logger *logging.ColoredLogger
		err    error
	)
	if cfg.OutputFile != "" {
		logger, err = logging.NewFileLogger(level, cfg.OutputFile, false)
	} else {
		logger, err = logging.NewColoredLogger(level, cfg.Colors)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func purgeLoop(ctx context.Context, authSvc *auth.Service, logger *logging.ColoredLogger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := authSvc.PurgeExpired(ctx)
			if err != nil {
				logger.ComponentWarn(logging.ComponentAuth, "challenge purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.ComponentDebug(logging.ComponentAuth, "purged expired challenges", zap.Int64("count", n))
			}
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
