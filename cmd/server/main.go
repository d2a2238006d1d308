package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"

	"chatwire/channel"
	"chatwire/internal"
	"chatwire/presence"
	"chatwire/repositories"
	"chatwire/runtime"
	"chatwire/runtime/workers"
	"chatwire/services"
	"chatwire/transport/ws"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the HTTP server and background workers.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := internal.LoggerFromLevel(config.LogLevel)
	ctx := context.Background()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Defer ensures the database lock is released and buffers are flushed before the function returns.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Core components
	resolver, err := channel.NewResolver(config.ChannelCacheSize)
	if err != nil {
		return exitConfig, fmt.Errorf("resolver setup failed: %w", err)
	}

	registry := runtime.NewRegistry()
	tracker := presence.NewTracker()
	messageRepository := repositories.NewMessageRepository(db, logger, config.HistoryLimit)
	relationshipRepository := repositories.NewRelationshipRepository(db)
	groupRepository := repositories.NewGroupRepository(db)

	typingWorker := workers.NewTypingWorker(logger, registry, config.TypingTTL, config.TypingSweepInterval)

	dispatcher := runtime.NewDispatcher(logger,
		registry,
		tracker,
		resolver,
		services.NewChatService(resolver, messageRepository, relationshipRepository, groupRepository),
		services.NewRelationshipService(relationshipRepository),
		services.NewGroupService(groupRepository),
		typingWorker,
	)

	// 4. Context & Signals
	// NotifyContext captures OS signals and cancels the context to trigger a shutdown.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Background workers under supervision
	supervisor := workers.NewSupervisor(logger, config.RestartInterval)
	supervisor.Add(typingWorker)
	go supervisor.Run(ctx)

	// 6. HTTP server with the websocket endpoint
	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewHandler(logger, dispatcher, config.ConnectionBufferSize, []byte(config.AuthSecret)))

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: mux}

	// Use an error channel to capture ListenAndServe() issues asynchronously.
	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting websocket server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	// The execution blocks here until either a signal is received or the server crashes.
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 8. Final Cleanup (Graceful Shutdown)
	// We let in-flight handlers finish and workers drain before closing the store.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Forced shutdown", "error", err)
	}
	supervisor.Stop()
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}
