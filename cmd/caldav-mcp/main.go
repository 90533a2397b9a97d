package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"caldav-mcp/pkg/caldav"
	"caldav-mcp/pkg/config"
	"caldav-mcp/pkg/mcp"
	"caldav-mcp/pkg/nats"
)

const connectTimeout = 30 * time.Second

var (
	configPath = flag.String("config", "", "Path to configuration file (optional)")
	envFile    = flag.String("env-file", "", "Path to .env file to load before reading the environment")
	version    = flag.Bool("version", false, "Print version information")
	debug      = flag.Bool("debug", false, "Enable debug logging")
)

// Version information - can be set at build time
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	flag.Parse()

	if *version {
		printVersion()
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "caldav-mcp: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	} else {
		// Best effort: a .env next to the binary is optional.
		_ = godotenv.Load()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.Logging, *debug)
	logger.Info("Starting caldav-mcp",
		"version", Version,
		"commit", GitCommit,
		"build_time", BuildTime)

	// The CalDAV connection is a process-scoped resource: created here,
	// reused by every tool invocation, torn down at shutdown. When the
	// credentials are missing the server still starts and every tool
	// reports the missing configuration instead.
	var client *caldav.Client
	if cfg.CalDAV.Configured() {
		client, err = caldav.NewClient(caldav.Config{
			URL:      cfg.CalDAV.URL,
			Username: cfg.CalDAV.Username,
			Password: cfg.CalDAV.Password,
		}, logger)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		err = client.Connect(ctx)
		cancel()
		if err != nil {
			return err
		}
	} else {
		logger.Warn("CalDAV not configured; calendar tools are disabled",
			"missing", cfg.CalDAV.Missing())
	}

	var publisher *nats.Publisher
	if cfg.NATS.URL != "" {
		publisher, err = nats.NewPublisher(&nats.Config{
			URL:     cfg.NATS.URL,
			Subject: cfg.NATS.Subject,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to create NATS publisher: %w", err)
		}
		defer publisher.Close()
	}

	srv := mcp.NewServer(client, publisher, cfg, Version, logger)

	logger.Info("Serving MCP over stdio")
	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("caldav-mcp stopped")
	return nil
}

// setupLogger configures the application logger. Logs go to stderr since
// stdout carries the MCP protocol stream.
func setupLogger(cfg config.LoggingConfig, debugMode bool) *slog.Logger {
	var level slog.Level

	if debugMode {
		level = slog.LevelDebug
	} else {
		switch cfg.Level {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

func printVersion() {
	fmt.Printf("caldav-mcp %s\n", Version)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Printf("Build Time: %s\n", BuildTime)
}
