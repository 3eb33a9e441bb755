package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/voltgrid/supportbot/internal/api"
	"github.com/voltgrid/supportbot/internal/catalog"
	"github.com/voltgrid/supportbot/internal/config"
	"github.com/voltgrid/supportbot/internal/domain"
	"github.com/voltgrid/supportbot/internal/flow"
	"github.com/voltgrid/supportbot/internal/generate"
	"github.com/voltgrid/supportbot/internal/router"
	"github.com/voltgrid/supportbot/internal/server"
	"github.com/voltgrid/supportbot/internal/session/memory"
	"github.com/voltgrid/supportbot/internal/session/sqlite"
	"github.com/voltgrid/supportbot/internal/telemetry"
)

var configPath string

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "supportbot",
		Short: "EV charging technical support chatbot",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")

	root.AddCommand(serveCmd(), detectCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := newLogger(cfg.Logging.Level)
			slog.SetDefault(logger)

			if cfg.Telemetry.Enabled {
				shutdown, err := telemetry.InitTracer("supportbot", logger)
				if err != nil {
					return fmt.Errorf("init tracer: %w", err)
				}
				defer func() {
					if err := shutdown(context.Background()); err != nil {
						logger.Error("tracer shutdown failed", slog.String("error", err.Error()))
					}
				}()
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Content failures degrade rather than abort: the service
			// comes up and the health endpoint reports the gap.
			faults := catalog.New(logger)
			if err := faults.Load(cfg.Content.ErrorCodesPath); err != nil {
				logger.Error("error code catalog unavailable", slog.String("error", err.Error()))
			}
			flows := flow.New(logger)
			if err := flows.Load(cfg.Content.FlowsPath); err != nil {
				logger.Error("conversation flows unavailable, serving defaults",
					slog.String("error", err.Error()))
			}
			if cfg.Content.Watch {
				if err := faults.Watch(ctx, cfg.Content.ErrorCodesPath); err != nil {
					logger.Warn("catalog watch disabled", slog.String("error", err.Error()))
				}
				if err := flows.Watch(ctx, cfg.Content.FlowsPath); err != nil {
					logger.Warn("flows watch disabled", slog.String("error", err.Error()))
				}
			}

			sessions, err := newSessionStore(ctx, cfg, logger)
			if err != nil {
				return err
			}

			var fallback domain.Generator
			if cfg.OpenAI.APIKey != "" {
				fallback = generate.NewOpenAI(cfg.OpenAI.APIKey, logger,
					generate.WithModel(cfg.OpenAI.Model),
					generate.WithPromptBudget(cfg.OpenAI.PromptBudget))
			} else {
				logger.Info("no OpenAI API key configured, using static fallback responses")
				fallback = generate.NewStatic()
			}

			rt := router.New(flows, faults, sessions, fallback, logger)

			limiter := server.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateLimitWindow)

			srv := server.New(cfg.Server.Port, logger)
			api.NewHandler(rt, faults, flows, limiter, logger).Mount(srv.Router)

			return srv.Start(ctx, cfg.Server.ShutdownTimeout)
		},
	}
}

func detectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect [message]",
		Short: "Run diagnostic detection on a message and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := newLogger("error")
			faults := catalog.New(logger)
			if err := faults.Load(cfg.Content.ErrorCodesPath); err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}

			fault := faults.Detect(args[0])
			if fault == nil {
				fmt.Println("no match")
				return nil
			}
			out, err := json.MarshalIndent(fault, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func newSessionStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.SessionStore, error) {
	switch cfg.Sessions.Backend {
	case "sqlite":
		store, err := sqlite.New(cfg.Sessions.SQLite.Path, cfg.Sessions.Timeout)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		store.StartPurgeLoop(ctx, 0, logger)
		logger.Info("using sqlite session store", slog.String("path", cfg.Sessions.SQLite.Path))
		return store, nil
	default:
		return memory.New(cfg.Sessions.Timeout), nil
	}
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
}
