package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/m2tx/manualchat/assets"
	"github.com/m2tx/manualchat/internal/agent"
	"github.com/m2tx/manualchat/internal/config"
	"github.com/m2tx/manualchat/internal/docsource"
	"github.com/m2tx/manualchat/internal/gemini"
	"github.com/m2tx/manualchat/internal/inline"
	"github.com/m2tx/manualchat/internal/logger"
	"github.com/m2tx/manualchat/internal/poll"
	"github.com/m2tx/manualchat/internal/repository"
	"github.com/m2tx/manualchat/internal/server"
	"github.com/m2tx/manualchat/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "manualchat",
		Short:        "chat with the author of a reference document",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newServeCmd(), newDocsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	return cmd
}

func newDocsCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "list the documents available for chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := docsource.New(dir).List()
			if err != nil {
				return err
			}
			for _, doc := range docs {
				fmt.Fprintln(cmd.OutOrStdout(), doc.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "docs", "documents directory")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log.Info("config loaded",
		zap.String("model", cfg.Model),
		zap.String("mode", cfg.Mode),
		zap.String("docs_dir", cfg.DocsDir),
		zap.Int("port", cfg.Port),
	)

	opts := gemini.Options{Model: cfg.Model, Temperature: *cfg.Temperature}
	var backend agent.BackendFactory
	switch cfg.Mode {
	case config.ModeInline:
		backend = agent.InlineBackend(inline.NewStore(cfg.InlineStoreSize, cfg.CacheTTL()), opts)
	default:
		backend = agent.GeminiBackend(opts)
	}

	agentCfg := agent.Config{
		Model:   cfg.Model,
		Persona: assets.SystemInstruction,
		TTL:     cfg.CacheTTL(),
		Poll:    poll.Config{Interval: cfg.PollInterval(), MaxAttempts: cfg.Poll.MaxAttempts},
		Safety:  cfg.SafetyPolicy(),
	}
	docs := docsource.New(cfg.DocsDir, cfg.Extensions...)
	sessions := session.NewRegistry(cfg.SessionIdle())

	var a *agent.Agent
	if cfg.Mongo.Enabled {
		archive, disconnect, err := repository.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			return fmt.Errorf("connect mongodb: %w", err)
		}
		defer func() {
			if err := disconnect(context.Background()); err != nil {
				log.Warn("mongodb disconnect", zap.Error(err))
			}
		}()
		a = agent.NewWithArchive(docs, sessions, backend, agentCfg, archive, log)
	} else {
		a = agent.New(docs, sessions, backend, agentCfg, log)
	}

	page, err := assets.Dir.ReadFile("chat.html")
	if err != nil {
		return fmt.Errorf("read chat page: %w", err)
	}

	srv := server.New(a, server.Options{APIKey: cfg.APIKey, Page: page}, log)
	return srv.Run(ctx, ":"+strconv.Itoa(cfg.Port))
}
