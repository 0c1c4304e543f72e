package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seekspace/seekd/internal/config"
	"github.com/seekspace/seekd/internal/embed"
	"github.com/seekspace/seekd/internal/index"
	"github.com/seekspace/seekd/internal/llm"
	"github.com/seekspace/seekd/internal/logging"
	"github.com/seekspace/seekd/internal/scanner"
	"github.com/seekspace/seekd/internal/search"
	"github.com/seekspace/seekd/internal/server"
	"github.com/seekspace/seekd/internal/skill"
	"github.com/seekspace/seekd/internal/source"
	"github.com/seekspace/seekd/internal/store"
	"github.com/seekspace/seekd/internal/watcher"
	"github.com/seekspace/seekd/internal/workflow"
	"github.com/seekspace/seekd/pkg/version"
)

// newServeCmd creates the serve command.
func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		indexOnce  bool
		noWatch    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the seekd server",
		Long: `Run the seekd server: the HTTP surface, the ingestion pipeline, and
file watchers for sources registered with auto-reindex.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			return runServe(cmd.Context(), cfg, indexOnce, noWatch)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to seekd.yaml (default: data dir defaults + env)")
	cmd.Flags().IntVar(&port, "port", 0, "HTTP port override")
	cmd.Flags().BoolVar(&indexOnce, "index", false, "Run an incremental pass over all enabled sources at startup")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Disable file watching")

	return cmd
}

func runServe(parent context.Context, cfg *config.Config, indexOnce, noWatch bool) error {
	logger, logCleanup, err := logging.Setup(logging.Config{
		Level:         cfg.LogLevel,
		FilePath:      cfg.LogPath(),
		WriteToStderr: true,
	})
	if err != nil {
		return err
	}
	defer logCleanup()
	slog.SetDefault(logger)

	logger.Info("seekd starting",
		slog.String("version", version.Version),
		slog.String("data_dir", cfg.DataDir),
		slog.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	meta, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return err
	}
	defer func() { _ = meta.Close() }()

	embedder, err := embed.NewEmbedder(ctx, cfg.Embed)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()
	logger.Info("embedding provider ready",
		slog.String("model", embedder.ModelName()),
		slog.Int("dimensions", embedder.Dimensions()))

	lexical, err := index.NewLexicalIndex(cfg.LexicalIndexPath())
	if err != nil {
		return err
	}
	defer func() { _ = lexical.Close() }()

	vector, err := index.NewVectorStore(cfg.VectorStorePath(), embedder)
	if err != nil {
		return err
	}

	sc, err := scanner.New()
	if err != nil {
		return err
	}

	coordinator := index.NewCoordinator(meta, sc, embedder, lexical, vector, cfg.Index, logger)
	defer coordinator.Close()

	if indexOnce {
		if err := coordinator.IndexAll(ctx, false); err != nil {
			return fmt.Errorf("startup index pass: %w", err)
		}
	}

	engine := search.NewEngine(lexical, vector, meta, cfg.Search, logger)
	session := llm.NewSession(ctx, cfg.LLM)

	skills := skill.NewRegistry()
	for _, sk := range []skill.Skill{
		skill.NewSearchSkill(engine, meta),
		skill.NewCodeAnalysisSkill(),
		skill.NewReportSkill(),
		skill.NewLLMSkill(session),
		skill.NewRelationalQuerySkill(),
	} {
		if err := skills.Register(sk); err != nil {
			return err
		}
	}

	templates, err := workflow.NewTemplateRegistry(skills)
	if err != nil {
		return err
	}

	if !noWatch {
		w, err := watcher.New(meta, coordinator, cfg.Watch.Debounce, logger)
		if err != nil {
			logger.Warn("file watching unavailable", slog.String("error", err.Error()))
		} else {
			// Start blocks until ctx cancels; it owns its own shutdown.
			go func() {
				if err := w.Start(ctx); err != nil {
					logger.Warn("watcher stopped with error", slog.String("error", err.Error()))
				}
			}()
		}
	}

	srv := server.New(server.Options{
		Config:      cfg,
		Logger:      logger,
		Meta:        meta,
		Sources:     source.NewRegistry(meta),
		Coordinator: coordinator,
		Engine:      engine,
		Skills:      skills,
		Templates:   templates,
		Workflows:   workflow.NewEngine(skills, logger),
		Session:     session,
	})
	err = srv.ListenAndServe(ctx)
	logger.Info("seekd stopped")
	return err
}
