package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/legalvault/internal/config"
	"github.com/xxxsen/legalvault/internal/handler"
	"github.com/xxxsen/legalvault/internal/job"
	"github.com/xxxsen/legalvault/internal/middleware"
	"github.com/xxxsen/legalvault/internal/pkg/jwt"
	"github.com/xxxsen/legalvault/internal/schedule"
	"github.com/xxxsen/legalvault/internal/service"
	"github.com/xxxsen/legalvault/internal/similarity"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "legalvault",
		Short: "legal judgment search and similarity server",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	load := func() (*config.Config, error) {
		if configPath == "" {
			return nil, fmt.Errorf("--config is required")
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		logger.Init(
			cfg.LogConfig.File,
			cfg.LogConfig.Level,
			int(cfg.LogConfig.FileCount),
			int(cfg.LogConfig.FileSize),
			int(cfg.LogConfig.KeepDays),
			cfg.LogConfig.Console,
		)
		logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
		return cfg, nil
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the http server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	var force bool
	embedCmd := &cobra.Command{
		Use:   "embed",
		Short: "compute the embedding cache for the corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			app, err := newApp(cfg)
			if err != nil {
				return err
			}
			mat, err := app.similarity.Embed(cmd.Context(), force)
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{
				"model":     mat.ModelName,
				"dimension": mat.Dimension,
				"cases":     mat.CaseCount,
				"device":    mat.Device,
			})
		},
	}
	embedCmd.Flags().BoolVar(&force, "force", false, "drop the cache file and recompute")

	var (
		caseID string
		topK   int
	)
	searchCmd := &cobra.Command{
		Use:   "search [query text]",
		Short: "rank cases by similarity to a text or an existing case",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			app, err := newApp(cfg)
			if err != nil {
				return err
			}
			if err := app.similarity.Start(cmd.Context()); err != nil {
				return err
			}
			if caseID != "" {
				res, err := app.similarity.SimilaritySearchForCase(cmd.Context(), caseID, topK)
				if err != nil {
					return err
				}
				return printJSON(res)
			}
			text := ""
			if len(args) > 0 {
				text = args[0]
			}
			res, err := app.similarity.SimilaritySearch(cmd.Context(), text, topK)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	searchCmd.Flags().StringVar(&caseID, "case", "", "rank against this case id instead of a query text")
	searchCmd.Flags().IntVar(&topK, "top-k", similarity.DefaultTopK, "number of results")

	var keys []string
	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "import case batches from the file store into the corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			app, err := newApp(cfg)
			if err != nil {
				return err
			}
			if app.store == nil {
				return fmt.Errorf("file_store is not configured")
			}
			if err := app.similarity.Start(cmd.Context()); err != nil {
				logutil.GetLogger(cmd.Context()).Warn("similarity index not ready before ingest", zap.Error(err))
			}
			results := make(map[string]interface{}, len(keys))
			for _, key := range keys {
				res, err := job.ImportKey(cmd.Context(), app.store, app.similarity, key)
				if err != nil {
					return err
				}
				results[key] = res
			}
			return printJSON(results)
		},
	}
	ingestCmd.Flags().StringArrayVar(&keys, "key", nil, "file store key of a JSON batch (repeatable)")
	_ = ingestCmd.MarkFlagRequired("key")

	var (
		subject string
		ttl     time.Duration
	)
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "issue a bearer token for the import endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Import.JWTSecret == "" {
				return fmt.Errorf("import.jwt_secret is not configured")
			}
			token, err := jwt.GenerateToken(subject, jwt.ScopeImport, []byte(cfg.Import.JWTSecret), ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&subject, "subject", "ingest", "token subject")
	tokenCmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")

	rootCmd.AddCommand(runCmd, embedCmd, searchCmd, ingestCmd, tokenCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("command failed", zap.Error(err))
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func runServer(cfg *config.Config) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("corpus", cfg.CorpusPath),
		zap.String("cache", cfg.CachePath),
		zap.String("embedding_provider", cfg.Embedding.Provider),
	)
	app, err := newApp(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.similarity.Start(ctx); err != nil {
		logutil.GetLogger(ctx).Warn("similarity index not ready, serving without it", zap.Error(err))
	}

	scheduler := schedule.NewCronScheduler()
	if cfg.Reload.Spec != "" {
		if err := scheduler.AddJob(job.NewCorpusReloadJob(app.similarity), cfg.Reload.Spec); err != nil {
			return fmt.Errorf("schedule corpus reload: %w", err)
		}
	}
	if cfg.Reload.ImportSpec != "" && app.store != nil {
		importJob := job.NewStoreImportJob(app.store, app.similarity, cfg.Reload.ImportPrefix)
		if err := scheduler.AddJob(importJob, cfg.Reload.ImportSpec); err != nil {
			return fmt.Errorf("schedule store import: %w", err)
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	caseService := service.NewCaseService(app.similarity)
	archive := app.store
	if cfg.Import.ArchivePrefix == "" {
		archive = nil
	}
	deps := handler.RouterDeps{
		Cases:           handler.NewCaseHandler(caseService, app.similarity),
		Similarity:      handler.NewSimilarityHandler(app.similarity),
		Import:          handler.NewImportHandler(app.similarity, archive, cfg.Import.ArchivePrefix, cfg.Import.MaxUploadSize),
		ImportSecret:    []byte(cfg.Import.JWTSecret),
		ImportRateLimit: time.Duration(cfg.Import.RateLimitSeconds) * time.Second,
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", addr))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
