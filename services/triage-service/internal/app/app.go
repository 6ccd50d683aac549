package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/stoik/triage/services/triage-service/internal/api"
	"github.com/stoik/triage/services/triage-service/internal/cache"
	"github.com/stoik/triage/services/triage-service/internal/config"
	"github.com/stoik/triage/services/triage-service/internal/db"
	"github.com/stoik/triage/services/triage-service/internal/logging"
	"github.com/stoik/triage/services/triage-service/internal/ollama"
	"github.com/stoik/triage/services/triage-service/internal/triage"
)

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Email triage assistant",
	Long:  "Imports emails, classifies them, extracts calendar events and answers questions grounded on the mailbox",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long:  "Serves the JSON API and, with --worker, processes pending emails in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		handler := api.NewHandler(rt.service, rt.store, rt.cfg.Search.DefaultTopK, rt.logger)
		srv := &http.Server{
			Addr:              ":" + rt.cfg.Server.Port,
			Handler:           api.NewRouter(handler, rt.logger),
			ReadHeaderTimeout: 10 * time.Second,
		}

		withWorker, _ := cmd.Flags().GetBool("worker")
		workerDone := make(chan error, 1)
		if withWorker {
			go func() {
				workerDone <- rt.service.Run(ctx)
			}()
		}

		errChan := make(chan error, 1)
		go func() {
			rt.logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
			close(errChan)
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigChan:
			rt.logger.Info("Shutting down gracefully...")
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("http server: %w", err)
			}
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			rt.logger.Warn("HTTP server did not shut down cleanly", zap.Error(err))
		}

		cancel()
		if withWorker {
			if !rt.service.Shutdown(10 * time.Second) {
				rt.logger.Warn("Some operations may not have completed")
			}
			select {
			case <-workerDone:
			case <-time.After(2 * time.Second):
				rt.logger.Warn("Worker did not stop within timeout")
			}
		}
		return nil
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background worker",
	Long:  "Continuously classifies unclassified emails and extracts events from unprocessed ones",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		// Handle graceful shutdown
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		errChan := make(chan error, 1)
		go func() {
			errChan <- rt.service.Run(ctx)
		}()

		select {
		case <-sigChan:
			rt.logger.Info("Shutting down gracefully...")
			cancel()

			if !rt.service.Shutdown(10 * time.Second) {
				rt.logger.Warn("Some operations may not have completed")
			}

			// Wait for Run() to return
			select {
			case err := <-errChan:
				if err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
			case <-time.After(2 * time.Second):
				rt.logger.Warn("Worker did not stop within timeout")
			}
			return nil
		case err := <-errChan:
			return err
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default ./config.yaml)")
	flags.String("environment", "development", "Environment: 'development' or 'production'")
	flags.String("log.level", "info", "Log level")
	flags.String("database.url", "", "Database connection URL")
	flags.String("ollama.base_url", ollama.DefaultBaseURL, "Ollama API base URL")
	flags.String("ollama.model", ollama.DefaultModel, "Model used for chat, classification and extraction")
	flags.String("ollama.embed_model", ollama.DefaultEmbedModel, "Model used for embeddings")
	flags.String("redis.addr", "", "Redis address for the embedding cache (empty disables it)")

	// Bind flags to viper
	for _, key := range []string{
		"environment",
		"log.level",
		"database.url",
		"ollama.base_url",
		"ollama.model",
		"ollama.embed_model",
		"redis.addr",
	} {
		viper.BindPFlag(key, flags.Lookup(key))
	}

	serveCmd.Flags().String("server.port", "8080", "HTTP listen port")
	serveCmd.Flags().Bool("worker", false, "Also run the background worker")
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("server.port"))

	workerCmd.Flags().Duration("worker.interval", triage.DefaultInterval, "Delay between processing passes")
	workerCmd.Flags().Int("worker.concurrency", triage.DefaultConcurrency, "Emails processed in parallel")
	viper.BindPFlag("worker.interval", workerCmd.Flags().Lookup("worker.interval"))
	viper.BindPFlag("worker.concurrency", workerCmd.Flags().Lookup("worker.concurrency"))

	rootCmd.AddCommand(serveCmd, workerCmd)
}

func initConfig() {
	config.LoadDotEnv()
	config.SetDefaults(viper.GetViper())
	config.BindEnv(viper.GetViper())

	if file, _ := rootCmd.PersistentFlags().GetString("config"); file != "" {
		viper.SetConfigFile(file)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./services/triage-service")
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// runtime holds the dependencies shared by every command.
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	pool    *pgxpool.Pool
	store   *db.Store
	rdb     *redis.Client
	service *triage.Service
}

func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	pool, err := db.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		logger.Sync()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	rt := &runtime{cfg: cfg, logger: logger, pool: pool, store: db.NewStore(pool)}

	gateway := ollama.NewClient(ollama.Options{
		BaseURL:     cfg.Ollama.BaseURL,
		Model:       cfg.Ollama.Model,
		EmbedModel:  cfg.Ollama.EmbedModel,
		Temperature: cfg.Ollama.Temperature,
		Timeout:     cfg.Ollama.Timeout,
	}, logger)

	// A nil interface, not a nil *EmbeddingCache, disables caching.
	var embeddings triage.EmbeddingCache
	if cfg.Redis.Addr != "" {
		rt.rdb = cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := rt.rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unavailable, embeddings will not be cached",
				zap.String("addr", cfg.Redis.Addr),
				zap.Error(err),
			)
		}
		embeddings = cache.NewEmbeddingCache(rt.rdb, cfg.CacheTTL, logger)
	}

	rt.service = triage.NewService(rt.store, gateway, embeddings, triage.Options{
		EmbedModel:  gateway.EmbedModel(),
		Concurrency: cfg.Worker.Concurrency,
		Interval:    cfg.Worker.Interval,
	}, logger)

	return rt, nil
}

func (rt *runtime) Close() {
	if rt.rdb != nil {
		rt.rdb.Close()
	}
	db.Close(rt.pool)
	rt.logger.Sync()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
