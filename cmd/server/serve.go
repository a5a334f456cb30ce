package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/yukikurage/taskdash/internal/cache"
	"github.com/yukikurage/taskdash/internal/config"
	"github.com/yukikurage/taskdash/internal/database"
	"github.com/yukikurage/taskdash/internal/server"
	"github.com/yukikurage/taskdash/internal/services"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.ListenAddr = addr
			}
			skipMigrate, _ := cmd.Flags().GetBool("skip-migrate")
			return serve(cmd.Context(), cfg, !skipMigrate)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (overrides LISTEN_ADDR)")
	cmd.Flags().Bool("skip-migrate", false, "Do not run migrations on startup")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config, migrate bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gin.SetMode(cfg.GinMode)

	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())))
	otel.SetTracerProvider(tp)
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.WithError(err).Warn("failed to shut down tracer provider")
		}
	}()

	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	if migrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
	}

	sessionStore, err := server.NewSessionStore(cfg)
	if err != nil {
		return err
	}

	var pages cache.Store = cache.Noop{}
	if cfg.PageCache {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			// Pages are rendered from the store until Redis comes back
			log.WithError(err).Warn("page cache unreachable at startup")
		}
		pages = cache.NewRedisPages(client, cfg.PageCacheTTL)
		log.WithField("ttl", cfg.PageCacheTTL).Info("Page cache enabled")
	}

	// Initialize AI service
	var aiService *services.AIService
	if cfg.OpenAIAPIKey != "" {
		aiService = services.NewAIService(cfg.OpenAIAPIKey)
	}

	router := server.NewRouter(server.Dependencies{
		DB:           db,
		SessionStore: sessionStore,
		Pages:        pages,
		AIService:    aiService,
		StrictReads:  cfg.StrictReads,
		Logger:       log.StandardLogger(),
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
