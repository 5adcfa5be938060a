package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ninikarlina/gallery-davinci/internal/api"
	"github.com/ninikarlina/gallery-davinci/internal/auth"
	"github.com/ninikarlina/gallery-davinci/internal/books"
	"github.com/ninikarlina/gallery-davinci/internal/config"
	"github.com/ninikarlina/gallery-davinci/internal/database"
	"github.com/ninikarlina/gallery-davinci/internal/engagement"
	"github.com/ninikarlina/gallery-davinci/internal/galleries"
	"github.com/ninikarlina/gallery-davinci/internal/logging"
	"github.com/ninikarlina/gallery-davinci/internal/notifications"
	"github.com/ninikarlina/gallery-davinci/internal/posts"
	"github.com/ninikarlina/gallery-davinci/internal/storage"
	"github.com/ninikarlina/gallery-davinci/internal/users"
)

// models is everything AutoMigrate manages.
var models = []interface{}{
	&users.User{},
	&posts.Post{},
	&books.Book{},
	&galleries.Image{},
	&galleries.ImageItem{},
	&engagement.Comment{},
	&engagement.Like{},
	&notifications.Notification{},
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "gallery",
		Short:        "Gallery Davinci API server",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to YAML config (optional)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := setup(configPath); err != nil {
				return err
			}
			defer logging.Sync()
			defer database.Close()
			return database.Migrate(models...)
		},
	}

	root.AddCommand(serve, migrate)
	// Bare "gallery" behaves like "gallery serve".
	root.RunE = serve.RunE
	return root
}

// setup loads config and brings up logging and the database.
func setup(configPath string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	if _, err := logging.Init(cfg.LogLevel, gin.Mode() != gin.ReleaseMode); err != nil {
		log.Printf("logger init failed, continuing without structured logs: %v", err)
	}

	if err := database.Connect(cfg.DB); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := setup(configPath)
	if err != nil {
		return err
	}
	defer logging.Sync()
	defer database.Close()

	if err := database.Migrate(models...); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}

	auth.Init(cfg.JWT.Secret, cfg.TokenTTL())

	store, err := storage.NewLocal(cfg.Upload.Dir, cfg.Upload.BaseURL)
	if err != nil {
		return err
	}
	storage.Use(store)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logging.L.Info("server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logging.L.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
