package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"evidence-hub/internal/bootstrap"
	"evidence-hub/internal/config"
	"evidence-hub/internal/db"
	"evidence-hub/internal/http/handlers"
	"evidence-hub/internal/http/router"
	"evidence-hub/internal/logging"
	"evidence-hub/internal/media"
	"evidence-hub/internal/security"
	"evidence-hub/internal/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "server",
		Short:        "MET evidence hub",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/app.yaml", "path to the YAML configuration file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "create-admin",
		Short: "Create or update the configured superuser",
		RunE: func(cmd *cobra.Command, args []string) error {
			return createAdmin(cmd.Context(), configPath)
		},
	})
	return root
}

// setup loads the configuration and opens the logger and database.
func setup(configPath string) (*config.Config, *zap.Logger, *db.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	database, err := db.Init(cfg.DBDriver, cfg.DBDSN, log.Named("db"))
	if err != nil {
		_ = log.Sync()
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return cfg, log, database, nil
}

func createAdmin(ctx context.Context, configPath string) error {
	cfg, log, database, err := setup(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer database.Close()

	res, err := bootstrap.EnsureAdmin(ctx, database, cfg.BootstrapAdmin, log.Named("bootstrap"))
	if err != nil {
		log.Warn("admin creation skipped", zap.Error(err))
		return nil
	}
	fmt.Printf("Admin user %s: %s\n", cfg.BootstrapAdmin.Username, res)
	return nil
}

func serve(ctx context.Context, configPath string) error {
	cfg, log, database, err := setup(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer database.Close()

	if cfg.BootstrapAdmin != nil {
		if _, err := bootstrap.EnsureAdmin(ctx, database, cfg.BootstrapAdmin, log.Named("bootstrap")); err != nil {
			log.Warn("admin creation skipped", zap.Error(err))
		}
	}

	store, err := media.NewStore(cfg.MediaDir, log.Named("media"))
	if err != nil {
		return err
	}
	views, err := web.NewRenderer()
	if err != nil {
		return err
	}

	deps := handlers.Deps{
		DB:       database,
		Sessions: security.NewSessionStore(cfg.Secret, cfg.SecureCookies),
		Views:    views,
		Log:      log.Named("handlers"),
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.Setup(cfg, deps, store),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", zap.String("addr", srv.Addr), zap.String("db_driver", cfg.DBDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
