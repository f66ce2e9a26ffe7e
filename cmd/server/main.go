package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"campusmarket/internal/config"
	"campusmarket/internal/contentfilter"
	"campusmarket/internal/httpserver"
	"campusmarket/internal/mailer"
	"campusmarket/internal/moderation"
	"campusmarket/internal/security"
	"campusmarket/internal/seed"
	"campusmarket/internal/service"
	"campusmarket/internal/storage"
	"campusmarket/internal/store"
	"campusmarket/internal/validation"
)

// Set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

// @title           Campus Market API
// @version         1.0
// @description     Campus marketplace: listings, favorites, reports and buyer/seller messaging.

// @host            localhost:8000
// @BasePath        /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		cfg *config.Config
		log *zap.Logger
	)

	cmd := &cobra.Command{
		Use:           "campusmarket",
		Short:         "Campus marketplace API server",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			var err error
			if cfg, err = config.Load(); err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if log, err = newLogger(cfg.Debug); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				_ = log.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg, log)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg, log)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := store.Open(cfg.DBDriver, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()
			log.Info("migrations applied", zap.String("driver", cfg.DBDriver))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Load demo users and listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := store.Open(cfg.DBDriver, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()
			repos, err := store.New(cfg.DBDriver, db)
			if err != nil {
				return err
			}
			_, err = seed.Run(cmd.Context(), repos, time.Now(), log)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("campusmarket %s\n", Version)
		},
	})

	return cmd
}

func newLogger(debug bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if debug {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zc.Build()
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	db, err := store.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	repos, err := store.New(cfg.DBDriver, db)
	if err != nil {
		return err
	}

	// Security components
	tokens := security.NewTokenService(cfg.JWTSecret, time.Duration(cfg.AccessTokenMinutes)*time.Minute)
	encryptor, err := security.NewEncryptor([]byte(cfg.EncryptKey))
	if err != nil {
		return fmt.Errorf("init encryptor: %w", err)
	}
	links, err := security.NewLinkSigner(cfg.SigninKey, cfg.SigninLinkTTL, cfg.SigninPrevKeys...)
	if err != nil {
		return fmt.Errorf("init sign-in links: %w", err)
	}

	var mail mailer.Mailer = mailer.NewLogMailer(log)
	if cfg.SMTPHost != "" {
		mail = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		log.Warn("SMTP_HOST not set; sign-in links are logged instead of emailed")
	}

	var (
		images storage.ImageStore
		local  *storage.LocalStore
	)
	switch cfg.StorageBackend {
	case config.StorageGCS:
		gcs, err := storage.NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSPrefix, cfg.GCSCredentialsFile)
		if err != nil {
			return err
		}
		defer gcs.Close()
		images = gcs
	default:
		if local, err = storage.NewLocalStore(cfg.UploadDir, cfg.UploadBaseURL()); err != nil {
			return err
		}
		images = local
	}

	var mod moderation.Moderator
	if cfg.GeminiAPIKey != "" {
		g, err := moderation.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return err
		}
		mod = g
	}

	v := validation.New()
	router := httpserver.NewRouter(httpserver.Deps{
		Log:            log,
		Auth:           service.NewAuthService(repos.Users, tokens, links, mail, v, log, cfg.SignInCallbackURL()),
		Listings:       service.NewListingService(repos.Listings, v, contentfilter.New(cfg.BannedWords...), log),
		Threads:        service.NewThreadService(repos.Threads, repos.Messages, repos.Listings, repos.Users, encryptor, v, log),
		Favorites:      service.NewFavoriteService(repos.Favorites, repos.Listings, v),
		Reports:        service.NewReportService(repos.Reports, repos.Listings, repos.Users, v, log),
		Users:          service.NewUserService(repos.Users, v, log),
		Images:         images,
		LocalImages:    local,
		Moderator:      mod,
		Metrics:        httpserver.NewMetrics(),
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
		Version:        Version,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server",
			zap.String("addr", cfg.HTTPAddr()),
			zap.String("db_driver", cfg.DBDriver),
			zap.String("storage", cfg.StorageBackend),
			zap.Bool("moderation", mod != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-stop:
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
