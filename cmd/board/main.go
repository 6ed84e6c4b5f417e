// Command board runs the comment service and its maintenance tasks.
//
//	board serve           start the HTTP API
//	board migrate         create or update the schema
//	board roles seed ...  insert member roles (defaults to SEED_ROLES)
//	board posts create    insert a post (--author, --title, --content)
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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-board-backend/internal/config"
	httpapi "github.com/tbourn/go-board-backend/internal/http"
	"github.com/tbourn/go-board-backend/internal/observability"
	"github.com/tbourn/go-board-backend/internal/repo"
	"github.com/tbourn/go-board-backend/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var envFile string

var rootCmd = &cobra.Command{
	Use:           "board",
	Short:         "Post comments with per-post anonymous numbering",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; real environment variables win.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
		return nil
	},
}

// setup loads configuration, installs the logger, and opens the store.
func setup() (config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, fmt.Errorf("config: %w", err)
	}
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, os.Stderr)

	db, err := repo.Open(cfg.DB)
	if err != nil {
		return cfg, nil, fmt.Errorf("opening %s database: %w", cfg.DB.Driver, err)
	}
	return cfg, db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := setup()
		if err != nil {
			return err
		}
		defer closeDB(db)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
		if err != nil {
			return fmt.Errorf("otel: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownOTel(sctx); err != nil {
				log.Warn().Err(err).Msg("otel shutdown")
			}
		}()

		if err := repo.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		if err := repo.SeedRoles(ctx, db, seedList(cfg, nil)...); err != nil {
			return fmt.Errorf("seed roles: %w", err)
		}

		gin.SetMode(cfg.GinMode)
		r := gin.New()
		if err := httpapi.RegisterRoutes(r, db, cfg); err != nil {
			return fmt.Errorf("routes: %w", err)
		}

		go runJanitor(ctx, db, cfg.IdempotencyPurgeInterval)

		srv := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           r,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			MaxHeaderBytes:    cfg.MaxHeaderBytes,
		}

		serverErrors := make(chan error, 1)
		go func() {
			log.Info().Str("addr", srv.Addr).Str("version", version).Str("db", cfg.DB.Driver).Msg("server starting")
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case <-ctx.Done():
			log.Info().Msg("shutdown signal received")
			sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}
		}
		log.Info().Msg("server stopped")
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := setup()
		if err != nil {
			return err
		}
		defer closeDB(db)

		if err := repo.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info().Msg("schema up to date")
		return nil
	},
}

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Manage member roles",
}

var rolesSeedCmd = &cobra.Command{
	Use:   "seed [role...]",
	Short: "Insert member roles; existing ones are left alone",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := setup()
		if err != nil {
			return err
		}
		defer closeDB(db)

		roles := seedList(cfg, args)
		if err := repo.SeedRoles(cmd.Context(), db, roles...); err != nil {
			return fmt.Errorf("seed roles: %w", err)
		}
		log.Info().Strs("roles", roles).Msg("roles seeded")
		return nil
	},
}

// seedList returns the roles to seed: args when given, else SEED_ROLES.
// The default role is always included.
func seedList(cfg config.Config, args []string) []string {
	roles := args
	if len(roles) == 0 {
		roles = cfg.Board.SeedRoles
	}
	for _, r := range roles {
		if r == cfg.Board.DefaultRole {
			return roles
		}
	}
	return append(append([]string(nil), roles...), cfg.Board.DefaultRole)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading configuration")

	rolesCmd.AddCommand(rolesSeedCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(rolesCmd)
}
