package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/petermazzocco/go-catalog-api/internal/auth"
	"github.com/petermazzocco/go-catalog-api/internal/catalog"
	"github.com/petermazzocco/go-catalog-api/internal/config"
	"github.com/petermazzocco/go-catalog-api/internal/events"
	"github.com/petermazzocco/go-catalog-api/internal/logging"
	"github.com/petermazzocco/go-catalog-api/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "catalog-api",
	Short: "Product catalog REST API",
	Long: `Product catalog REST API.

Without a subcommand the HTTP server starts. Configuration comes from the
environment, optionally seeded from a .env file.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd.Context(), func(ctx context.Context, a *app) error {
			if err := store.Migrate(a.db); err != nil {
				return err
			}
			a.log.Info("schema migrated")
			return nil
		})
	},
}

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap-admin",
	Short: "Create the seed owner account if no owner or admin exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd.Context(), func(ctx context.Context, a *app) error {
			if err := store.Migrate(a.db); err != nil {
				return err
			}
			created, err := a.service(events.Nop{}).Bootstrap(ctx, a.seed())
			if err != nil {
				return err
			}
			if !created {
				a.log.Info("an owner or admin already exists, nothing to do")
			}
			return nil
		})
	},
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  rootCmd.RunE,
	})
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(bootstrapCmd)
}

// app is the wiring shared by every subcommand.
type app struct {
	cfg    config.App
	log    *zap.Logger
	db     *gorm.DB
	tokens *auth.Issuer
}

func newApp() (*app, error) {
	envFile := config.LoadDotenv()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.IsProduction())
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	if envFile != "" {
		log.Debug("loaded env file", zap.String("path", envFile))
	}

	db, err := store.Open(store.Options{
		DSN:             cfg.DSN(),
		MaxOpenConns:    cfg.DBMaxConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		Logger:          log,
	})
	if err != nil {
		log.Sync()
		return nil, err
	}
	return &app{cfg: cfg, log: log, db: db, tokens: auth.NewIssuer(cfg.JWTSecret, cfg.JWTExpiresIn)}, nil
}

func (a *app) close() {
	if err := store.Close(a.db); err != nil {
		a.log.Warn("close database", zap.Error(err))
	}
	a.log.Sync()
}

func (a *app) service(pub events.Publisher) *catalog.Service {
	return catalog.New(a.db, a.tokens, pub, a.log, catalog.Options{
		Orphans:         store.OrphanPolicy(a.cfg.OrphanPolicy),
		WhatsAppBaseURL: a.cfg.WhatsAppBaseURL,
		PublicBaseURL:   a.cfg.APIBaseURL,
	})
}

func (a *app) seed() catalog.AdminSeed {
	return catalog.AdminSeed{
		Email:    a.cfg.AdminEmail,
		Password: a.cfg.AdminPassword,
		Name:     a.cfg.AdminName,
	}
}

// withDatabase runs fn against a reachable database. Unlike serve, the
// one-shot commands fail when it is down.
func withDatabase(ctx context.Context, fn func(context.Context, *app) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	pingCtx, cancel := context.WithTimeout(ctx, a.cfg.DBConnectTimeout)
	defer cancel()
	if err := store.Ping(pingCtx, a.db); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return fn(ctx, a)
}
