package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"backoffice/config"
	"backoffice/internal/store"
	"backoffice/internal/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "backoffice",
		Short:        "Back office API for the spice shop",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(loadConfig())
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(loadConfig())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply the database schema",
			RunE: func(cmd *cobra.Command, args []string) error {
				return migrate(cmd.Context(), loadConfig())
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Insert the demo catalog and customers",
			RunE: func(cmd *cobra.Command, args []string) error {
				return seed(cmd.Context(), loadConfig())
			},
		},
		&cobra.Command{
			Use:   "mail-relay",
			Short: "Deliver confirmation mails published on Kafka",
			RunE: func(cmd *cobra.Command, args []string) error {
				return mailRelay(loadConfig())
			},
		},
		&cobra.Command{
			Use:   "clean-demo",
			Short: "Remove demo products, customers and their orders",
			RunE: func(cmd *cobra.Command, args []string) error {
				return cleanDemo(cmd.Context(), loadConfig())
			},
		},
	)

	return root
}

func loadConfig() *config.Config {
	cfg := config.Load()
	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return cfg
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, time.Minute)
}

// openPostgres is used by the maintenance commands, which only make sense
// against a persistent store
func openPostgres(cfg *config.Config) (*store.PostgresStore, error) {
	if cfg.Database.Driver != config.DriverPostgres {
		return nil, fmt.Errorf("command requires STORE_DRIVER=%s, got %q", config.DriverPostgres, cfg.Database.Driver)
	}
	return store.NewPostgresStore(cfg.Database.URL)
}

func migrate(ctx context.Context, cfg *config.Config) error {
	defer util.SyncLogger()

	db, err := openPostgres(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		return err
	}
	util.GetLogger().Info("Schema applied")
	return nil
}

func seed(ctx context.Context, cfg *config.Config) error {
	defer util.SyncLogger()

	db, err := openPostgres(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	data, err := store.LoadDemoData()
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if err := store.Seed(ctx, db, data); err != nil {
		return err
	}
	util.GetLogger().Info("Demo data seeded",
		zap.Int("products", len(data.Products)),
		zap.Int("customers", len(data.Customers)))
	return nil
}

func cleanDemo(ctx context.Context, cfg *config.Config) error {
	defer util.SyncLogger()

	db, err := openPostgres(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	data, err := store.LoadDemoData()
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := store.CleanDemoData(ctx, db, data)
	if err != nil {
		return err
	}
	util.GetLogger().Info("Demo data removed",
		zap.Int64("products", res.Products),
		zap.Int64("users", res.Users),
		zap.Int64("orders", res.Orders))
	return nil
}
