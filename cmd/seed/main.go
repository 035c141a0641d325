package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/seed"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage/backend"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/config"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo accounts and the staples catalog",
	Long: `Seed the configured store with demo users and products.

Examples:
  # Seed with the embedded fixture, skipping if already seeded
  seed

  # Fill in anything missing from a custom fixture
  seed --file fixtures/catalog.yaml --force`,
	SilenceUsage: true,
	RunE:         runSeed,
}

func init() {
	rootCmd.Flags().StringP("file", "f", "", "YAML fixture to load instead of the embedded one")
	rootCmd.Flags().Bool("force", false, "Seed even if the admin user already exists")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSeed(cmd *cobra.Command, _ []string) error {
	file, _ := cmd.Flags().GetString("file")
	force, _ := cmd.Flags().GetBool("force")

	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "seed"})
	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg = logger.New(logger.Options{ServiceName: "seed", Level: logger.ParseLevel(cfg.App.LogLevel)})

	fixture, err := loadFixture(file)
	if err != nil {
		return err
	}

	store, err := backend.Open(ctx, cfg, logg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logg.Error(ctx, "error closing storage", err)
		}
	}()
	if store.Empty() {
		logg.Warn(ctx, "seeding the in-memory store has no lasting effect; set KIRANA_DB_DSN or KIRANA_MONGO_URI")
	}

	res, err := seed.Run(ctx, store.Store, fixture, seed.Options{
		Force:    force,
		Password: cfg.Password,
		Logger:   logg,
	})
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if res.Skipped {
		fmt.Fprintln(cmd.OutOrStdout(), "already seeded; pass --force to fill in missing records")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users and %d products\n", res.UsersCreated, res.ProductsCreated)
	return nil
}

func loadFixture(path string) (*seed.Fixture, error) {
	if path == "" {
		return seed.DefaultFixture()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return seed.ParseFixture(data)
}
