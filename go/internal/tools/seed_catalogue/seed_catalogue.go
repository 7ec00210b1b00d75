package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/mcdev12/auctionroom/go/internal/auction/persistence"
	"github.com/mcdev12/auctionroom/go/internal/catalogue"
	"github.com/mcdev12/auctionroom/go/internal/dbconfig"
)

// Replaces catalogue_franchises and catalogue_items with a YAML catalogue.
// Usage: seed_catalogue [catalogue.yaml]; without a path the built-in
// catalogue is used.
func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "seed_catalogue: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	// 1) Load the catalogue
	cat, err := loadCatalogue(args)
	if err != nil {
		return fmt.Errorf("load catalogue: %w", err)
	}

	// 2) Connect using shared dbconfig
	poolCfg, err := dbconfig.NewConfigFromEnv("seed-catalogue").PoolConfig()
	if err != nil {
		return err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	store := persistence.NewPostgresStore(db)

	// 3) Replace the stored catalogue in one transaction
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := store.SaveCatalogue(ctx, cat); err != nil {
		return err
	}

	// 4) Read it back and print a summary
	stored, err := store.LoadCatalogue(ctx)
	if err != nil {
		return fmt.Errorf("verify catalogue: %w", err)
	}
	fmt.Printf(
		"Catalogue seed complete: %d franchises, %d items\n",
		len(stored.Franchises), len(stored.Items),
	)
	return nil
}

func loadCatalogue(args []string) (catalogue.Catalogue, error) {
	if len(args) > 0 {
		return catalogue.Load(args[0])
	}
	return catalogue.Default()
}
