// Command seed-inventory loads initial stock into the inventory table and
// the stock cache. Pass a JSON file of {productId, productName, stock}
// records as the only argument, or run without arguments for demo data.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ProfilePlus/ecommerce-microservices/internal/app"
	"github.com/ProfilePlus/ecommerce-microservices/internal/config"
	"github.com/ProfilePlus/ecommerce-microservices/internal/db"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := app.NewInfrastructure(ctx, config.ServiceSeed)
	if err != nil {
		log.Fatalf("Failed to initialize infrastructure: %v", err)
	}

	if err := run(ctx, infra, os.Args[1:]); err != nil {
		infra.Logger.Error("Seeding failed", zap.Error(err))
		infra.Shutdown(context.Background())
		os.Exit(1)
	}
	infra.Shutdown(context.Background())
}

func run(ctx context.Context, infra *app.Infrastructure, args []string) error {
	records := defaultSeed
	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		records, err = readSeed(f)
		f.Close()
		if err != nil {
			return err
		}
	}

	database, err := infra.OpenDB(ctx)
	if err != nil {
		return err
	}

	redisCache, err := infra.OpenCache(ctx)
	if err != nil {
		return err
	}

	if err := seed(ctx, db.NewInventoryRepository(database), redisCache, records, infra.Logger); err != nil {
		return err
	}

	infra.Logger.Info("✅ Inventory seeded", zap.Int("products", len(records)))
	return nil
}
