package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yourusername/medkit-bot/config"
	"github.com/yourusername/medkit-bot/internal/domain/repository"
	"github.com/yourusername/medkit-bot/internal/infrastructure/storage"
)

// OpenStorage opens the medicine store selected by cfg.Driver.
func OpenStorage(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (repository.MedicineRepository, error) {
	var (
		repo repository.MedicineRepository
		err  error
	)

	switch cfg.Driver {
	case config.DriverMemory:
		repo = storage.NewMemoryMedicineRepository()
	case config.DriverSQLite:
		repo, err = storage.NewSQLiteMedicineRepository(cfg.SQLitePath)
	case config.DriverPostgres:
		repo, err = storage.NewPostgresMedicineRepository(ctx, storage.PostgresOptions{
			DSN:             cfg.Postgres.DSN,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
		})
	case config.DriverMongo:
		repo, err = storage.NewMongoMedicineRepository(ctx, storage.MongoOptions{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Driver, err)
	}

	log.Info("storage opened", slog.String("driver", cfg.Driver))
	return repo, nil
}
