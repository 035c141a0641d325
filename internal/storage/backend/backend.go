// Package backend opens the storage.Store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage/memory"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage/mongostore"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage/sqlstore"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/config"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/db"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/logger"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/migrate"
	pkgmongo "github.com/kiranaconnect/kiranaconnect-backend/pkg/mongo"
)

// Backend is an opened store plus the handles cmd/* needs for migrations.
type Backend struct {
	Store  storage.Store
	Kind   string
	SQL    *db.Client
	closer func() error
}

// Empty reports whether the backend starts without data and must be seeded.
func (b *Backend) Empty() bool {
	return b.Kind == config.StorageDriverMemory
}

// Close releases the store and any driver it owns.
func (b *Backend) Close() error {
	if b == nil || b.closer == nil {
		return nil
	}
	return b.closer()
}

// Resolve turns "auto" into a concrete driver: postgres when a DSN is set,
// then mongo when a URI is set, else memory.
func Resolve(cfg *config.Config) string {
	driver := cfg.Storage.Normalized()
	if driver != config.StorageDriverAuto {
		return driver
	}
	switch {
	case cfg.DB.Configured():
		return config.StorageDriverPostgres
	case cfg.Mongo.URI != "":
		return config.StorageDriverMongo
	default:
		return config.StorageDriverMemory
	}
}

// Open connects the selected backend. Postgres runs dev migrations when
// enabled; sqlite is migrated through GORM.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*Backend, error) {
	kind := Resolve(cfg)
	if logg != nil {
		logg.Info(logg.WithField(ctx, "storage_driver", kind), "storage.open")
	}

	switch kind {
	case config.StorageDriverMemory:
		store := memory.New()
		return &Backend{Store: store, Kind: kind, closer: store.Close}, nil

	case config.StorageDriverPostgres, config.StorageDriverSQLite:
		dbCfg := cfg.DB
		dbCfg.Driver = db.DriverPostgres
		if kind == config.StorageDriverSQLite {
			dbCfg.Driver = db.DriverSQLite
		}
		client, err := db.New(ctx, dbCfg, logg)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", kind, err)
		}
		store, err := sqlstore.New(client)
		if err != nil {
			return nil, multierr.Append(err, client.Close())
		}
		if kind == config.StorageDriverSQLite {
			if err := store.AutoMigrate(ctx); err != nil {
				return nil, multierr.Append(fmt.Errorf("automigrate sqlite: %w", err), client.Close())
			}
		} else if err := migrate.MaybeRunDev(ctx, cfg, logg, client); err != nil {
			return nil, multierr.Append(fmt.Errorf("dev migrations: %w", err), client.Close())
		}
		return &Backend{Store: store, Kind: kind, SQL: client, closer: store.Close}, nil

	case config.StorageDriverMongo:
		client, err := pkgmongo.New(ctx, cfg.Mongo, logg)
		if err != nil {
			return nil, fmt.Errorf("open mongo: %w", err)
		}
		store, err := mongostore.New(ctx, client)
		if err != nil {
			return nil, multierr.Append(err, client.Close())
		}
		return &Backend{Store: store, Kind: kind, closer: store.Close}, nil
	}

	return nil, fmt.Errorf("unsupported storage driver %q", kind)
}
