package server

import (
	"fmt"

	"aistudio/config"
	"aistudio/db"
	"aistudio/logger"
	"aistudio/repository"
)

// OpenStore selects the entity store once, before any request is served.
// With the auto backend a database that cannot be reached is logged and
// replaced by the in-memory store.
func OpenStore(cfg *config.Config) (repository.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return repository.NewMemoryStore(), nil
	case config.BackendDatabase:
		return openDatabaseStore(cfg)
	}

	store, err := openDatabaseStore(cfg)
	if err != nil {
		logger.Warn("Database unavailable, falling back to in-memory store",
			logger.String("driver", cfg.Database.Driver),
			logger.ErrorField(err))
		return repository.NewMemoryStore(), nil
	}
	return store, nil
}

func openDatabaseStore(cfg *config.Config) (repository.Store, error) {
	gdb, err := db.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gdb); err != nil {
		if sqlDB, derr := gdb.DB(); derr == nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return repository.NewGormStore(gdb), nil
}
