// Package storage выбирает реализацию хранилища по конфигурации.
package storage

import (
	"context"
	"fmt"

	"taskmaster/internal/auth"
	"taskmaster/internal/config"
	"taskmaster/internal/dashboard"
	"taskmaster/internal/storage/memory"
	"taskmaster/internal/storage/mongostore"
	"taskmaster/internal/storage/sqlstore"
	"taskmaster/internal/tasks"
)

// Backend — всё, что сервер требует от хранилища.
type Backend interface {
	tasks.Store
	dashboard.Source
	auth.UserStore
	Close(ctx context.Context) error
}

var (
	_ Backend = (*memory.Store)(nil)
	_ Backend = (*sqlstore.Store)(nil)
	_ Backend = (*mongostore.Store)(nil)
)

// Open открывает хранилище, выбранное cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Backend, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverFile:
		return memory.Open(ctx, cfg.DataFile)
	case config.DriverSQLite:
		return sqlstore.Open(cfg.SQLitePath, sqlstore.WithDebug(cfg.Debug))
	case config.DriverMongo:
		return mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
