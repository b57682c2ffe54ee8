// Package postgres implements the repositories on PostgreSQL via pgx.
package postgres

import (
	"context"

	"commonthread/internal/config"
	"commonthread/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
}

func New(cfg *config.DatabaseConfig) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, errFailedParseDatabaseConfig(err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.HealthCheckPeriod = poolHealthCheckPeriod
	poolConfig.MaxConnLifetime = poolMaxConnLifetime
	poolConfig.MaxConnIdleTime = poolMaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, errFailedCreateConnectionPool(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errFailedPingDatabase(err)
	}

	return &DB{Pool: pool}, nil
}

func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Repositories returns every repository bound to this pool.
func (db *DB) Repositories() *repository.Store {
	return &repository.Store{
		Tx:          NewTxManager(db),
		Users:       NewUserRepository(db),
		Orgs:        NewOrgRepository(db),
		Memberships: NewMembershipRepository(db),
		Projects:    NewProjectRepository(db),
		Stories:     NewStoryRepository(db),
		Tags:        NewTagRepository(db),
		Tasks:       NewMLTaskRepository(db),
		Close:       db.Close,
	}
}
