package warehouse

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/casimage-etl/internal/db"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 4
	pgxCfg.MinConns = 1
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) ExecDDL(ctx context.Context, ddl string) error {
	_, err := s.pool.Exec(ctx, ddl)
	return eris.Wrap(err, "postgres: exec ddl")
}

// BulkInsert uses the COPY protocol.
func (s *PostgresStore) BulkInsert(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	return db.CopyFrom(ctx, s.pool, table, columns, rows)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
