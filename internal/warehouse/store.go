package warehouse

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/casimage-etl/internal/config"
)

// Store abstracts the warehouse backend. Both implementations take DDL
// statements verbatim and bulk-insert pre-shaped rows.
type Store interface {
	ExecDDL(ctx context.Context, ddl string) error
	BulkInsert(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
	Close() error
}

// Open selects the backend from config: "sqlite" (default) or
// "postgres".
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLite(cfg.Path)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("warehouse: unknown store driver %q", cfg.Driver)
	}
}
