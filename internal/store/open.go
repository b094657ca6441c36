package store

import (
	"context"
	"fmt"
)

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Open returns the store for driver. dsn is the SQLite path and is ignored
// for the memory driver.
func Open(ctx context.Context, driver, dsn string) (ItemStore, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		if dsn == "" {
			dsn = ":memory:"
		}
		return OpenSQLite(ctx, dsn)
	}
	return nil, fmt.Errorf("store: unknown driver %q", driver)
}
