// Package hospitaltest opens throwaway in-memory hospital databases for tests.
package hospitaltest

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/uptrace/bun"

	hospitalx "github.com/tanpawarit/Hospital-Care-Assistant/agent/hospital"
	databasex "github.com/tanpawarit/Hospital-Care-Assistant/pkg/database"
)

var seq atomic.Int64

// OpenDB returns a migrated, empty in-memory SQLite database private to t.
func OpenDB(t testing.TB) *bun.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	db, err := databasex.Open(context.Background(), databasex.Config{DSN: dsn, PingAttempts: 1})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// NewRepository returns a repository over a fresh migrated database.
func NewRepository(t testing.TB, opts ...hospitalx.Option) *hospitalx.Repository {
	t.Helper()

	repo, err := hospitalx.NewRepository(OpenDB(t), opts...)
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo
}
