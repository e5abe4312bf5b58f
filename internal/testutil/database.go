// Package testutil provides test helpers: an in-memory record store, catalog
// fixtures and a store wrapper that injects failures.
package testutil

import (
	"context"
	"testing"

	"github.com/maestroSwift/villarbolsillo/internal/service"
	"github.com/maestroSwift/villarbolsillo/internal/storage"
)

// SetupTestStore creates a migrated in-memory store closed at test cleanup.
//
// Example:
//
//	store := testutil.SetupTestStore(t)
//	cat := testutil.NewCatalogBuilder(t, store).WithStandardCatalog().Build()
func SetupTestStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

// MustGet returns a record or fails the test.
func MustGet(t *testing.T, store service.RecordStore, table service.TableName, id string) *service.Record {
	t.Helper()
	rec, err := store.Table(table).Get(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to get %s %s: %v", table, id, err)
	}
	return rec
}

// Count returns the number of records in a table or fails the test.
func Count(t *testing.T, store service.RecordStore, table service.TableName) int {
	t.Helper()
	recs, err := store.Table(table).Query(context.Background(), service.QueryOptions{})
	if err != nil {
		t.Fatalf("failed to query %s: %v", table, err)
	}
	return len(recs)
}
