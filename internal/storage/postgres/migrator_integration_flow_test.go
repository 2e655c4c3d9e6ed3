package postgres

import (
	"context"
	"testing"
	"time"
)

func TestMigrator_PostgresLifecycle(t *testing.T) {
	store := openRawPostgresStoreForIntegrationTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := store.MigrateDown(ctx, 100); err != nil {
		t.Fatalf("migrate down reset: %v", err)
	}
	assertMigrationState(t, store, MigrationState{})

	if err := store.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("migrate up all: %v", err)
	}
	assertMigrationState(t, store, MigrationState{Version: 2, Applied: 2})

	// Повторный up ничего не меняет.
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("idempotent migrate up: %v", err)
	}
	assertMigrationState(t, store, MigrationState{Version: 2, Applied: 2})

	if err := store.MigrateDown(ctx, 0); err != nil {
		t.Fatalf("migrate down default step: %v", err)
	}
	assertMigrationState(t, store, MigrationState{Version: 1, Applied: 1})

	if err := store.MigrateDown(ctx, 1); err != nil {
		t.Fatalf("migrate down last step: %v", err)
	}
	assertMigrationState(t, store, MigrationState{})

	if err := store.MigrateDown(ctx, 1); err != nil {
		t.Fatalf("migrate down on empty should be no-op: %v", err)
	}

	// Остальные интеграционные тесты ожидают применённую схему.
	if err := store.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("restore schema: %v", err)
	}
}

func TestMigrator_NilStoreGuards(t *testing.T) {
	var nilStore *Store
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := nilStore.MigrateUp(ctx, 0); err == nil {
		t.Fatal("expected error for nil store MigrateUp")
	}
	if err := nilStore.MigrateDown(ctx, 1); err == nil {
		t.Fatal("expected error for nil store MigrateDown")
	}
	if _, err := nilStore.MigrationStatus(ctx); err == nil {
		t.Fatal("expected error for nil store MigrationStatus")
	}
}

func assertMigrationState(t *testing.T, store *Store, want MigrationState) {
	t.Helper()

	got, err := store.MigrationStatus(context.Background())
	if err != nil {
		t.Fatalf("migration status: %v", err)
	}
	if got != want {
		t.Fatalf("unexpected migration state: got %+v want %+v", got, want)
	}
}
