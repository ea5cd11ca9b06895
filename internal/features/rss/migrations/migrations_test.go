package migrations

import (
	"context"
	"testing"

	"feedwatch/internal/core"
)

func openTestDB(t *testing.T) *core.Database {
	t.Helper()

	db, err := core.OpenSQLite(context.Background(), ":memory:", core.NewDiscardLogger())
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *core.Database, name string) bool {
	t.Helper()

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to check table %s: %v", name, err)
	}
	return count == 1
}

func TestRSSMigrations(t *testing.T) {
	db := openTestDB(t)
	manager := NewManager(db, core.NewDiscardLogger())
	ctx := context.Background()

	if err := manager.Migrate(ctx); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM migrations").Scan(&count); err != nil {
		t.Fatalf("Failed to query migrations table: %v", err)
	}
	expectedMigrations := len(manager.Migrations())
	if count != expectedMigrations {
		t.Errorf("Expected %d migrations, got %d", expectedMigrations, count)
	}

	for _, table := range []string{"rss_feeds", "rss_posts"} {
		if !tableExists(t, db, table) {
			t.Errorf("Table %s was not created", table)
		}
	}

	// migrations are idempotent
	if err := manager.Migrate(ctx); err != nil {
		t.Fatalf("Failed to re-apply migrations: %v", err)
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM migrations").Scan(&count); err != nil {
		t.Fatalf("Failed to query migrations table: %v", err)
	}
	if count != expectedMigrations {
		t.Errorf("Expected %d migrations after re-apply, got %d", expectedMigrations, count)
	}

	pending, err := manager.Pending(ctx)
	if err != nil {
		t.Fatalf("Failed to get pending migrations: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("Expected no pending migrations, got %d", len(pending))
	}
}

func TestPostTitleUniquePerFeed(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := NewManager(db, core.NewDiscardLogger()).Migrate(ctx); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	if _, err := db.Exec(`INSERT INTO rss_feeds (id, title, request_url) VALUES ('1', 'Blog', 'https://example.com/rss')`); err != nil {
		t.Fatalf("Failed to insert feed: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO rss_posts (id, feed_id, title) VALUES ('2', '1', 'Post1')`); err != nil {
		t.Fatalf("Failed to insert post: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO rss_posts (id, feed_id, title) VALUES ('3', '1', 'Post1')`); err == nil {
		t.Error("Expected duplicate title in the same feed to be rejected")
	}
	if _, err := db.Exec(`INSERT INTO rss_posts (id, feed_id, title) VALUES ('4', 'missing', 'Post1')`); err == nil {
		t.Error("Expected post of unknown feed to be rejected")
	}
}

func TestMigrationRollback(t *testing.T) {
	db := openTestDB(t)
	manager := NewManager(db, core.NewDiscardLogger())
	ctx := context.Background()

	if err := manager.Migrate(ctx); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	for range manager.Migrations() {
		if err := manager.Rollback(ctx); err != nil {
			t.Fatalf("Failed to rollback migrations: %v", err)
		}
	}

	for _, table := range []string{"rss_feeds", "rss_posts"} {
		if tableExists(t, db, table) {
			t.Errorf("Table %s was not removed during rollback", table)
		}
	}

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("Failed to get migration status: %v", err)
	}
	if status.AppliedCount != 0 {
		t.Errorf("Expected no applied migrations, got %d", status.AppliedCount)
	}

	if err := manager.Rollback(ctx); err == nil {
		t.Error("Expected rollback with nothing applied to fail")
	}
}
