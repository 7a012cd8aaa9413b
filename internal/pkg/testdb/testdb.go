// Package testdb opens isolated in-memory SQLite databases for package tests.
package testdb

import (
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campusreserve/internal/database"
)

var nameReplacer = strings.NewReplacer("/", "_", " ", "_", "#", "_")

// New returns a migrated database private to t. A single connection keeps
// the shared-cache memory database alive and serializes transactions.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", nameReplacer.Replace(t.Name()))
	db, err := database.Connect(dsn, database.Options{MaxOpen: 1, Silent: true}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
