// Package testutil provides database fixtures for tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"pms/internal/platform/db"
	"pms/internal/platform/querier"
)

// NewTestDB returns a migrated in-memory SQLite database that is closed when
// the test completes.
func NewTestDB(t *testing.T) querier.DB {
	t.Helper()
	sqlDB, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	database := querier.NewSQL(sqlDB)
	t.Cleanup(database.Close)
	if err := db.Migrate(context.Background(), database); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return database
}

func InsertDepartment(t *testing.T, q querier.Querier, id, name string) {
	t.Helper()
	if _, err := q.Exec(context.Background(), "INSERT INTO departments (id, name, created_at) VALUES ($1, $2, $3)", id, name, time.Now().UTC()); err != nil {
		t.Fatalf("insert department: %v", err)
	}
}

func InsertCategory(t *testing.T, q querier.Querier, id, name string, routine, nonRoutine, project float64) {
	t.Helper()
	if _, err := q.Exec(context.Background(), `
    INSERT INTO categories (id, name, routine_limit, non_routine_limit, project_limit, created_at)
    VALUES ($1,$2,$3,$4,$5,$6)
  `, id, name, routine, nonRoutine, project, time.Now().UTC()); err != nil {
		t.Fatalf("insert category: %v", err)
	}
}

// InsertUser adds a user. passwordHash may be any string when login is not
// exercised.
func InsertUser(t *testing.T, q querier.Querier, npk, name, role, departmentID, passwordHash string) {
	t.Helper()
	var dept any
	if departmentID != "" {
		dept = departmentID
	}
	if _, err := q.Exec(context.Background(), `
    INSERT INTO users (npk, name, role, department_id, password_hash, created_at)
    VALUES ($1,$2,$3,$4,$5,$6)
  `, npk, name, role, dept, passwordHash, time.Now().UTC()); err != nil {
		t.Fatalf("insert user: %v", err)
	}
}
