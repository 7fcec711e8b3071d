package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"pms/internal/domain/auth"
	"pms/internal/platform/config"
	"pms/internal/platform/querier"
)

const (
	DefaultDepartmentID = "dept-general"
	DefaultCategoryID   = "cat-staff"
)

// Seed creates the reference rows a fresh install needs. It is idempotent.
func Seed(ctx context.Context, db querier.DB, cfg config.Config) error {
	return db.InTx(ctx, func(q querier.Querier) error {
		now := time.Now().UTC()
		if err := ensureDepartment(ctx, q, DefaultDepartmentID, "General", now); err != nil {
			return err
		}
		if err := ensureCategory(ctx, q, DefaultCategoryID, "Staff", 0.6, 0.3, 0.1, now); err != nil {
			return err
		}
		return ensureAdminUser(ctx, q, cfg.SeedAdminNPK, cfg.SeedAdminPassword, now)
	})
}

func exists(ctx context.Context, q querier.Querier, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRow(ctx, query, args...).Scan(&one)
	if errors.Is(err, querier.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func ensureDepartment(ctx context.Context, q querier.Querier, id, name string, now time.Time) error {
	found, err := exists(ctx, q, "SELECT 1 FROM departments WHERE id = $1 OR name = $2", id, name)
	if err != nil || found {
		return err
	}
	_, err = q.Exec(ctx, "INSERT INTO departments (id, name, created_at) VALUES ($1, $2, $3)", id, name, now)
	return err
}

func ensureCategory(ctx context.Context, q querier.Querier, id, name string, routine, nonRoutine, project float64, now time.Time) error {
	found, err := exists(ctx, q, "SELECT 1 FROM categories WHERE id = $1 OR name = $2", id, name)
	if err != nil || found {
		return err
	}
	_, err = q.Exec(ctx, `
    INSERT INTO categories (id, name, routine_limit, non_routine_limit, project_limit, created_at)
    VALUES ($1, $2, $3, $4, $5, $6)
  `, id, name, routine, nonRoutine, project, now)
	return err
}

func ensureAdminUser(ctx context.Context, q querier.Querier, npk, password string, now time.Time) error {
	if strings.TrimSpace(npk) == "" || strings.TrimSpace(password) == "" {
		return nil
	}
	found, err := exists(ctx, q, "SELECT 1 FROM users WHERE npk = $1", npk)
	if err != nil || found {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, `
    INSERT INTO users (npk, name, role, department_id, password_hash, created_at)
    VALUES ($1, $2, $3, $4, $5, $6)
  `, npk, "Administrator", auth.RoleAdmin, DefaultDepartmentID, hash, now)
	return err
}
