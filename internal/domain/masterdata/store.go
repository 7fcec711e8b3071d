package masterdata

import (
	"context"
	"errors"
	"fmt"

	"pms/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func notFound(err, sentinel error) error {
	if errors.Is(err, querier.ErrNoRows) {
		return sentinel
	}
	return err
}

func duplicate(err error, what string) error {
	if querier.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicate, what)
	}
	return err
}

func (s *Store) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, routine_limit, non_routine_limit, project_limit, created_at
    FROM categories
    ORDER BY name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.RoutineLimit, &c.NonRoutineLimit, &c.ProjectLimit, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetCategory(ctx context.Context, id string) (Category, error) {
	var c Category
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, routine_limit, non_routine_limit, project_limit, created_at
    FROM categories
    WHERE id = $1
  `, id).Scan(&c.ID, &c.Name, &c.RoutineLimit, &c.NonRoutineLimit, &c.ProjectLimit, &c.CreatedAt)
	return c, notFound(err, ErrCategoryNotFound)
}

func (s *Store) CreateCategory(ctx context.Context, c Category) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO categories (id, name, routine_limit, non_routine_limit, project_limit, created_at)
    VALUES ($1,$2,$3,$4,$5,$6)
  `, c.ID, c.Name, c.RoutineLimit, c.NonRoutineLimit, c.ProjectLimit, c.CreatedAt)
	return duplicate(err, "category name")
}

func (s *Store) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := s.DB.Query(ctx, `SELECT id, name, created_at FROM departments ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Department{}
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) GetDepartment(ctx context.Context, id string) (Department, error) {
	var d Department
	err := s.DB.QueryRow(ctx, `SELECT id, name, created_at FROM departments WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.CreatedAt)
	return d, notFound(err, ErrDepartmentNotFound)
}

func (s *Store) CreateDepartment(ctx context.Context, d Department) error {
	_, err := s.DB.Exec(ctx, `INSERT INTO departments (id, name, created_at) VALUES ($1,$2,$3)`, d.ID, d.Name, d.CreatedAt)
	return duplicate(err, "department name")
}

const userColumns = `npk, name, email, section, position, grade, COALESCE(department_id, ''), role, created_at`

func scanUser(row querier.Row) (UserProfile, error) {
	var u UserProfile
	err := row.Scan(&u.NPK, &u.Name, &u.Email, &u.Section, &u.Position, &u.Grade, &u.DepartmentID, &u.Role, &u.CreatedAt)
	return u, err
}

func (s *Store) GetUser(ctx context.Context, npk string) (UserProfile, error) {
	u, err := scanUser(s.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE npk = $1`, npk))
	return u, notFound(err, ErrUserNotFound)
}

func (s *Store) ListUsers(ctx context.Context, departmentID string, limit, offset int) ([]UserProfile, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}
	if departmentID != "" {
		args = append(args, departmentID)
		query += " WHERE department_id = $1"
	}
	query += fmt.Sprintf(" ORDER BY npk LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []UserProfile{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, u UserProfile, passwordHash string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO users (npk, name, email, section, position, grade, department_id, role, password_hash, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
  `, u.NPK, u.Name, u.Email, u.Section, u.Position, u.Grade, nullIfEmpty(u.DepartmentID), u.Role, passwordHash, u.CreatedAt)
	return duplicate(err, "npk")
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
